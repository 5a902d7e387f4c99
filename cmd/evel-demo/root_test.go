package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRootCommandValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{name: "missing fqdn", args: []string{"--port", "30000"}, errContains: "--fqdn is required"},
		{name: "missing port", args: []string{"--fqdn", "collector"}, errContains: "--port is required"},
		{name: "port zero", args: []string{"--fqdn", "collector", "--port", "0"}, errContains: "between 1 and 65535"},
		{name: "port too large", args: []string{"--fqdn", "collector", "--port", "70000"}, errContains: "between 1 and 65535"},
		{name: "zero cycles", args: []string{"--fqdn", "collector", "--port", "30000", "--cycles", "0"}, errContains: "greater than zero"},
		{name: "bad trace exporter", args: []string{"--fqdn", "collector", "--port", "30000", "--trace", "zipkin"}, errContains: "--trace"},
		{name: "positional argument", args: []string{"extra"}, errContains: "unknown command"},
		{name: "unknown flag", args: []string{"--bogus"}, errContains: "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			err := cmd.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

// recordingCollector stores every posted body.
type recordingCollector struct {
	mu     sync.Mutex
	bodies []string
}

func (c *recordingCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, string(b))
	c.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (c *recordingCollector) domains() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.bodies))
	for _, b := range c.bodies {
		out = append(out, gjson.Get(b, "event.commonEventHeader.domain").String())
	}
	return out
}

func startDemoCollector(t *testing.T) (*recordingCollector, string, string) {
	t.Helper()
	collector := &recordingCollector{}
	server := httptest.NewServer(collector)
	t.Cleanup(server.Close)

	host, port, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	return collector, host, port
}

func TestRootCommandRunsCycles(t *testing.T) {
	collector, host, port := startDemoCollector(t)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--fqdn", host, "--port", port, "--cycles", "2", "--interval", "10ms", "--topic", "example_vnf"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "Starting 2 loops...")
	assert.Equal(t, 2, strings.Count(out.String(), "Starting main loop"))
	assert.Contains(t, out.String(), "All done - exiting!")
	assert.Equal(t, []string{
		"heartbeat", "fault", "measurementsForVfScaling", "measurementsForVfReporting",
		"heartbeat", "fault", "measurementsForVfScaling", "measurementsForVfReporting",
	}, collector.domains())
}

func TestRootCommandConfigFile(t *testing.T) {
	collector, host, port := startDemoCollector(t)

	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "evel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"collector:\n  fqdn: "+host+"\n  port: "+strconv.Itoa(p)+"\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "--interval", "0s"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Len(t, collector.domains(), 4)
}

func TestRootCommandStopsOnCancel(t *testing.T) {
	collector, host, port := startDemoCollector(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--fqdn", host, "--port", port, "--cycles", "5"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Interrupted")
	assert.Equal(t, 1, strings.Count(out.String(), "Starting main loop"))
	assert.Len(t, collector.domains(), 4)
}
