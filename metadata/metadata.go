// Package metadata discovers the identity of the VM the library runs in.
//
// On OpenStack the metadata service provides the instance UUID and name,
// which become reportingEntityId and reportingEntityName in every event.
// Outside OpenStack, Local returns the host name and a per-process UUID.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/itsneelabh/evel/core"
)

// Identity is the reporting entity of this process.
type Identity struct {
	UUID string
	Name string
}

// Client fetches Identity from an OpenStack-style metadata endpoint.
type Client struct {
	url    string
	http   *http.Client
	logger core.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) ClientOption {
	return func(cl *Client) { cl.logger = core.LoggerOrNoOp(logger) }
}

// NewClient creates a client for url with the given request timeout.
func NewClient(url string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// maxMetadataBytes bounds how much of the response is read.
const maxMetadataBytes = 1 << 20

// Fetch retrieves and parses the metadata document.
//
// Errors:
//   - core.ErrNoMetadata: service unreachable or non-200 response
//   - core.ErrBadJSONFormat: body is not valid JSON
//   - core.ErrJSONKeyNotFound: "uuid" or "name" missing
//   - core.ErrBadMetadata: "uuid" or "name" present but empty
func (c *Client) Fetch(ctx context.Context) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Identity{}, core.Errorf("metadata.Fetch", core.ErrNoMetadata, "building request for %s: %v", c.url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Metadata service unreachable", map[string]interface{}{
			"url":    c.url,
			"error":  err,
			"action": "Disable metadata discovery outside OpenStack",
		})
		return Identity{}, core.Errorf("metadata.Fetch", core.ErrNoMetadata, "GET %s: %v", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return Identity{}, core.Errorf("metadata.Fetch", core.ErrNoMetadata, "reading %s: %v", c.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, core.Errorf("metadata.Fetch", core.ErrNoMetadata, "GET %s returned %d", c.url, resp.StatusCode)
	}

	id, err := Parse(body)
	if err != nil {
		c.logger.Error("Metadata document rejected", map[string]interface{}{
			"url":   c.url,
			"error": err,
		})
		return Identity{}, err
	}

	c.logger.Info("Discovered VM identity", map[string]interface{}{
		"vm_uuid": id.UUID,
		"vm_name": id.Name,
	})
	return id, nil
}

// Parse extracts the identity from an OpenStack meta_data.json document.
func Parse(doc []byte) (Identity, error) {
	if !gjson.ValidBytes(doc) {
		return Identity{}, core.Errorf("metadata.Parse", core.ErrBadJSONFormat, "metadata is not valid JSON")
	}

	var id Identity
	for _, field := range []struct {
		key string
		dst *string
	}{
		{"uuid", &id.UUID},
		{"name", &id.Name},
	} {
		r := gjson.GetBytes(doc, field.key)
		if !r.Exists() {
			return Identity{}, core.Errorf("metadata.Parse", core.ErrJSONKeyNotFound, "key %q", field.key)
		}
		if r.Type != gjson.String || r.String() == "" {
			return Identity{}, core.Errorf("metadata.Parse", core.ErrBadMetadata, "key %q has unusable value %s", field.key, r.Raw)
		}
		*field.dst = r.String()
	}
	return id, nil
}

var (
	localOnce     sync.Once
	localIdentity Identity
)

// Local returns the host name and a UUID generated once per process.
func Local() Identity {
	localOnce.Do(func() {
		name, err := os.Hostname()
		if err != nil || name == "" {
			name = "localhost"
		}
		localIdentity = Identity{UUID: uuid.NewString(), Name: name}
	})
	return localIdentity
}

// Resolve picks the identity for an engine: explicit overrides win, then the
// metadata service when enabled, then Local.
func Resolve(ctx context.Context, cfg core.MetadataConfig, src core.SourceConfig, logger core.Logger) (Identity, error) {
	logger = core.LoggerOrNoOp(logger)

	var id Identity
	if cfg.Enabled {
		fetched, err := NewClient(cfg.URL, cfg.Timeout, WithLogger(logger)).Fetch(ctx)
		if err != nil {
			return Identity{}, fmt.Errorf("resolving reporting identity: %w", err)
		}
		id = fetched
	} else {
		id = Local()
	}

	if src.ReportingEntityID != "" {
		id.UUID = src.ReportingEntityID
	}
	if src.ReportingEntityName != "" {
		id.Name = src.ReportingEntityName
	}
	return id, nil
}
