package telemetry

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/evel/core"
)

// Response is what the collector answered to one POST.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport delivers encoded events to the collector.
// Post is only ever called from the dispatch worker.
type Transport interface {
	Post(ctx context.Context, body []byte) (*Response, error)
	Close() error
}

// maxResponseBytes bounds how much of a collector response is kept.
const maxResponseBytes = 64 << 10

// HTTPTransport POSTs JSON bodies to a fixed collector URL.
type HTTPTransport struct {
	url      string
	username string
	password string
	client   *http.Client
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*httpTransportOptions)

type httpTransportOptions struct {
	base           http.RoundTripper
	tlsConfig      *tls.Config
	tracerProvider trace.TracerProvider
}

// WithBaseTransport replaces the round tripper wrapped by otelhttp.
func WithBaseTransport(rt http.RoundTripper) HTTPTransportOption {
	return func(o *httpTransportOptions) { o.base = rt }
}

// WithTLSConfig sets the TLS configuration used for HTTPS collectors.
func WithTLSConfig(cfg *tls.Config) HTTPTransportOption {
	return func(o *httpTransportOptions) { o.tlsConfig = cfg }
}

// WithTransportTracerProvider sets the provider for client spans.
// The global provider is used otherwise.
func WithTransportTracerProvider(tp trace.TracerProvider) HTTPTransportOption {
	return func(o *httpTransportOptions) { o.tracerProvider = tp }
}

// NewHTTPTransport builds a transport for cfg.URL().
func NewHTTPTransport(cfg core.CollectorConfig, opts ...HTTPTransportOption) (*HTTPTransport, error) {
	if cfg.FQDN == "" {
		return nil, core.Errorf("telemetry.NewHTTPTransport", core.ErrMissingConfiguration, "collector FQDN is required")
	}

	var o httpTransportOptions
	for _, opt := range opts {
		opt(&o)
	}

	base := o.base
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		switch {
		case o.tlsConfig != nil:
			t.TLSClientConfig = o.tlsConfig.Clone()
		case cfg.Secure && cfg.InsecureSkipVerify:
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
		}
		base = t
	}

	var otelOpts []otelhttp.Option
	if o.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(o.tracerProvider))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = core.DefaultConfig().Collector.Timeout
	}

	return &HTTPTransport{
		url:      cfg.URL(),
		username: cfg.Username,
		password: cfg.Password,
		client: &http.Client{
			Transport: otelhttp.NewTransport(base, otelOpts...),
			Timeout:   timeout,
		},
	}, nil
}

// URL returns the collector endpoint.
func (t *HTTPTransport) URL() string {
	return t.url
}

// Post sends body. A non-2xx answer returns both the response and an
// error wrapping core.ErrTransportFailure.
func (t *HTTPTransport) Post(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, core.Errorf("telemetry.Post", core.ErrTransportFailure, "building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, core.Errorf("telemetry.Post", core.ErrTransportFailure, "POST %s: %v", t.url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, core.Errorf("telemetry.Post", core.ErrTransportFailure, "reading response: %v", err)
	}

	result := &Response{StatusCode: resp.StatusCode, Body: data}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, core.Errorf("telemetry.Post", core.ErrTransportFailure, "collector returned %d", resp.StatusCode)
	}
	return result, nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
