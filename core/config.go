package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultQueueCapacity is the number of data events the dispatch queue holds.
	DefaultQueueCapacity = 100

	// DefaultTerminateGrace is how long a caller should wait after Terminate
	// for the worker to drain before the process exits.
	DefaultTerminateGrace = time.Second

	// DefaultMetadataURL is the OpenStack metadata service endpoint.
	DefaultMetadataURL = "http://169.254.169.254/openstack/latest/meta_data.json"
)

// Config holds all configuration options for the event listener client.
// It supports layered configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables
//  3. Configuration file (YAML or JSON, via WithConfigFile)
//  4. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithCollector("collector.example.com", 30000),
//	    WithTopic("vnf"),
//	    WithBasicAuth("will", "pill"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	ServiceName string `json:"service_name" yaml:"service_name" env:"EVEL_SERVICE_NAME" default:"evel"`

	// Verbosity above zero switches logging to DEBUG.
	Verbosity int `json:"verbosity" yaml:"verbosity" env:"EVEL_VERBOSITY" default:"0"`

	// TerminateGrace is the drain period Shutdown callers are expected to allow.
	TerminateGrace time.Duration `json:"terminate_grace" yaml:"terminate_grace" env:"EVEL_TERMINATE_GRACE" default:"1s"`

	Collector      CollectorConfig      `json:"collector" yaml:"collector"`
	Source         SourceConfig         `json:"source" yaml:"source"`
	Queue          QueueConfig          `json:"queue" yaml:"queue"`
	Logging        LoggingConfig        `json:"logging" yaml:"logging"`
	Metadata       MetadataConfig       `json:"metadata" yaml:"metadata"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
	FailureJournal FailureJournalConfig `json:"failure_journal" yaml:"failure_journal"`
}

// CollectorConfig identifies the remote event listener.
// It is immutable once an engine has been initialized from it.
type CollectorConfig struct {
	FQDN               string        `json:"fqdn" yaml:"fqdn" env:"EVEL_COLLECTOR_FQDN"`
	Port               int           `json:"port" yaml:"port" env:"EVEL_COLLECTOR_PORT" default:"30000"`
	Path               string        `json:"path" yaml:"path" env:"EVEL_COLLECTOR_PATH"`
	Topic              string        `json:"topic" yaml:"topic" env:"EVEL_COLLECTOR_TOPIC"`
	Secure             bool          `json:"secure" yaml:"secure" env:"EVEL_COLLECTOR_SECURE" default:"false"`
	Username           string        `json:"username" yaml:"username" env:"EVEL_COLLECTOR_USERNAME"`
	Password           string        `json:"password" yaml:"password" env:"EVEL_COLLECTOR_PASSWORD"`
	Timeout            time.Duration `json:"timeout" yaml:"timeout" env:"EVEL_COLLECTOR_TIMEOUT" default:"10s"`
	InsecureSkipVerify bool          `json:"insecure_skip_verify" yaml:"insecure_skip_verify" env:"EVEL_COLLECTOR_INSECURE_SKIP_VERIFY" default:"false"`
}

// URL renders scheme://fqdn:port[/path][/topic].
func (c CollectorConfig) URL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s://%s:%d", scheme, c.FQDN, c.Port)
	if p := strings.Trim(c.Path, "/"); p != "" {
		b.WriteString("/")
		b.WriteString(p)
	}
	if t := strings.Trim(c.Topic, "/"); t != "" {
		b.WriteString("/")
		b.WriteString(t)
	}
	return b.String()
}

// SourceConfig describes the entity raising events.
type SourceConfig struct {
	// Type is a source type name such as "virtualMachine" or "host".
	Type           string `json:"type" yaml:"type" env:"EVEL_SOURCE_TYPE" default:"virtualMachine"`
	FunctionalRole string `json:"functional_role" yaml:"functional_role" env:"EVEL_FUNCTIONAL_ROLE" default:"evel"`

	// Optional overrides for the discovered reporting identity.
	ReportingEntityID   string `json:"reporting_entity_id" yaml:"reporting_entity_id" env:"EVEL_REPORTING_ENTITY_ID"`
	ReportingEntityName string `json:"reporting_entity_name" yaml:"reporting_entity_name" env:"EVEL_REPORTING_ENTITY_NAME"`
}

// QueueConfig sizes the dispatch queue.
type QueueConfig struct {
	Capacity int `json:"capacity" yaml:"capacity" env:"EVEL_QUEUE_CAPACITY" default:"100"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level         string        `json:"level" yaml:"level" env:"EVEL_LOG_LEVEL" default:"info"`
	Format        string        `json:"format" yaml:"format" env:"EVEL_LOG_FORMAT"`
	ErrorInterval time.Duration `json:"error_interval" yaml:"error_interval" env:"EVEL_LOG_ERROR_INTERVAL" default:"1s"`
	Output        io.Writer     `json:"-" yaml:"-"`
}

// MetadataConfig controls identity discovery from the OpenStack metadata service.
// When disabled the host name and a per-process UUID are used instead.
type MetadataConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" env:"EVEL_METADATA_ENABLED" default:"false"`
	URL     string        `json:"url" yaml:"url" env:"EVEL_METADATA_URL"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" env:"EVEL_METADATA_TIMEOUT" default:"2s"`
}

// CircuitBreakerConfig gates POST attempts while the collector keeps failing.
type CircuitBreakerConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled" env:"EVEL_CIRCUIT_ENABLED" default:"false"`
	MaxFailures  int           `json:"max_failures" yaml:"max_failures" env:"EVEL_CIRCUIT_MAX_FAILURES" default:"10"`
	RecoveryTime time.Duration `json:"recovery_time" yaml:"recovery_time" env:"EVEL_CIRCUIT_RECOVERY_TIME" default:"30s"`
	HalfOpenMax  int           `json:"half_open_max" yaml:"half_open_max" env:"EVEL_CIRCUIT_HALF_OPEN_MAX" default:"5"`
}

// FailureJournalConfig records undeliverable events in Redis for inspection.
// Journaled events are never re-sent.
type FailureJournalConfig struct {
	Enabled    bool          `json:"enabled" yaml:"enabled" env:"EVEL_JOURNAL_ENABLED" default:"false"`
	RedisURL   string        `json:"redis_url" yaml:"redis_url" env:"EVEL_REDIS_URL,REDIS_URL"`
	DB         int           `json:"db" yaml:"db" env:"EVEL_JOURNAL_DB" default:"0"`
	Key        string        `json:"key" yaml:"key" env:"EVEL_JOURNAL_KEY" default:"failed"`
	MaxEntries int64         `json:"max_entries" yaml:"max_entries" env:"EVEL_JOURNAL_MAX_ENTRIES" default:"1000"`
	TTL        time.Duration `json:"ttl" yaml:"ttl" env:"EVEL_JOURNAL_TTL" default:"24h"`
}

// Option is a functional option for configuring the client
type Option func(*Config) error

// DefaultConfig returns a configuration with every default applied.
// The collector FQDN has no default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "evel",
		TerminateGrace: DefaultTerminateGrace,
		Collector: CollectorConfig{
			Port:    30000,
			Timeout: 10 * time.Second,
		},
		Source: SourceConfig{
			Type:           "virtualMachine",
			FunctionalRole: "evel",
		},
		Queue: QueueConfig{
			Capacity: DefaultQueueCapacity,
		},
		Logging: LoggingConfig{
			Level:         "info",
			ErrorInterval: time.Second,
		},
		Metadata: MetadataConfig{
			URL:     DefaultMetadataURL,
			Timeout: 2 * time.Second,
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  10,
			RecoveryTime: 30 * time.Second,
			HalfOpenMax:  5,
		},
		FailureJournal: FailureJournalConfig{
			Key:        "failed",
			MaxEntries: 1000,
			TTL:        24 * time.Hour,
		},
	}
}

// LoadFromEnv overlays EVEL_* environment variables onto the configuration.
// Malformed numeric or duration values are ignored.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("EVEL_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("EVEL_VERBOSITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Verbosity = n
		}
	}
	setDuration("EVEL_TERMINATE_GRACE", &c.TerminateGrace)

	// Collector
	if v := os.Getenv("EVEL_COLLECTOR_FQDN"); v != "" {
		c.Collector.FQDN = v
	}
	if v := os.Getenv("EVEL_COLLECTOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Collector.Port = port
		}
	}
	if v := os.Getenv("EVEL_COLLECTOR_PATH"); v != "" {
		c.Collector.Path = v
	}
	if v := os.Getenv("EVEL_COLLECTOR_TOPIC"); v != "" {
		c.Collector.Topic = v
	}
	if v := os.Getenv("EVEL_COLLECTOR_SECURE"); v != "" {
		c.Collector.Secure = parseBool(v)
	}
	if v := os.Getenv("EVEL_COLLECTOR_USERNAME"); v != "" {
		c.Collector.Username = v
	}
	if v := os.Getenv("EVEL_COLLECTOR_PASSWORD"); v != "" {
		c.Collector.Password = v
	}
	setDuration("EVEL_COLLECTOR_TIMEOUT", &c.Collector.Timeout)
	if v := os.Getenv("EVEL_COLLECTOR_INSECURE_SKIP_VERIFY"); v != "" {
		c.Collector.InsecureSkipVerify = parseBool(v)
	}

	// Source
	if v := os.Getenv("EVEL_SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("EVEL_FUNCTIONAL_ROLE"); v != "" {
		c.Source.FunctionalRole = v
	}
	if v := os.Getenv("EVEL_REPORTING_ENTITY_ID"); v != "" {
		c.Source.ReportingEntityID = v
	}
	if v := os.Getenv("EVEL_REPORTING_ENTITY_NAME"); v != "" {
		c.Source.ReportingEntityName = v
	}

	if v := os.Getenv("EVEL_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Queue.Capacity = n
		}
	}

	// Logging
	if v := os.Getenv("EVEL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EVEL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if parseBool(os.Getenv("EVEL_DEBUG")) {
		c.Logging.Level = "debug"
	}
	setDuration("EVEL_LOG_ERROR_INTERVAL", &c.Logging.ErrorInterval)

	// Metadata
	if v := os.Getenv("EVEL_METADATA_ENABLED"); v != "" {
		c.Metadata.Enabled = parseBool(v)
	}
	if v := os.Getenv("EVEL_METADATA_URL"); v != "" {
		c.Metadata.URL = v
	}
	setDuration("EVEL_METADATA_TIMEOUT", &c.Metadata.Timeout)

	// Circuit breaker
	if v := os.Getenv("EVEL_CIRCUIT_ENABLED"); v != "" {
		c.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("EVEL_CIRCUIT_MAX_FAILURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CircuitBreaker.MaxFailures = n
		}
	}
	setDuration("EVEL_CIRCUIT_RECOVERY_TIME", &c.CircuitBreaker.RecoveryTime)

	// Failure journal
	if v := os.Getenv("EVEL_JOURNAL_ENABLED"); v != "" {
		c.FailureJournal.Enabled = parseBool(v)
	}
	if v := os.Getenv("EVEL_REDIS_URL"); v != "" {
		c.FailureJournal.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.FailureJournal.RedisURL = v
	}
	if v := os.Getenv("EVEL_JOURNAL_KEY"); v != "" {
		c.FailureJournal.Key = v
	}
	if v := os.Getenv("EVEL_JOURNAL_MAX_ENTRIES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.FailureJournal.MaxEntries = n
		}
	}
	setDuration("EVEL_JOURNAL_TTL", &c.FailureJournal.TTL)

	return nil
}

// LoadFromFile reads a YAML or JSON configuration file on top of the
// current values. Keys absent from the file keep their current value.
//
// Example YAML:
//
//	collector:
//	  fqdn: collector.example.com
//	  port: 30000
//	  topic: vnf
//	source:
//	  type: virtualMachine
//	  functional_role: vFirewall
//	queue:
//	  capacity: 200
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- operator supplied path
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	}
	return nil
}

// EffectiveLogging returns the logging configuration with Verbosity applied.
func (c *Config) EffectiveLogging() LoggingConfig {
	l := c.Logging
	if c.Verbosity > 0 {
		l.Level = "debug"
	}
	return l
}

// Validate checks if the configuration is valid and returns an error if not.
// This method is called automatically by NewConfig().
func (c *Config) Validate() error {
	if c.Collector.FQDN == "" {
		return &Error{
			Op:      "Config.Validate",
			Message: "collector FQDN is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if c.Collector.Port < 1 || c.Collector.Port > 65535 {
		return &Error{
			Op:      "Config.Validate",
			Message: fmt.Sprintf("invalid port: %d", c.Collector.Port),
			Err:     ErrInvalidConfiguration,
		}
	}
	if c.Collector.Timeout <= 0 {
		return &Error{
			Op:      "Config.Validate",
			Message: fmt.Sprintf("invalid collector timeout: %s", c.Collector.Timeout),
			Err:     ErrInvalidConfiguration,
		}
	}
	if c.Queue.Capacity < 1 {
		return &Error{
			Op:      "Config.Validate",
			Message: fmt.Sprintf("invalid queue capacity: %d", c.Queue.Capacity),
			Err:     ErrInvalidConfiguration,
		}
	}
	if c.Source.FunctionalRole == "" {
		return &Error{
			Op:      "Config.Validate",
			Message: "functional role is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if c.Metadata.Enabled && c.Metadata.URL == "" {
		return &Error{
			Op:      "Config.Validate",
			Message: "metadata URL is required when metadata discovery is enabled",
			Err:     ErrMissingConfiguration,
		}
	}
	if c.FailureJournal.Enabled && c.FailureJournal.RedisURL == "" {
		return &Error{
			Op:      "Config.Validate",
			Message: "redis URL is required when the failure journal is enabled",
			Err:     ErrMissingConfiguration,
		}
	}
	return nil
}

// Helper functions

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// parseBool accepts "true", "1", "yes", "on" (case-insensitive) as true.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Functional Options

// WithCollector sets the collector host and port.
func WithCollector(fqdn string, port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return &Error{
				Op:      "WithCollector",
				Message: fmt.Sprintf("invalid port: %d", port),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Collector.FQDN = fqdn
		c.Collector.Port = port
		return nil
	}
}

// WithPath sets the optional URL path prefix.
func WithPath(path string) Option {
	return func(c *Config) error {
		c.Collector.Path = path
		return nil
	}
}

// WithTopic sets the optional topic appended after the path.
func WithTopic(topic string) Option {
	return func(c *Config) error {
		c.Collector.Topic = topic
		return nil
	}
}

// WithSecure selects HTTPS.
func WithSecure(secure bool) Option {
	return func(c *Config) error {
		c.Collector.Secure = secure
		return nil
	}
}

// WithBasicAuth sets the collector credentials. Empty username disables auth.
func WithBasicAuth(username, password string) Option {
	return func(c *Config) error {
		c.Collector.Username = username
		c.Collector.Password = password
		return nil
	}
}

// WithTimeout bounds each POST to the collector.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return &Error{
				Op:      "WithTimeout",
				Message: fmt.Sprintf("invalid timeout: %s", d),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Collector.Timeout = d
		return nil
	}
}

// WithInsecureSkipVerify disables certificate verification for HTTPS collectors.
// Only useful against test collectors with self-signed certificates.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Config) error {
		c.Collector.InsecureSkipVerify = skip
		return nil
	}
}

// WithSourceType sets the source type name used in fault events.
func WithSourceType(sourceType string) Option {
	return func(c *Config) error {
		c.Source.Type = sourceType
		return nil
	}
}

// WithFunctionalRole sets the role stamped into every event header.
func WithFunctionalRole(role string) Option {
	return func(c *Config) error {
		c.Source.FunctionalRole = role
		return nil
	}
}

// WithReportingEntity overrides the discovered reporting identity.
func WithReportingEntity(id, name string) Option {
	return func(c *Config) error {
		c.Source.ReportingEntityID = id
		c.Source.ReportingEntityName = name
		return nil
	}
}

// WithVerbosity sets the verbosity; any value above zero enables debug logging.
func WithVerbosity(verbosity int) Option {
	return func(c *Config) error {
		c.Verbosity = verbosity
		return nil
	}
}

// WithQueueCapacity sets how many data events may wait for dispatch.
func WithQueueCapacity(capacity int) Option {
	return func(c *Config) error {
		if capacity < 1 {
			return &Error{
				Op:      "WithQueueCapacity",
				Message: fmt.Sprintf("invalid queue capacity: %d", capacity),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Queue.Capacity = capacity
		return nil
	}
}

// WithLogLevel sets the logging level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the logging format (json or text).
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithLogOutput redirects log lines, mostly for tests.
func WithLogOutput(w io.Writer) Option {
	return func(c *Config) error {
		c.Logging.Output = w
		return nil
	}
}

// WithMetadataService enables identity discovery from the given metadata URL.
// An empty URL selects DefaultMetadataURL.
func WithMetadataService(url string) Option {
	return func(c *Config) error {
		if url == "" {
			url = DefaultMetadataURL
		}
		c.Metadata.Enabled = true
		c.Metadata.URL = url
		return nil
	}
}

// WithCircuitBreaker enables the collector circuit breaker.
func WithCircuitBreaker(maxFailures int, recovery time.Duration) Option {
	return func(c *Config) error {
		c.CircuitBreaker.Enabled = true
		c.CircuitBreaker.MaxFailures = maxFailures
		c.CircuitBreaker.RecoveryTime = recovery
		return nil
	}
}

// WithFailureJournal records undeliverable events in Redis.
func WithFailureJournal(redisURL string) Option {
	return func(c *Config) error {
		c.FailureJournal.Enabled = true
		c.FailureJournal.RedisURL = redisURL
		return nil
	}
}

// WithTerminateGrace sets the drain period used by Shutdown callers.
func WithTerminateGrace(d time.Duration) Option {
	return func(c *Config) error {
		c.TerminateGrace = d
		return nil
	}
}

// WithConfigFile loads configuration from a YAML or JSON file.
// Options listed after it override file settings.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// NewConfig creates a new configuration with the provided options.
// Configuration is applied in the following order:
//  1. Default values from DefaultConfig()
//  2. Environment variables via LoadFromEnv()
//  3. Functional options (highest priority)
//  4. Validation via Validate()
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
