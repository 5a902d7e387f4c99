package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProductionLogger writes structured log lines for the library.
// Text format is meant for a terminal, JSON for log aggregation.
// Error lines are rate limited so a dead collector cannot flood the output.
type ProductionLogger struct {
	level       string
	serviceName string
	component   string
	format      string
	output      io.Writer
	mu          sync.RWMutex

	errorLimiter *RateLimiter
}

var levelRank = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// NewProductionLogger creates a logger from the logging configuration.
// Configuration priority:
//  1. LoggingConfig values (set by defaults, env, file or options)
//  2. Auto-detection (JSON when running under Kubernetes and no format is set)
func NewProductionLogger(cfg LoggingConfig, serviceName, component string) *ProductionLogger {
	level := strings.ToUpper(cfg.Level)
	if _, ok := levelRank[level]; !ok {
		level = "INFO"
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "text"
		if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
			format = "json"
		}
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	return &ProductionLogger{
		level:        level,
		serviceName:  serviceName,
		component:    component,
		format:       format,
		output:       output,
		errorLimiter: NewRateLimiter(cfg.ErrorInterval),
	}
}

// WithComponent returns a logger sharing output and level but tagged with
// a different component name.
func (l *ProductionLogger) WithComponent(component string) *ProductionLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &ProductionLogger{
		level:        l.level,
		serviceName:  l.serviceName,
		component:    component,
		format:       l.format,
		output:       l.output,
		errorLimiter: l.errorLimiter,
	}
}

// Info logs informational messages
func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

// Warn logs warning messages
func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

// Error logs error messages with rate limiting
func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	if !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

// Debug logs debug messages
func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *ProductionLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if levelRank[level] < levelRank[l.level] {
		return
	}

	timestamp := time.Now().Format(time.RFC3339)
	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
	} else {
		l.logText(timestamp, level, msg, fields)
	}
}

func (l *ProductionLogger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"service":   l.serviceName,
		"component": l.component,
		"message":   msg,
	}
	for k, v := range fields {
		if _, reserved := entry[k]; reserved {
			continue
		}
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}

	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

// logText renders "error", "action" and "impact" first, then the remaining
// fields in key order so lines are stable across runs.
func (l *ProductionLogger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	leading := []string{"error", "action", "impact"}
	for _, k := range leading {
		if v, ok := fields[k]; ok {
			fmt.Fprintf(&b, " %s=%q", k, fmt.Sprint(v))
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "error" || k == "action" || k == "impact" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}

	fmt.Fprintf(l.output, "%s [%s] [%s:%s] %s%s\n",
		timestamp, level, l.component, l.serviceName, msg, b.String())
}

// SetLevel dynamically updates the log level. Unknown levels are ignored.
func (l *ProductionLogger) SetLevel(level string) {
	level = strings.ToUpper(level)
	if _, ok := levelRank[level]; !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the active level name.
func (l *ProductionLogger) Level() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetFormat dynamically updates the log format
func (l *ProductionLogger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = strings.ToLower(format)
}

// SetOutput changes the output writer (useful for testing)
func (l *ProductionLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}
