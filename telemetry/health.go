package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Health states reported by Engine.Health.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// Journal states reported by Engine.Health.
const (
	JournalOK          = "ok"
	JournalUnreachable = "unreachable"
)

const journalCheckTimeout = time.Second

// journalChecker is implemented by journals that can report on their backend.
type journalChecker interface {
	Ping(ctx context.Context) error
	Len(ctx context.Context) (int64, error)
}

// Health represents the health status of the event handler
type Health struct {
	Status        string `json:"status"`
	State         string `json:"state"`
	EngineID      string `json:"engine_id,omitempty"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Accepted      uint64 `json:"accepted"`
	Rejected      uint64 `json:"rejected"`
	Delivered     uint64 `json:"delivered"`
	Failed        uint64 `json:"failed"`
	LastError     string `json:"last_error,omitempty"`
	CircuitState  string `json:"circuit_state"`
	Uptime        string `json:"uptime,omitempty"`

	// Set only when a failure journal is configured.
	Journal        string `json:"journal,omitempty"`
	JournalEntries int64  `json:"journal_entries,omitempty"`
}

// Health summarizes the engine. An engine that is not ACTIVE is unhealthy;
// an ACTIVE one with an open circuit, a full queue or an unreachable
// failure journal is degraded.
func (e *Engine) Health() Health {
	if e == nil {
		return Health{Status: HealthUnhealthy, State: StateUninitialized.String(), CircuitState: CircuitDisabled}
	}

	s := e.Stats()
	_, lastErr := e.LastError()
	h := Health{
		State:         s.State.String(),
		EngineID:      e.id,
		QueueDepth:    s.QueueDepth,
		QueueCapacity: s.QueueCapacity,
		Accepted:      s.Accepted,
		Rejected:      s.Rejected,
		Delivered:     s.Delivered,
		Failed:        s.Failed,
		LastError:     lastErr,
		CircuitState:  s.Circuit,
		Uptime:        time.Since(e.started).Round(time.Second).String(),
	}

	if jc, ok := e.journal.(journalChecker); ok && s.State == StateActive {
		h.Journal, h.JournalEntries = checkJournal(jc)
	}

	switch {
	case s.State != StateActive:
		h.Status = HealthUnhealthy
	case s.Circuit == CircuitOpen || s.QueueDepth >= s.QueueCapacity || h.Journal == JournalUnreachable:
		h.Status = HealthDegraded
	default:
		h.Status = HealthHealthy
	}
	return h
}

func checkJournal(p journalChecker) (string, int64) {
	ctx, cancel := context.WithTimeout(context.Background(), journalCheckTimeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return JournalUnreachable, 0
	}
	n, err := p.Len(ctx)
	if err != nil {
		return JournalUnreachable, 0
	}
	return JournalOK, n
}

// HealthHandler serves e.Health as JSON: 200 when healthy, 206 when
// degraded, 503 otherwise. A nil engine reports 503.
func HealthHandler(e *Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := e.Health()
		w.Header().Set("Content-Type", "application/json")

		switch health.Status {
		case HealthHealthy:
			w.WriteHeader(http.StatusOK)
		case HealthDegraded:
			w.WriteHeader(http.StatusPartialContent)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}
