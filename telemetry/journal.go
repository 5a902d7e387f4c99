package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itsneelabh/evel/core"
)

// FailedEvent is the journal record of one undeliverable event.
type FailedEvent struct {
	Sequence int64     `json:"sequence"`
	Domain   string    `json:"domain"`
	Reason   string    `json:"reason"`
	Status   int       `json:"status,omitempty"`
	Error    string    `json:"error"`
	Body     string    `json:"body,omitempty"`
	Time     time.Time `json:"time"`
}

// FailureJournal records events the worker gave up on. Journaled events are
// kept for inspection only; nothing re-sends them.
type FailureJournal interface {
	Record(ctx context.Context, failed FailedEvent) error
	Close() error
}

// RedisJournal keeps the most recent failures in a capped Redis list.
type RedisJournal struct {
	client     *core.RedisClient
	key        string
	maxEntries int64
	ttl        time.Duration
}

// NewRedisJournal connects to the configured Redis instance.
// It returns nil, nil when the journal is disabled.
func NewRedisJournal(cfg core.FailureJournalConfig, logger core.Logger) (*RedisJournal, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:  cfg.RedisURL,
		DB:        cfg.DB,
		Namespace: "evel",
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return NewRedisJournalWithClient(client, cfg), nil
}

// NewRedisJournalWithClient wraps an existing client.
func NewRedisJournalWithClient(client *core.RedisClient, cfg core.FailureJournalConfig) *RedisJournal {
	key := cfg.Key
	if key == "" {
		key = "failed"
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &RedisJournal{client: client, key: key, maxEntries: maxEntries, ttl: cfg.TTL}
}

// Record pushes failed to the head of the list.
func (j *RedisJournal) Record(ctx context.Context, failed FailedEvent) error {
	data, err := json.Marshal(failed)
	if err != nil {
		return core.Errorf("telemetry.Journal", core.ErrBadJSONFormat, "encoding failure record: %v", err)
	}
	return j.client.PushCapped(ctx, j.key, data, j.maxEntries, j.ttl)
}

// Recent returns up to n records, newest first.
func (j *RedisJournal) Recent(ctx context.Context, n int64) ([]FailedEvent, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := j.client.Range(ctx, j.key, 0, n-1)
	if err != nil {
		return nil, err
	}
	out := make([]FailedEvent, 0, len(raw))
	for _, r := range raw {
		var fe FailedEvent
		if err := json.Unmarshal([]byte(r), &fe); err != nil {
			continue
		}
		out = append(out, fe)
	}
	return out, nil
}

// Len is the number of records currently kept.
func (j *RedisJournal) Len(ctx context.Context) (int64, error) {
	return j.client.Len(ctx, j.key)
}

// Ping checks that Redis is reachable.
func (j *RedisJournal) Ping(ctx context.Context) error {
	return j.client.HealthCheck(ctx)
}

// Close closes the Redis connection.
func (j *RedisJournal) Close() error {
	return j.client.Close()
}
