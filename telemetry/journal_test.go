package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/evel/core"
)

func newTestJournal(t *testing.T, maxEntries int64) (*RedisJournal, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	j, err := NewRedisJournal(core.FailureJournalConfig{
		Enabled:    true,
		RedisURL:   "redis://" + mr.Addr(),
		Key:        "failed",
		MaxEntries: maxEntries,
		TTL:        time.Hour,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, j)
	return j, mr
}

func TestNewRedisJournalDisabled(t *testing.T) {
	j, err := NewRedisJournal(core.FailureJournalConfig{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, j)
}

func TestNewRedisJournalBadURL(t *testing.T) {
	_, err := NewRedisJournal(core.FailureJournalConfig{Enabled: true, RedisURL: "not a url"}, nil)
	assert.True(t, core.IsConfigurationError(err))
}

func TestRedisJournalRecordAndRecent(t *testing.T) {
	j, mr := newTestJournal(t, 2)
	defer j.Close()
	ctx := context.Background()

	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, j.Record(ctx, FailedEvent{
			Sequence: seq,
			Domain:   "heartbeat",
			Reason:   reasonStatus,
			Status:   503,
			Error:    "collector returned 503",
			Time:     time.Now().UTC(),
		}))
	}

	recent, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2, "list is capped")
	assert.Equal(t, int64(3), recent[0].Sequence)
	assert.Equal(t, int64(2), recent[1].Sequence)
	assert.Equal(t, 503, recent[0].Status)

	n, err := j.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, j.Ping(ctx))

	assert.True(t, mr.Exists("evel:failed"))
	assert.Equal(t, time.Hour, mr.TTL("evel:failed"))

	none, err := j.Recent(ctx, 0)
	assert.NoError(t, err)
	assert.Empty(t, none)
}
