package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient wraps go-redis with key namespacing. The dispatch engine uses
// it to keep a bounded journal of events the collector never accepted.
type RedisClient struct {
	client    *redis.Client
	dbID      int
	namespace string
	logger    Logger
}

// RedisClientOptions configures the Redis client
type RedisClientOptions struct {
	RedisURL    string
	DB          int    // Redis DB number, applied when within 0-15
	Namespace   string // Key namespace for organization
	Logger      Logger // Optional logger
	PingTimeout time.Duration
}

// NewRedisClient connects and pings the server before returning.
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	logger := LoggerOrNoOp(opts.Logger)

	if opts.RedisURL == "" {
		logger.Error("Failed to initialize Redis client", map[string]interface{}{
			"error": "Redis URL is required",
		})
		return nil, fmt.Errorf("redis URL is required: %w", ErrMissingConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":     err,
			"redis_url": opts.RedisURL,
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	if opts.DB >= 0 && opts.DB <= 15 {
		redisOpt.DB = opts.DB
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":     err,
			"db":        redisOpt.DB,
			"namespace": opts.Namespace,
		})
		return nil, &Error{
			Op:      "NewRedisClient",
			Message: fmt.Sprintf("failed to connect to Redis DB %d: %v", redisOpt.DB, err),
			Err:     ErrTransportFailure,
		}
	}

	logger.Info("Redis client connected", map[string]interface{}{
		"db":        redisOpt.DB,
		"namespace": opts.Namespace,
	})

	return &RedisClient{
		client:    client,
		dbID:      redisOpt.DB,
		namespace: opts.Namespace,
		logger:    logger,
	}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	err := r.client.Close()
	if err != nil {
		r.logger.Error("Failed to close Redis client", map[string]interface{}{
			"error":     err,
			"namespace": r.namespace,
		})
	}
	return err
}

// GetDB returns the DB number being used
func (r *RedisClient) GetDB() int {
	return r.dbID
}

// GetNamespace returns the namespace being used
func (r *RedisClient) GetNamespace() string {
	return r.namespace
}

func (r *RedisClient) formatKey(key string) string {
	if r.namespace != "" {
		return fmt.Sprintf("%s:%s", r.namespace, key)
	}
	return key
}

// PushCapped prepends value to the list at key, trims the list to maxLen
// entries and refreshes its TTL, all in one pipeline. maxLen <= 0 keeps
// every entry and ttl <= 0 leaves the key without expiry.
func (r *RedisClient) PushCapped(ctx context.Context, key string, value interface{}, maxLen int64, ttl time.Duration) error {
	k := r.formatKey(key)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, k, value)
	if maxLen > 0 {
		pipe.LTrim(ctx, k, 0, maxLen-1)
	}
	if ttl > 0 {
		pipe.Expire(ctx, k, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Range returns list entries newest first, inclusive of both indices.
func (r *RedisClient) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, r.formatKey(key), start, stop).Result()
}

// Len returns the list length at key.
func (r *RedisClient) Len(ctx context.Context, key string) (int64, error) {
	return r.client.LLen(ctx, r.formatKey(key)).Result()
}

// HealthCheck verifies Redis connectivity
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	err := r.client.Ping(ctx).Err()
	if err != nil {
		r.logger.Error("Redis health check failed", map[string]interface{}{
			"error":     err,
			"db":        r.dbID,
			"namespace": r.namespace,
		})
	}
	return err
}
