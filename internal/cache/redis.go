package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sociallink/backend/pkg/config"
	"github.com/sociallink/backend/pkg/logging"
	"github.com/sociallink/backend/pkg/telemetry"
)

var (
	// ErrUnavailable is returned when a cache command fails. The cause is logged,
	// callers only learn that the mutation did not happen.
	ErrUnavailable = errors.New("server error. try again")

	// ErrNotFound is returned when an operation needs an entry that is not cached
	ErrNotFound = errors.New("not found in cache")
)

// Key layout
const (
	userIndexKey = "user"
	postIndexKey = "post"
)

func userKey(id string) string     { return "users:" + id }
func postKey(id string) string     { return "posts:" + id }
func commentsKey(id string) string { return "comments:" + id }
func reactionsKey(id string) string {
	return "reactions:" + id
}

// Cache wraps Redis client
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// New creates a new Redis cache client
func New(cfg *config.RedisConfig) (*Cache, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return NewWithClient(client), nil
}

// NewWithClient wraps an existing Redis client
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		logger: logging.WithComponent("cache"),
	}
}

// named returns a copy of c logging under the given component name
func (c *Cache) named(component string) *Cache {
	return &Cache{
		client: c.client,
		logger: logging.WithComponent(component),
	}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Health checks Redis health
func (c *Cache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrUnavailable
	}
	return c.client.Ping(ctx).Err()
}

// fail logs a Redis failure and converts it to ErrUnavailable. Decode errors and
// ErrNotFound pass through unchanged.
func (c *Cache) fail(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var dErr *DecodeError
	if errors.As(err, &dErr) {
		c.logger.Error("Corrupt cache entry", zap.String("op", op), zap.Error(err))
		return err
	}
	c.logger.Error("Cache command failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, ErrUnavailable)
}

func (c *Cache) span(ctx context.Context, op string) (context.Context, func()) {
	ctx, span := telemetry.StartSpan(ctx, "cache."+op)
	return ctx, func() { span.End() }
}

// watch runs fn in an optimistic transaction over keys, retrying when another
// client modified a watched key
func (c *Cache) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	const maxAttempts = 10

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := c.client.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		c.logger.Debug("Watched key changed, retrying", zap.Strings("keys", keys), zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("transaction on %v did not settle after %d attempts", keys, maxAttempts)
}
