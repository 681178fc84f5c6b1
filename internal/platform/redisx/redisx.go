// Package redisx wires a short-TTL cache in front of the Query/Projection
// Service's read views, the same role Redis plays for the teacher's SSE bus
// and session caches.
package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-backend/internal/platform/envutil"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// Client wraps go-redis for JSON-valued view caching. A nil *Client is a
// valid no-op cache so callers never need to branch on whether Redis is
// configured.
type Client struct {
	rdb *goredis.Client
	log *logger.Logger
}

// NewFromEnv connects to Redis if REDIS_ADDR is set; otherwise it returns a
// nil *Client and no error, matching the teacher's "optional on API" wiring
// for its SSE bus.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	addr := strings.TrimSpace(envutil.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb, log: log.With("component", "redisx.Client")}, nil
}

// GetJSON unmarshals a cached value into dest. Returns false on any miss or
// error (including a nil receiver), so callers always fall back to the DB.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("bad cached view payload, ignoring", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON caches a value with a TTL. Failures are logged, not returned — the
// cache is strictly an optimization and never gates correctness.
func (c *Client) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		c.log.Warn("failed to marshal view for cache", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn("failed to write view cache", "key", key, "error", err)
	}
}

// Invalidate deletes one or more keys. Used on any TaskExecution/Application
// write that could change a cached view's contents.
func (c *Client) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("failed to invalidate view cache", "keys", keys, "error", err)
	}
}

// MyTasksKey/HistoryTasksKey key the two paginated views on the axes the
// spec names: viewer identity plus the project scope of the request.
func MyTasksKey(jobNumber string, orgPosition int64, projectID int64) string {
	return fmt.Sprintf("query:mytasks:%s:%d:%d", jobNumber, orgPosition, projectID)
}

func HistoryTasksKey(jobNumber string, projectID int64, page, pageSize int) string {
	return fmt.Sprintf("query:history:%s:%d:%d:%d", jobNumber, projectID, page, pageSize)
}
