// Package redisfeed keeps a capped list of recent audit entries in Redis,
// newest first.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"programhub/internal/core"
)

const (
	// DefaultKey is the Redis list holding the feed.
	DefaultKey = "programhub:activity"
	// DefaultLimit caps the list length.
	DefaultLimit = 500
)

const writeTimeout = 2 * time.Second

// Client is the subset of redis.Cmdable the feed uses.
type Client interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// Feed implements core.AuditRecorder.
type Feed struct {
	client Client
	key    string
	limit  int64
	logger *zap.Logger
}

// Options configures a Feed. Zero values select the defaults.
type Options struct {
	Key    string
	Limit  int
	Logger *zap.Logger
}

// New wraps client.
func New(client Client, opts Options) *Feed {
	f := &Feed{client: client, key: opts.Key, limit: int64(opts.Limit), logger: opts.Logger}
	if f.key == "" {
		f.key = DefaultKey
	}
	if f.limit <= 0 {
		f.limit = DefaultLimit
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Dial connects to a Redis server and verifies it answers PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// Record pushes entry and trims the list. Failures are logged.
func (f *Feed) Record(ctx context.Context, entry core.AuditEntry) {
	if err := f.Push(ctx, entry); err != nil {
		f.logger.Warn("push activity", zap.String("key", f.key), zap.Error(err))
	}
}

// Push writes entry and returns the Redis error, if any.
func (f *Feed) Push(ctx context.Context, entry core.AuditEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := f.client.LPush(ctx, f.key, raw).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", f.key, err)
	}
	if err := f.client.LTrim(ctx, f.key, 0, f.limit-1).Err(); err != nil {
		return fmt.Errorf("ltrim %s: %w", f.key, err)
	}
	return nil
}

// Recent returns up to n entries, newest first. Undecodable items are skipped.
func (f *Feed) Recent(ctx context.Context, n int) ([]core.AuditEntry, error) {
	if n <= 0 || int64(n) > f.limit {
		n = int(f.limit)
	}
	items, err := f.client.LRange(ctx, f.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", f.key, err)
	}
	out := make([]core.AuditEntry, 0, len(items))
	for _, item := range items {
		var entry core.AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			f.logger.Debug("skip undecodable activity", zap.Error(err))
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
