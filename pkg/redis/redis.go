package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// StreamMessage represents a message in Redis Stream
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

type RedisAdapter interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SAdd(ctx context.Context, key string, ttl time.Duration, value ...interface{}) error
	Client() goredis.UniversalClient

	XAdd(ctx context.Context, key string, maxLen int64, values map[string]interface{}) (string, error)
	XRange(ctx context.Context, key string, start, stop string) ([]StreamMessage, error)
	XLen(ctx context.Context, key string) (int64, error)
}

type redisAdapter struct {
	prefix   string
	Conn     goredis.UniversalClient
	ConnName string
}

var redisLock = &sync.RWMutex{}
var redisInstance map[string]RedisAdapter

// NewRedisAdapter returns the adapter registered under connName, connecting
// and pinging the server on first use.
func NewRedisAdapter(connName string, keysPrefix string, opts *goredis.UniversalOptions) (RedisAdapter, error) {
	redisLock.RLock()
	if adapter, ok := redisInstance[connName]; ok {
		redisLock.RUnlock()
		return adapter, nil
	}
	redisLock.RUnlock()

	c := goredis.NewUniversalClient(opts)
	if cmd := c.Ping(context.Background()); cmd.Err() != nil {
		_ = c.Close()
		return nil, cmd.Err()
	}

	adapter := &redisAdapter{
		Conn:     c,
		prefix:   keysPrefix,
		ConnName: connName,
	}

	redisLock.Lock()
	defer redisLock.Unlock()
	if redisInstance == nil {
		redisInstance = make(map[string]RedisAdapter)
	}
	if existing, ok := redisInstance[connName]; ok {
		_ = c.Close()
		return existing, nil
	}
	redisInstance[connName] = adapter

	return adapter, nil
}

// Forget drops a named adapter from the registry and closes its client.
func Forget(connName string) {
	redisLock.Lock()
	defer redisLock.Unlock()
	if adapter, ok := redisInstance[connName]; ok {
		_ = adapter.Client().Close()
		delete(redisInstance, connName)
	}
}

func (r *redisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.Conn.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *redisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	st := r.Conn.Get(ctx, r.prefix+key)
	if err := st.Err(); err != nil {
		return nil, err
	}
	return st.Bytes()
}

func (r *redisAdapter) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.prefix + k
	}
	return r.Conn.Del(ctx, prefixed...).Err()
}

func (r *redisAdapter) SMembers(ctx context.Context, key string) ([]string, error) {
	st := r.Conn.SMembers(ctx, r.prefix+key)
	if st.Err() != nil {
		return nil, st.Err()
	}
	return st.Val(), nil
}

// SAdd adds members to a set and refreshes its expiry when ttl > 0.
func (r *redisAdapter) SAdd(ctx context.Context, key string, ttl time.Duration, value ...interface{}) error {
	_, err := r.Conn.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, r.prefix+key, value...)
		if ttl > 0 {
			p.Expire(ctx, r.prefix+key, ttl)
		}
		return nil
	})
	return err
}

func (r *redisAdapter) Client() goredis.UniversalClient {
	return r.Conn
}

// XAdd appends to a stream, trimming it approximately to maxLen when maxLen > 0.
func (r *redisAdapter) XAdd(ctx context.Context, key string, maxLen int64, values map[string]interface{}) (string, error) {
	args := &goredis.XAddArgs{
		Stream: r.prefix + key,
		ID:     "*",
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	cmd := r.Conn.XAdd(ctx, args)
	if cmd.Err() != nil {
		return "", cmd.Err()
	}
	return cmd.Val(), nil
}

func (r *redisAdapter) XRange(ctx context.Context, key string, start, stop string) ([]StreamMessage, error) {
	cmd := r.Conn.XRange(ctx, r.prefix+key, start, stop)
	if cmd.Err() != nil {
		return nil, cmd.Err()
	}
	messages := make([]StreamMessage, 0, len(cmd.Val()))
	for _, msg := range cmd.Val() {
		messages = append(messages, StreamMessage{
			ID:     msg.ID,
			Values: msg.Values,
		})
	}
	return messages, nil
}

func (r *redisAdapter) XLen(ctx context.Context, key string) (int64, error) {
	cmd := r.Conn.XLen(ctx, r.prefix+key)
	if cmd.Err() != nil {
		return 0, cmd.Err()
	}
	return cmd.Val(), nil
}
