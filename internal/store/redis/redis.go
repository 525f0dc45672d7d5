package redis

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vovakirdan/chatnuff/internal/store"
)

// Options holds the connection settings for Dial.
type Options struct {
	Host     string
	Port     int
	DB       int
	Username string
	Password string
	UseTLS   bool
	Timeout  time.Duration
}

// Addr returns host:port.
func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// infoKeys are the INFO fields reported by Describe.
var infoKeys = []string{"redis_version", "uptime_in_days", "used_memory_human", "connected_clients"}

// RedisStore implements store.Backend on redis lists.
type RedisStore struct {
	client goredis.UniversalClient
}

// New wraps an existing client.
func New(client goredis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Dial connects to redis and checks liveness with PING.
// The timeout bounds dialing, every read/write and the initial ping.
func Dial(ctx context.Context, opts Options) (*RedisStore, error) {
	clientOpts := &goredis.Options{
		Addr:         opts.Addr(),
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
		// Failed calls surface to the caller; retry policy belongs to the orchestration layer.
		MaxRetries: -1,
	}
	if opts.UseTLS {
		clientOpts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: opts.Host,
		}
	}

	client := goredis.NewClient(clientOpts)

	pingCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr(), store.ClassifyDialError(err))
	}

	return &RedisStore{client: client}, nil
}

// PushFrontTrim runs LPUSH, LTRIM and LLEN inside MULTI/EXEC.
func (s *RedisStore) PushFrontTrim(ctx context.Context, key string, value []byte, keep int) (int64, error) {
	var llen *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		pipe.LTrim(ctx, key, 0, int64(keep-1))
		llen = pipe.LLen(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("push to list %q: %w", key, err)
	}
	return llen.Val(), nil
}

// Range returns LRANGE key start stop.
func (s *RedisStore) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if stop < 0 {
		stop = -1
	}
	values, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("range list %q: %w", key, err)
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out, nil
}

// Length returns LLEN key.
func (s *RedisStore) Length(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("length of list %q: %w", key, err)
	}
	return n, nil
}

// Exists reports whether EXISTS key is non-zero.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", key, err)
	}
	return n != 0, nil
}

// Ping checks liveness.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Describe returns a condensed view of INFO.
func (s *RedisStore) Describe(ctx context.Context) (map[string]string, error) {
	raw, err := s.client.Info(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("redis info: %w", err)
	}
	return parseInfo(raw, infoKeys), nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func parseInfo(raw string, keys []string) map[string]string {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	out := make(map[string]string, len(keys))
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if _, ok := wanted[name]; ok {
			out[name] = value
		}
	}
	return out
}
