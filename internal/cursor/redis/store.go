// Package redis keeps the rotation cursor under a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/cursor"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

// DefaultKey is the Redis key used when none is configured.
const DefaultKey = "scraper:keyword_state"

type client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// Store reads and overwrites the cursor key.
type Store struct {
	rdb   client
	key   string
	close func() error
}

// New connects to redisURL and verifies the connection with PING.
func New(ctx context.Context, redisURL, key string) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	s := NewWithClient(rdb, key)
	s.close = rdb.Close
	return s, nil
}

// NewWithClient builds a Store over an existing client.
func NewWithClient(c client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{rdb: c, key: key, close: func() error { return nil }}
}

// Read loads the cursor. A missing key yields scraper.ErrNoState.
func (s *Store) Read(ctx context.Context) (scraper.KeywordState, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return scraper.KeywordState{}, scraper.ErrNoState
		}
		return scraper.KeywordState{}, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return cursor.Decode(data)
}

// Write stores the cursor without expiry.
func (s *Store) Write(ctx context.Context, state scraper.KeywordState) error {
	data, err := cursor.Encode(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Close releases the connection opened by New.
func (s *Store) Close() error {
	return s.close()
}
