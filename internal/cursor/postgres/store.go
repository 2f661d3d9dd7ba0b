// Package postgres keeps the rotation cursor in a Postgres table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultTable = "keyword_state"
	defaultKey   = "default"
)

// Config controls the connection pool and the row the cursor lives in.
type Config struct {
	DSN             string
	Table           string
	Key             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store reads and upserts a single cursor row keyed by Key.
type Store struct {
	pool  pool
	table string
	key   string
}

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("cursor.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewWithPool(p, cfg.Table, cfg.Key)
	if err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool builds a Store over an existing pool.
func NewWithPool(p pool, table, key string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if key == "" {
		key = defaultKey
	}
	return &Store{pool: p, table: table, key: key}, nil
}

// EnsureSchema creates the cursor table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			last_keyword_index INTEGER NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL
		);`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Read returns the cursor row, or scraper.ErrNoState when there is none.
func (s *Store) Read(ctx context.Context) (scraper.KeywordState, error) {
	query := fmt.Sprintf(`SELECT last_keyword_index, saved_at FROM %s WHERE key = $1`, s.table)
	var state scraper.KeywordState
	err := s.pool.QueryRow(ctx, query, s.key).Scan(&state.LastKeywordIndex, &state.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scraper.KeywordState{}, scraper.ErrNoState
		}
		return scraper.KeywordState{}, fmt.Errorf("select keyword state: %w", err)
	}
	return state, nil
}

// Write upserts the cursor row.
func (s *Store) Write(ctx context.Context, state scraper.KeywordState) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, last_keyword_index, saved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET last_keyword_index = EXCLUDED.last_keyword_index,
			saved_at = EXCLUDED.saved_at;`, s.table)
	if _, err := s.pool.Exec(ctx, query, s.key, state.LastKeywordIndex, state.SavedAt); err != nil {
		return fmt.Errorf("upsert keyword state: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
