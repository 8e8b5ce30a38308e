package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

var _ engine.Store = (*SQLiteStore)(nil)

// SQLiteStore persists the engine regions in an embedded SQLite database.
type SQLiteStore struct{ db *sql.DB }

// Open opens (or creates) the SQLite database at the given path,
// applies PRAGMAs, runs SQL migrations, and returns the store.
func Open(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), config.DirPermUserRWX); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
		}
	}

	db, err := sql.Open(config.DriverSQLite, dbPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}

	// SQLite is a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrPragmas, err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrMigrations, err)
	}

	slog.Debug(config.MsgStoreOpened,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyPath, dbPath)
	return &SQLiteStore{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// get decodes a region into out. It reports false when the region is absent.
func (s *SQLiteStore) get(ctx context.Context, region string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM regions WHERE name = ?`, region).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", config.ErrStoreRead, region, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("%s %s: %w", config.ErrStoreRead, region, err)
	}
	return true, nil
}

// put replaces a region with a single statement, so readers never see a partial value.
func (s *SQLiteStore) put(ctx context.Context, region string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s %s: %w", config.ErrStoreWrite, region, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO regions (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at`,
		region, string(raw), time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%s %s: %w", config.ErrStoreWrite, region, err)
	}
	return nil
}

func (s *SQLiteStore) remove(ctx context.Context, region string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM regions WHERE name = ?`, region); err != nil {
		return fmt.Errorf("%s %s: %w", config.ErrStoreWrite, region, err)
	}
	return nil
}

func (s *SQLiteStore) LoadCache(ctx context.Context) (engine.CacheSnapshot, error) {
	var snap engine.CacheSnapshot
	if _, err := s.get(ctx, config.RegionCache, &snap); err != nil {
		return engine.CacheSnapshot{}, err
	}
	return snap, nil
}

func (s *SQLiteStore) SaveCache(ctx context.Context, snap engine.CacheSnapshot) error {
	return s.put(ctx, config.RegionCache, snap)
}

func (s *SQLiteStore) LoadRetryUntil(ctx context.Context) (time.Time, bool, error) {
	var until time.Time
	ok, err := s.get(ctx, config.RegionRetryUntil, &until)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return until, true, nil
}

func (s *SQLiteStore) SaveRetryUntil(ctx context.Context, until time.Time) error {
	return s.put(ctx, config.RegionRetryUntil, until)
}

func (s *SQLiteStore) ClearRetryUntil(ctx context.Context) error {
	return s.remove(ctx, config.RegionRetryUntil)
}

func (s *SQLiteStore) LoadLastState(ctx context.Context) (*engine.LastState, error) {
	var st engine.LastState
	ok, err := s.get(ctx, config.RegionLastState, &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) SaveLastState(ctx context.Context, st engine.LastState) error {
	return s.put(ctx, config.RegionLastState, st)
}

func (s *SQLiteStore) LoadLastFired(ctx context.Context) (string, error) {
	var key string
	if _, err := s.get(ctx, config.RegionLastFiredKey, &key); err != nil {
		return "", err
	}
	return key, nil
}

func (s *SQLiteStore) SaveLastFired(ctx context.Context, key string) error {
	return s.put(ctx, config.RegionLastFiredKey, key)
}
