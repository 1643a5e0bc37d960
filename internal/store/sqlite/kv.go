// Package sqlite is the default on-disk store.KV, a single kv table in a
// local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/store"

	_ "modernc.org/sqlite"
)

const backend = "sqlite"

type KV struct {
	db *sql.DB
}

var _ store.KV = (*KV)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" is accepted for tests.
func Open(ctx context.Context, dbPath string) (*KV, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer connection serialises transactions and keeps ":memory:"
	// pointing at a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if err := NewMigrator(db).Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &KV{db: db}, nil
}

func (k *KV) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer func(start time.Time) { store.Observe(backend, "get", start, err) }(time.Now())

	var v []byte
	err = k.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (k *KV) SetMany(ctx context.Context, entries map[string][]byte) (err error) {
	defer func(start time.Time) { store.Observe(backend, "set", start, err) }(time.Now())

	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for key, v := range entries {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, v, now); err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, keys ...string) (err error) {
	defer func(start time.Time) { store.Observe(backend, "delete", start, err) }(time.Now())

	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err = tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (k *KV) Clear(ctx context.Context) (err error) {
	defer func(start time.Time) { store.Observe(backend, "clear", start, err) }(time.Now())

	if _, err = k.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear kv: %w", err)
	}
	return nil
}

func (k *KV) Close() error {
	return k.db.Close()
}

// Stats exposes the pool statistics of the underlying database.
func (k *KV) Stats() sql.DBStats {
	return k.db.Stats()
}
