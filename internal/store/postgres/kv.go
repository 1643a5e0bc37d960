package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/store"
	"github.com/lib/pq"
)

const backend = "postgres"

// KV stores entries in the wallet_kv table. The DB is shared so several
// engines can point at one database with distinct key prefixes.
type KV struct {
	db     *DB
	prefix string
}

var _ store.KV = (*KV)(nil)

func NewKV(db *DB, prefix string) *KV {
	return &KV{db: db, prefix: prefix}
}

func (k *KV) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer func(start time.Time) { store.Observe(backend, "get", start, err) }(time.Now())
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var v []byte
	err = k.db.QueryRowContext(ctx, `SELECT value FROM wallet_kv WHERE key = $1`, k.prefix+key).Scan(&v)
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

	for key, v := range entries {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_kv (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		`, k.prefix+key, v); err != nil {
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
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = k.prefix + key
	}
	if _, err = k.db.ExecContext(ctx, `DELETE FROM wallet_kv WHERE key = ANY($1)`, pq.Array(full)); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Clear removes only the keys under this KV's prefix.
func (k *KV) Clear(ctx context.Context) (err error) {
	defer func(start time.Time) { store.Observe(backend, "clear", start, err) }(time.Now())
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if _, err = k.db.ExecContext(ctx, `DELETE FROM wallet_kv WHERE starts_with(key, $1)`, k.prefix); err != nil {
		return fmt.Errorf("clear kv: %w", err)
	}
	return nil
}

// Close is a no-op; the owner of the DB closes it.
func (k *KV) Close() error { return nil }
