package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrKeyNotFound = errors.New("key not found")

// IdentityRepository is the device-local key-value store that keeps who this client is.
type IdentityRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type dbIdentity struct {
	conn *sql.DB
}

func NewIdentityRepository(conn *sql.DB) IdentityRepository {
	return &dbIdentity{
		conn: conn,
	}
}

func (that *dbIdentity) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM kv WHERE key = ?`

	var value string

	err := that.conn.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("can't get %s: %w", key, err)
	}

	return value, nil
}

func (that *dbIdentity) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := that.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("can't set %s: %w", key, err)
	}

	return nil
}
