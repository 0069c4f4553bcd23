package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// KVStore is the durable key-value storage the state stores persist into.
// Get reports found=false with a nil error for a missing key, and Delete
// of a missing key is not an error.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SQLiteKVRepository keeps records in the kv_store table
type SQLiteKVRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteKVRepository(db *sql.DB, logger *zap.Logger) *SQLiteKVRepository {
	return &SQLiteKVRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the value stored under key
func (r *SQLiteKVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		r.logger.Error("Failed to read key", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value
func (r *SQLiteKVRepository) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		r.logger.Error("Failed to write key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// Delete removes key
func (r *SQLiteKVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		r.logger.Error("Failed to delete key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
