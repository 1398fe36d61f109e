package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a key or record does not exist
var ErrNotFound = errors.New("not found")

// KeyValueStore persists opaque values under string keys.
// Put replaces the whole value, so a reader sees either the old or the new value.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PostgresKeyValueStore keeps values in the kv_store table
type PostgresKeyValueStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresKeyValueStore creates a new PostgresKeyValueStore
func NewPostgresKeyValueStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresKeyValueStore {
	return &PostgresKeyValueStore{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the value stored under key
func (s *PostgresKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`

	var value []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("key %s: %w", key, ErrNotFound)
		}
		s.logger.Error("failed to read key", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	return value, nil
}

// Put stores value under key, replacing any previous value
func (s *PostgresKeyValueStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		s.logger.Error("failed to write key",
			zap.Error(err),
			zap.String("key", key),
			zap.Int("size_bytes", len(value)),
		)
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}

	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *PostgresKeyValueStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		s.logger.Error("failed to delete key", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

var _ KeyValueStore = (*PostgresKeyValueStore)(nil)
