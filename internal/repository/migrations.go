package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS migraine_events (
		id VARCHAR(64) PRIMARY KEY,
		event_date DATE NOT NULL,
		start_time VARCHAR(5) NOT NULL,
		end_time VARCHAR(5),
		severity VARCHAR(16) NOT NULL,
		symptoms TEXT[] NOT NULL DEFAULT '{}',
		triggers TEXT[] NOT NULL DEFAULT '{}',
		medication_taken TEXT[],
		notes TEXT,
		location TEXT,
		duration_minutes DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_migraine_events_date ON migraine_events (event_date)`,
	`CREATE TABLE IF NOT EXISTS tracking_entries (
		id VARCHAR(64) PRIMARY KEY,
		entry_date DATE NOT NULL,
		category VARCHAR(16) NOT NULL,
		payload JSONB NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracking_entries_date ON tracking_entries (entry_date)`,
	`CREATE TABLE IF NOT EXISTS kv_store (
		key VARCHAR(255) PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		operation_type VARCHAR(16) NOT NULL,
		resource_type VARCHAR(64) NOT NULL,
		resource_id VARCHAR(255) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		ip_address VARCHAR(64),
		user_agent TEXT,
		additional_data JSONB
	)`,
}

// Migrate creates the schema if it does not exist yet
func Migrate(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			logger.Error("migration failed", zap.Error(err), zap.Int("step", i))
			return fmt.Errorf("migration step %d failed: %w", i, err)
		}
	}

	logger.Info("database schema up to date", zap.Int("steps", len(migrations)))
	return nil
}
