package repository

import (
	"context"
	"fmt"

	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// HistoryRepository manages migraine events and tracking entries
type HistoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(db *pgxpool.Pool, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// CreateMigraine stores a migraine event
func (r *HistoryRepository) CreateMigraine(ctx context.Context, m *model.MigraineEvent) error {
	query := `
		INSERT INTO migraine_events (
			id, event_date, start_time, end_time, severity,
			symptoms, triggers, medication_taken, notes, location,
			duration_minutes, created_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.Date.Format(dateLayout),
		m.StartTime,
		m.EndTime,
		m.Severity,
		nonNil(m.Symptoms),
		nonNil(m.Triggers),
		m.MedicationTaken,
		m.Notes,
		m.Location,
		m.DurationMinutes,
		m.CreatedAt,
	)

	if err != nil {
		r.logger.Error("failed to create migraine event",
			zap.Error(err),
			zap.String("migraine_id", m.ID),
		)
		return fmt.Errorf("failed to create migraine event: %w", err)
	}

	return nil
}

// ListMigraines returns every migraine event ordered by date and start time
func (r *HistoryRepository) ListMigraines(ctx context.Context) ([]model.MigraineEvent, error) {
	query := `
		SELECT
			id, event_date, start_time, end_time, severity,
			symptoms, triggers, medication_taken, notes, location,
			duration_minutes, created_at
		FROM migraine_events
		ORDER BY event_date ASC, start_time ASC, created_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list migraine events", zap.Error(err))
		return nil, fmt.Errorf("failed to list migraine events: %w", err)
	}
	defer rows.Close()

	var migraines []model.MigraineEvent
	for rows.Next() {
		var m model.MigraineEvent
		err := rows.Scan(
			&m.ID,
			&m.Date,
			&m.StartTime,
			&m.EndTime,
			&m.Severity,
			&m.Symptoms,
			&m.Triggers,
			&m.MedicationTaken,
			&m.Notes,
			&m.Location,
			&m.DurationMinutes,
			&m.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan migraine event", zap.Error(err))
			continue
		}
		migraines = append(migraines, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating migraine events", zap.Error(err))
		return nil, fmt.Errorf("error iterating migraine events: %w", err)
	}

	return migraines, nil
}

// CreateTrackingEntry stores a tracking entry with its category payload
func (r *HistoryRepository) CreateTrackingEntry(ctx context.Context, entry model.TrackingEntry) error {
	payload, err := model.MarshalTrackingEntry(entry)
	if err != nil {
		return err
	}

	meta := entry.Meta()
	query := `
		INSERT INTO tracking_entries (id, entry_date, category, payload, recorded_at)
		VALUES ($1, $2::date, $3, $4, $5)
	`

	_, err = r.db.Exec(ctx, query,
		meta.ID,
		meta.Date.Format(dateLayout),
		entry.Category(),
		payload,
		meta.Timestamp,
	)

	if err != nil {
		r.logger.Error("failed to create tracking entry",
			zap.Error(err),
			zap.String("entry_id", meta.ID),
			zap.String("category", string(entry.Category())),
		)
		return fmt.Errorf("failed to create tracking entry: %w", err)
	}

	return nil
}

// ListTrackingEntries returns every tracking entry in recording order.
// Rows whose payload no longer decodes are skipped.
func (r *HistoryRepository) ListTrackingEntries(ctx context.Context) ([]model.TrackingEntry, error) {
	query := `
		SELECT id, payload
		FROM tracking_entries
		ORDER BY entry_date ASC, recorded_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list tracking entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list tracking entries: %w", err)
	}
	defer rows.Close()

	var entries []model.TrackingEntry
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			r.logger.Error("failed to scan tracking entry", zap.Error(err))
			continue
		}

		entry, err := model.UnmarshalTrackingEntry(payload)
		if err != nil {
			r.logger.Warn("skipping undecodable tracking entry",
				zap.Error(err),
				zap.String("entry_id", id),
			)
			continue
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating tracking entries", zap.Error(err))
		return nil, fmt.Errorf("error iterating tracking entries: %w", err)
	}

	return entries, nil
}

// DeleteAll removes every migraine event and tracking entry in one transaction
func (r *HistoryRepository) DeleteAll(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tracking_entries`); err != nil {
		r.logger.Error("failed to delete tracking entries", zap.Error(err))
		return fmt.Errorf("failed to delete tracking entries: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM migraine_events`); err != nil {
		r.logger.Error("failed to delete migraine events", zap.Error(err))
		return fmt.Errorf("failed to delete migraine events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit history delete: %w", err)
	}

	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
