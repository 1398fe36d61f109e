package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/boswellbenjamin/migrainauts/internal/audit"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidHistory is returned when a migraine or tracking entry fails validation
var ErrInvalidHistory = errors.New("invalid history entry")

// HistoryRepositoryInterface defines the interface for history persistence
type HistoryRepositoryInterface interface {
	CreateMigraine(ctx context.Context, m *model.MigraineEvent) error
	ListMigraines(ctx context.Context) ([]model.MigraineEvent, error)
	CreateTrackingEntry(ctx context.Context, entry model.TrackingEntry) error
	ListTrackingEntries(ctx context.Context) ([]model.TrackingEntry, error)
	DeleteAll(ctx context.Context) error
}

// History is the user's complete record: migraines plus one DayRecord per tracked day
type History struct {
	Migraines []model.MigraineEvent `json:"migraines"`
	Days      []model.DayRecord     `json:"days"`
}

// Today returns the day record for the calendar date of now
func (h *History) Today(now time.Time) (model.DayRecord, bool) {
	return findDay(h.Days, now)
}

// HistoryService records migraines and tracking entries and assembles day records
type HistoryService struct {
	repo    HistoryRepositoryInterface
	auditor Auditor
	now     func() time.Time
	logger  *zap.Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(repo HistoryRepositoryInterface, auditor Auditor, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		repo:    repo,
		auditor: auditor,
		now:     time.Now,
		logger:  logger,
	}
}

// RecordMigraine validates and stores a migraine event
func (s *HistoryService) RecordMigraine(ctx context.Context, m *model.MigraineEvent) error {
	if m.Date.IsZero() {
		return fmt.Errorf("%w: migraine date is required", ErrInvalidHistory)
	}
	if !clockPattern.MatchString(m.StartTime) {
		return fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidHistory)
	}
	if m.EndTime != nil && !clockPattern.MatchString(*m.EndTime) {
		return fmt.Errorf("%w: end_time must be HH:MM", ErrInvalidHistory)
	}
	if !m.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidHistory, m.Severity)
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.Date = model.DateOnly(m.Date)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}

	if err := s.repo.CreateMigraine(ctx, m); err != nil {
		s.logger.Error("failed to record migraine",
			zap.Error(err),
			zap.String("migraine_id", m.ID),
		)
		return fmt.Errorf("failed to record migraine: %w", err)
	}

	recordAudit(ctx, s.auditor, audit.OperationCreate, audit.ResourceMigraineEvent, m.ID, s.logger)
	s.logger.Info("migraine recorded",
		zap.String("migraine_id", m.ID),
		zap.String("date", m.Date.Format("2006-01-02")),
		zap.String("severity", string(m.Severity)),
	)
	return nil
}

// RecordTrackingEntry validates and stores a tracking entry
func (s *HistoryService) RecordTrackingEntry(ctx context.Context, entry model.TrackingEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: tracking entry is required", ErrInvalidHistory)
	}
	if entry.Meta().Date.IsZero() {
		return fmt.Errorf("%w: tracking entry date is required", ErrInvalidHistory)
	}
	if err := validateEntry(entry); err != nil {
		return err
	}

	entry.Stamp(uuid.New().String(), s.now())

	if err := s.repo.CreateTrackingEntry(ctx, entry); err != nil {
		s.logger.Error("failed to record tracking entry",
			zap.Error(err),
			zap.String("category", string(entry.Category())),
		)
		return fmt.Errorf("failed to record tracking entry: %w", err)
	}

	recordAudit(ctx, s.auditor, audit.OperationCreate, audit.ResourceTrackingEntry, entry.Meta().ID, s.logger)
	s.logger.Info("tracking entry recorded",
		zap.String("entry_id", entry.Meta().ID),
		zap.String("category", string(entry.Category())),
		zap.Bool("tracked", entry.Meta().Tracked),
	)
	return nil
}

// GetHistory loads every migraine and tracking entry and groups them into day records
func (s *HistoryService) GetHistory(ctx context.Context) (*History, error) {
	migraines, err := s.repo.ListMigraines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load migraines: %w", err)
	}

	entries, err := s.repo.ListTrackingEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracking entries: %w", err)
	}

	return &History{
		Migraines: migraines,
		Days:      BuildDayRecords(migraines, entries),
	}, nil
}

// ClearHistory deletes every migraine and tracking entry
func (s *HistoryService) ClearHistory(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		s.logger.Error("failed to clear history", zap.Error(err))
		return fmt.Errorf("failed to clear history: %w", err)
	}

	recordAudit(ctx, s.auditor, audit.OperationDelete, audit.ResourceHistory, "*", s.logger)
	s.logger.Info("history cleared")
	return nil
}

// BuildDayRecords groups migraines and entries by calendar date, oldest day
// first. When several migraines share a date the day references the last one.
func BuildDayRecords(migraines []model.MigraineEvent, entries []model.TrackingEntry) []model.DayRecord {
	type dateKey struct {
		year  int
		month time.Month
		day   int
	}
	keyOf := func(t time.Time) dateKey {
		y, m, d := t.Date()
		return dateKey{y, m, d}
	}

	days := make(map[dateKey]*model.DayRecord)
	dayFor := func(t time.Time) *model.DayRecord {
		k := keyOf(t)
		if d, ok := days[k]; ok {
			return d
		}
		d := &model.DayRecord{
			Date:    model.DateOnly(t),
			Entries: model.TrackingEntries{},
		}
		days[k] = d
		return d
	}

	for i := range migraines {
		d := dayFor(migraines[i].Date)
		d.HasMigraine = true
		d.Migraine = &migraines[i]
	}

	for _, entry := range entries {
		d := dayFor(entry.Meta().Date)
		d.Entries = append(d.Entries, entry)
		d.TrackedCount = len(d.Entries)
	}

	records := make([]model.DayRecord, 0, len(days))
	for _, d := range days {
		records = append(records, *d)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return records
}

func validateEntry(entry model.TrackingEntry) error {
	switch e := entry.(type) {
	case *model.SleepEntry:
		if e.Hours != nil && (*e.Hours < 0 || *e.Hours > 24) {
			return fmt.Errorf("%w: sleep hours must be between 0 and 24", ErrInvalidHistory)
		}
	case *model.WaterEntry:
		if e.Glasses != nil && *e.Glasses < 0 {
			return fmt.Errorf("%w: water glasses must not be negative", ErrInvalidHistory)
		}
	case *model.StressEntry:
		switch e.Level {
		case model.StressLow, model.StressMedium, model.StressHigh:
		default:
			return fmt.Errorf("%w: unknown stress level %q", ErrInvalidHistory, e.Level)
		}
	case *model.MedicineEntry:
		if e.Effectiveness != nil && (*e.Effectiveness < 1 || *e.Effectiveness > 5) {
			return fmt.Errorf("%w: effectiveness must be between 1 and 5", ErrInvalidHistory)
		}
	case *model.ActivityEntry, *model.MealEntry, *model.MoodEntry, *model.SymptomEntry:
	}
	return nil
}
