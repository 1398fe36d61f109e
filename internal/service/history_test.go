package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boswellbenjamin/migrainauts/internal/repository"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockHistoryRepository is a mock implementation of HistoryRepositoryInterface
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) CreateMigraine(ctx context.Context, e *model.MigraineEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListMigraines(ctx context.Context) ([]model.MigraineEvent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MigraineEvent), args.Error(1)
}

func (m *MockHistoryRepository) CreateTrackingEntry(ctx context.Context, entry model.TrackingEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListTrackingEntries(ctx context.Context) ([]model.TrackingEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TrackingEntry), args.Error(1)
}

func (m *MockHistoryRepository) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestBuildDayRecords(t *testing.T) {
	d1, d2 := date(2026, 10, 10), date(2026, 10, 11)

	migraines := []model.MigraineEvent{
		{ID: "early", Date: d1, StartTime: "08:00"},
		{ID: "late", Date: d1, StartTime: "19:00"},
	}
	entries := []model.TrackingEntry{
		&model.SleepEntry{EntryMeta: model.EntryMeta{ID: "s", Date: d2.Add(9 * time.Hour), Tracked: true}, Hours: floatPtr(8)},
		&model.WaterEntry{EntryMeta: model.EntryMeta{ID: "w", Date: d1, Tracked: true}, Glasses: intPtr(3)},
		&model.StressEntry{EntryMeta: model.EntryMeta{ID: "st", Date: d2, Tracked: true}, Level: model.StressLow},
	}

	days := BuildDayRecords(migraines, entries)

	require.Len(t, days, 2)

	assert.True(t, model.SameDate(days[0].Date, d1))
	assert.True(t, days[0].HasMigraine)
	require.NotNil(t, days[0].Migraine)
	assert.Equal(t, "late", days[0].Migraine.ID, "the last migraine of the day is referenced")
	assert.Equal(t, 1, days[0].TrackedCount)

	assert.True(t, model.SameDate(days[1].Date, d2))
	assert.False(t, days[1].HasMigraine)
	assert.Nil(t, days[1].Migraine)
	assert.Equal(t, 2, days[1].TrackedCount)
	assert.Equal(t, 0, days[1].Date.Hour())
}

func TestHistoryService_RecordMigraine(t *testing.T) {
	repo := new(MockHistoryRepository)
	svc := NewHistoryService(repo, nil, zap.NewNop())
	svc.now = fixedClock(saturdayNoon)
	ctx := context.Background()

	repo.On("CreateMigraine", ctx, mock.AnythingOfType("*model.MigraineEvent")).Return(nil)

	m := &model.MigraineEvent{
		Date:      time.Date(2026, 10, 17, 15, 45, 0, 0, time.UTC),
		StartTime: "14:30",
		Severity:  model.SeveritySevere,
	}
	require.NoError(t, svc.RecordMigraine(ctx, m))

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, date(2026, 10, 17), m.Date)
	assert.Equal(t, saturdayNoon, m.CreatedAt)
	repo.AssertExpectations(t)
}

func TestHistoryService_RecordMigraineValidation(t *testing.T) {
	repo := new(MockHistoryRepository)
	svc := NewHistoryService(repo, nil, zap.NewNop())
	bad := "25:00"

	tests := []struct {
		name string
		m    model.MigraineEvent
	}{
		{"missing date", model.MigraineEvent{StartTime: "10:00", Severity: model.SeverityMild}},
		{"bad start time", model.MigraineEvent{Date: saturdayNoon, StartTime: "10am", Severity: model.SeverityMild}},
		{"bad end time", model.MigraineEvent{Date: saturdayNoon, StartTime: "10:00", EndTime: &bad, Severity: model.SeverityMild}},
		{"unknown severity", model.MigraineEvent{Date: saturdayNoon, StartTime: "10:00", Severity: "extreme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RecordMigraine(context.Background(), &tt.m)
			assert.ErrorIs(t, err, ErrInvalidHistory)
		})
	}
	repo.AssertNotCalled(t, "CreateMigraine", mock.Anything, mock.Anything)
}

func TestHistoryService_RecordTrackingEntry(t *testing.T) {
	repo := repository.NewMemoryHistoryRepository()
	svc := NewHistoryService(repo, nil, zap.NewNop())
	svc.now = fixedClock(saturdayNoon)
	ctx := context.Background()

	entry := &model.WaterEntry{EntryMeta: model.EntryMeta{Date: date(2026, 10, 17), Tracked: true}, Glasses: intPtr(7)}
	require.NoError(t, svc.RecordTrackingEntry(ctx, entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, saturdayNoon, entry.Timestamp)

	err := svc.RecordTrackingEntry(ctx, &model.StressEntry{EntryMeta: model.EntryMeta{Date: saturdayNoon}, Level: "extreme"})
	assert.ErrorIs(t, err, ErrInvalidHistory)

	err = svc.RecordTrackingEntry(ctx, &model.SleepEntry{Hours: floatPtr(8)})
	assert.ErrorIs(t, err, ErrInvalidHistory)

	history, err := svc.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history.Days, 1)
	assert.Equal(t, 1, history.Days[0].TrackedCount)

	today, ok := history.Today(saturdayNoon)
	require.True(t, ok)
	assert.False(t, AnalyzeConditions(today).LowWater)
}

func TestHistoryService_GetHistoryErrors(t *testing.T) {
	repo := new(MockHistoryRepository)
	svc := NewHistoryService(repo, nil, zap.NewNop())
	ctx := context.Background()

	repo.On("ListMigraines", ctx).Return(nil, errors.New("db down"))

	_, err := svc.GetHistory(ctx)
	assert.Error(t, err)
}

func TestHistoryService_ClearHistory(t *testing.T) {
	repo := repository.NewMemoryHistoryRepository()
	svc := NewHistoryService(repo, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.RecordMigraine(ctx, &model.MigraineEvent{Date: saturdayNoon, StartTime: "10:00", Severity: model.SeverityMild}))
	require.NoError(t, svc.ClearHistory(ctx))

	history, err := svc.GetHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history.Migraines)
	assert.Empty(t, history.Days)
}
