package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryKeyValueStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKeyValueStore(zap.NewNop())

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	value := []byte("first")
	require.NoError(t, store.Put(ctx, "k", value))

	// Callers mutating their slice must not change the stored value
	value[0] = 'X'
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", string(again))

	require.NoError(t, store.Put(ctx, "k", []byte("second")))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
	assert.Equal(t, []string{"k"}, store.Keys())

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()

	day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateMigraine(ctx, &model.MigraineEvent{ID: "late", Date: day, StartTime: "18:00", Severity: model.SeverityMild}))
	require.NoError(t, repo.CreateMigraine(ctx, &model.MigraineEvent{ID: "early", Date: day, StartTime: "07:30", Severity: model.SeveritySevere}))
	require.NoError(t, repo.CreateMigraine(ctx, &model.MigraineEvent{ID: "before", Date: day.AddDate(0, 0, -1), StartTime: "23:00", Severity: model.SeverityModerate}))

	migraines, err := repo.ListMigraines(ctx)
	require.NoError(t, err)
	require.Len(t, migraines, 3)
	assert.Equal(t, "before", migraines[0].ID)
	assert.Equal(t, "early", migraines[1].ID)
	assert.Equal(t, "late", migraines[2].ID)

	hours := 6.5
	sleep := &model.SleepEntry{EntryMeta: model.EntryMeta{ID: "s-1", Date: day, Tracked: true}, Hours: &hours}
	require.NoError(t, repo.CreateTrackingEntry(ctx, sleep))

	entries, err := repo.ListTrackingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.CategorySleep, entries[0].Category())

	require.NoError(t, repo.DeleteAll(ctx))
	migraines, err = repo.ListMigraines(ctx)
	require.NoError(t, err)
	assert.Empty(t, migraines)
	entries, err = repo.ListTrackingEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestProperty_MemoryMigrainesListedChronologically verifies insertion order
// never leaks into the listing order
func TestProperty_MemoryMigrainesListedChronologically(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("migraines are ordered by date then start time", prop.ForAll(
		func(days []int, hours []int) bool {
			ctx := context.Background()
			repo := NewMemoryHistoryRepository()

			n := len(days)
			if len(hours) < n {
				n = len(hours)
			}
			for i := 0; i < n; i++ {
				err := repo.CreateMigraine(ctx, &model.MigraineEvent{
					ID:        fmt.Sprintf("m-%d", i),
					Date:      base.AddDate(0, 0, days[i]),
					StartTime: fmt.Sprintf("%02d:00", hours[i]),
					Severity:  model.SeverityMild,
				})
				if err != nil {
					return false
				}
			}

			migraines, err := repo.ListMigraines(ctx)
			if err != nil || len(migraines) != n {
				return false
			}
			for i := 1; i < len(migraines); i++ {
				prev, cur := migraines[i-1], migraines[i]
				if cur.Date.Before(prev.Date) {
					return false
				}
				if cur.Date.Equal(prev.Date) && cur.StartTime < prev.StartTime {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.SliceOf(gen.IntRange(0, 23)),
	))

	properties.TestingRun(t)
}
