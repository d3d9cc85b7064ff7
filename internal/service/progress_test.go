package service

import (
	"context"
	"testing"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.completions.add("u1", fixedNow, strength("Squat", 3, 5, 100), cardio("Run", 20, 2))

	res, err := h.progress.Rebuild(ctx, "u1", true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Stats.TotalWorkouts)
	assert.Equal(t, 2, res.PersonalRecords)
	assert.Empty(t, res.NewAchievements)

	assert.Empty(t, h.stats.rows)
	assert.Empty(t, h.records.records)
	assert.Empty(t, h.achievements.unlocked)
	assert.Empty(t, h.cache.deleted)
}

func TestRebuildAll(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.completions.add("u1", fixedNow, strength("Squat", 3, 5, 100))
	h.completions.add("u2", fixedNow, cardio("Run", 20, 2))
	h.completions.add("u2", fixedNow.AddDate(0, 0, -1), cardio("Run", 25, 2.5))

	seen := map[string]int{}
	err := h.progress.RebuildAll(ctx, false, func(res *RebuildResult, err error) {
		require.NoError(t, err)
		seen[res.UserID] = res.Stats.TotalWorkouts
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"u1": 1, "u2": 2}, seen)

	stats, err := h.progress.GetProgressStats(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CurrentStreak)

	records, err := h.progress.GetPersonalRecords(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].TimesPerformed)
	assert.Equal(t, 25.0, records[0].LongestDuration)

	assert.Contains(t, h.cache.deleted, domain.StatsCacheKey("u2"))

	views, err := h.progress.GetAchievements(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, views, len(DefaultAchievements()))
}
