package service

import (
	"context"
	"errors"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.uber.org/zap"
)

const (
	weekWindow  = 7 * 24 * time.Hour
	monthWindow = 30 * 24 * time.Hour
)

// FreshStats is a ProgressStats value produced by a recompute that just ran.
// Only StatsAggregator can build a non-empty one, so code that takes FreshStats
// can only run after a recompute.
type FreshStats struct {
	stats *domain.ProgressStats
}

// Stats returns the recomputed row, nil for the zero FreshStats.
func (f FreshStats) Stats() *domain.ProgressStats { return f.stats }

// StatsAggregator rebuilds ProgressStats from the event store
type StatsAggregator struct {
	completions domain.CompletionRepository
	stats       domain.ProgressStatsRepository
	loc         *time.Location
	now         func() time.Time
	log         *zap.Logger
}

func NewStatsAggregator(
	completions domain.CompletionRepository,
	stats domain.ProgressStatsRepository,
	loc *time.Location,
	log *zap.Logger,
) *StatsAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsAggregator{
		completions: completions,
		stats:       stats,
		loc:         loc,
		now:         time.Now,
		log:         log.Named("stats"),
	}
}

// Recompute loads the full history of the user, computes the stats and upserts them.
func (a *StatsAggregator) Recompute(ctx context.Context, userID string) (FreshStats, error) {
	stats, err := a.Compute(ctx, userID)
	if err != nil {
		return FreshStats{}, err
	}
	if err := a.stats.Upsert(ctx, stats); err != nil {
		return FreshStats{}, err
	}
	return FreshStats{stats: stats}, nil
}

// Compute is Recompute without the upsert.
func (a *StatsAggregator) Compute(ctx context.Context, userID string) (*domain.ProgressStats, error) {
	records, err := a.completions.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	entries, err := a.completions.ListHistoryByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeStats(userID, records, entries, a.now(), a.loc), nil
}

// Get returns the stored stats, or a zeroed row before the first completion.
func (a *StatsAggregator) Get(ctx context.Context, userID string) (*domain.ProgressStats, error) {
	stats, err := a.stats.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.EmptyProgressStats(userID), nil
		}
		return nil, err
	}
	return stats, nil
}

// ComputeStats is the pure statistics function over one user's completions and
// history entries. Calendar days are taken in loc.
func ComputeStats(userID string, records []*domain.CompletionRecord, entries []*domain.ExerciseHistoryEntry, now time.Time, loc *time.Location) *domain.ProgressStats {
	s := domain.EmptyProgressStats(userID)

	s.TotalWorkouts = len(records)
	for _, r := range records {
		at := r.CompletedAt.UTC()
		if s.FirstWorkoutAt == nil || at.Before(*s.FirstWorkoutAt) {
			s.FirstWorkoutAt = &at
		}
		if s.LastWorkoutAt == nil || at.After(*s.LastWorkoutAt) {
			s.LastWorkoutAt = &at
		}
		if !r.CompletedAt.Before(now.Add(-weekWindow)) {
			s.WorkoutsThisWeek++
		}
		if !r.CompletedAt.Before(now.Add(-monthWindow)) {
			s.WorkoutsThisMonth++
		}
	}

	totals := domain.SumHistory(entries)
	s.TotalExercises = totals.TotalExercises
	s.UniqueExercises = totals.UniqueExercises
	s.TotalWeightLifted = totals.TotalWeightLifted
	s.TotalDurationMinutes = totals.TotalDurationMinutes
	s.TotalDistanceMiles = totals.TotalDistanceMiles
	s.TotalReps = totals.TotalReps
	s.TotalSets = totals.TotalSets
	s.StrengthExercises = totals.ByCategory[domain.CategoryStrength]
	s.CardioExercises = totals.ByCategory[domain.CategoryCardio]
	s.FlexibilityExercises = totals.ByCategory[domain.CategoryFlexibility]
	s.BodyweightExercises = totals.ByCategory[domain.CategoryBodyweight]

	if name, count := domain.MostFrequentExercise(entries); count > 0 {
		s.FavoriteExercise = &name
		s.FavoriteExerciseCount = count
	}

	dates := domain.CompletionDates(records, loc)
	today := domain.StartOfDay(now, loc)
	s.CurrentStreak = CurrentStreak(dates, today)
	s.LongestStreak = LongestStreak(dates)

	return s
}

// CurrentStreak counts consecutive days ending today or yesterday.
// dates must be distinct calendar days, most recent first.
func CurrentStreak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 || domain.DaysBetween(dates[0], today) > 1 {
		return 0
	}
	streak := 1
	for i := 1; i < len(dates); i++ {
		if domain.DaysBetween(dates[i], dates[i-1]) != 1 {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak is the longest run of consecutive days anywhere in dates
// (distinct days, most recent first).
func LongestStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if domain.DaysBetween(dates[i], dates[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
