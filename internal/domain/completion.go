package domain

import (
	"context"
	"sort"
	"time"
)

// CompletionSource tells where the exercises of a completion came from.
type CompletionSource string

const (
	SourceSession   CompletionSource = "session"
	SourceChallenge CompletionSource = "challenge"
)

// CompletionRecord is the immutable event written when a session is marked complete.
// Exercises is a deep copy of the plan at that instant.
type CompletionRecord struct {
	ID             string           `bson:"_id" json:"id"`
	UserID         string           `bson:"user_id" json:"user_id"`
	SessionID      string           `bson:"session_id" json:"session_id"`
	SessionName    string           `bson:"session_name" json:"session_name"`
	ChallengeID    string           `bson:"challenge_id,omitempty" json:"challenge_id,omitempty"`
	Source         CompletionSource `bson:"source" json:"source"`
	IdempotencyKey string           `bson:"idempotency_key,omitempty" json:"-"`
	CompletedAt    time.Time        `bson:"completed_at" json:"completed_at"`
	Exercises      []ExercisePlan   `bson:"exercises" json:"exercises"`
}

// ExerciseHistoryEntry is one exercise of one completion, flattened for aggregation.
type ExerciseHistoryEntry struct {
	ID           string    `bson:"_id" json:"id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	CompletionID string    `bson:"completion_id" json:"completion_id"`
	SessionID    string    `bson:"session_id" json:"session_id"`
	Position     int       `bson:"position" json:"position"`
	ExerciseName string    `bson:"exercise_name" json:"exercise_name"`
	Category     Category  `bson:"category" json:"category"`
	Sets         *int      `bson:"sets,omitempty" json:"sets"`
	Reps         *int      `bson:"reps,omitempty" json:"reps"`
	Weight       *float64  `bson:"weight,omitempty" json:"weight"`
	Duration     *float64  `bson:"duration,omitempty" json:"duration"`
	Distance     *float64  `bson:"distance,omitempty" json:"distance"`
	CompletedAt  time.Time `bson:"completed_at" json:"completed_at"`
}

// Performance is a plan or history entry with absent values read as zero.
type Performance struct {
	Sets     int
	Reps     int
	Weight   float64
	Duration float64
	Distance float64
}

// Volume is weight x sets x reps.
func (p Performance) Volume() float64 {
	return p.Weight * float64(p.Sets) * float64(p.Reps)
}

func (e ExercisePlan) Performance() Performance {
	return Performance{
		Sets:     intOrZero(e.Sets),
		Reps:     intOrZero(e.Reps),
		Weight:   floatOrZero(e.Weight),
		Duration: floatOrZero(e.Duration),
		Distance: floatOrZero(e.Distance),
	}
}

func (h *ExerciseHistoryEntry) Performance() Performance {
	return Performance{
		Sets:     intOrZero(h.Sets),
		Reps:     intOrZero(h.Reps),
		Weight:   floatOrZero(h.Weight),
		Duration: floatOrZero(h.Duration),
		Distance: floatOrZero(h.Distance),
	}
}

// Clone returns a deep copy, so later edits of the plan never reach a snapshot.
func (e ExercisePlan) Clone() ExercisePlan {
	out := e
	out.Sets = copyPtr(e.Sets)
	out.Reps = copyPtr(e.Reps)
	out.Weight = copyPtr(e.Weight)
	out.Duration = copyPtr(e.Duration)
	out.Distance = copyPtr(e.Distance)
	return out
}

// CompletionRepository is the append-only event store of completions and their history rows.
type CompletionRepository interface {
	// Append atomically writes the record, its history entries and, for session-sourced
	// completions, bumps the session's completion counter and last-completed timestamp.
	// A repeated (user, idempotency key) pair yields ErrConflict and writes nothing.
	Append(ctx context.Context, record *CompletionRecord, entries []*ExerciseHistoryEntry) error
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*CompletionRecord, error)
	// ListByUser returns completions newest first. limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int64) ([]*CompletionRecord, error)
	// ListHistoryByUser returns history entries oldest first, then by position.
	ListHistoryByUser(ctx context.Context, userID string) ([]*ExerciseHistoryEntry, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// HistoryTotals is the sums/counts aggregate over a user's history entries.
type HistoryTotals struct {
	TotalExercises       int
	UniqueExercises      int
	TotalWeightLifted    float64
	TotalDurationMinutes float64
	TotalDistanceMiles   float64
	TotalReps            int
	TotalSets            int
	ByCategory           map[Category]int
}

// SumHistory aggregates history entries; nulls count as zero.
func SumHistory(entries []*ExerciseHistoryEntry) HistoryTotals {
	totals := HistoryTotals{ByCategory: make(map[Category]int, len(Categories))}
	names := make(map[string]struct{})
	for _, e := range entries {
		p := e.Performance()
		totals.TotalExercises++
		totals.TotalWeightLifted += p.Volume()
		totals.TotalDurationMinutes += p.Duration
		totals.TotalDistanceMiles += p.Distance
		totals.TotalReps += p.Reps
		totals.TotalSets += p.Sets
		totals.ByCategory[e.Category]++
		names[e.ExerciseName] = struct{}{}
	}
	totals.UniqueExercises = len(names)
	return totals
}

// MostFrequentExercise returns the most performed exercise name and its count.
// Ties go to the name seen first in the given order. Empty history yields ("", 0).
func MostFrequentExercise(entries []*ExerciseHistoryEntry) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		if _, seen := counts[e.ExerciseName]; !seen {
			order = append(order, e.ExerciseName)
		}
		counts[e.ExerciseName]++
	}

	best, bestCount := "", 0
	for _, name := range order {
		if counts[name] > bestCount {
			best, bestCount = name, counts[name]
		}
	}
	return best, bestCount
}

// CompletionDates returns the distinct calendar dates (midnight in loc) of the
// given completions, most recent first.
func CompletionDates(records []*CompletionRecord, loc *time.Location) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, r := range records {
		d := StartOfDay(r.CompletedAt, loc)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates
}

// StartOfDay strips the time of day of t as observed in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from a to b (both already truncated to a day).
func DaysBetween(a, b time.Time) int {
	// Compare as UTC dates so DST transitions still count as one day.
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
