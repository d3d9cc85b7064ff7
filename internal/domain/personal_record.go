package domain

import (
	"context"
	"time"
)

// PersonalRecord holds running maxima and totals for one (user, exercise name) pair.
// Maxima never decrease.
type PersonalRecord struct {
	ID           string   `bson:"_id,omitempty" json:"id"`
	UserID       string   `bson:"user_id" json:"user_id"`
	ExerciseName string   `bson:"exercise_name" json:"exercise_name"`
	Category     Category `bson:"category" json:"category"`

	MaxWeight         float64    `bson:"max_weight" json:"max_weight"`
	MaxWeightAt       *time.Time `bson:"max_weight_at,omitempty" json:"max_weight_at,omitempty"`
	MaxReps           int        `bson:"max_reps" json:"max_reps"`
	MaxRepsAt         *time.Time `bson:"max_reps_at,omitempty" json:"max_reps_at,omitempty"`
	MaxSets           int        `bson:"max_sets" json:"max_sets"`
	MaxSetsAt         *time.Time `bson:"max_sets_at,omitempty" json:"max_sets_at,omitempty"`
	LongestDuration   float64    `bson:"longest_duration" json:"longest_duration"`
	LongestDurationAt *time.Time `bson:"longest_duration_at,omitempty" json:"longest_duration_at,omitempty"`
	LongestDistance   float64    `bson:"longest_distance" json:"longest_distance"`
	LongestDistanceAt *time.Time `bson:"longest_distance_at,omitempty" json:"longest_distance_at,omitempty"`

	TimesPerformed int     `bson:"times_performed" json:"times_performed"`
	TotalVolume    float64 `bson:"total_volume" json:"total_volume"`
	TotalDuration  float64 `bson:"total_duration" json:"total_duration"`
	TotalDistance  float64 `bson:"total_distance" json:"total_distance"`
	TotalReps      int     `bson:"total_reps" json:"total_reps"`
	TotalSets      int     `bson:"total_sets" json:"total_sets"`

	FirstPerformedAt time.Time `bson:"first_performed_at" json:"first_performed_at"`
	LastPerformedAt  time.Time `bson:"last_performed_at" json:"last_performed_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// NewPersonalRecord starts an empty record for a first performance.
func NewPersonalRecord(userID, exerciseName string, category Category) *PersonalRecord {
	return &PersonalRecord{
		UserID:       userID,
		ExerciseName: exerciseName,
		Category:     category,
	}
}

// Apply folds one performance into the record and returns the names of the
// maxima that strictly improved.
func (pr *PersonalRecord) Apply(p Performance, at time.Time) []string {
	var improved []string

	if p.Weight > pr.MaxWeight {
		pr.MaxWeight, pr.MaxWeightAt = p.Weight, timePtr(at)
		improved = append(improved, "weight")
	}
	if p.Reps > pr.MaxReps {
		pr.MaxReps, pr.MaxRepsAt = p.Reps, timePtr(at)
		improved = append(improved, "reps")
	}
	if p.Sets > pr.MaxSets {
		pr.MaxSets, pr.MaxSetsAt = p.Sets, timePtr(at)
		improved = append(improved, "sets")
	}
	if p.Duration > pr.LongestDuration {
		pr.LongestDuration, pr.LongestDurationAt = p.Duration, timePtr(at)
		improved = append(improved, "duration")
	}
	if p.Distance > pr.LongestDistance {
		pr.LongestDistance, pr.LongestDistanceAt = p.Distance, timePtr(at)
		improved = append(improved, "distance")
	}

	pr.TimesPerformed++
	pr.TotalVolume += p.Volume()
	pr.TotalDuration += p.Duration
	pr.TotalDistance += p.Distance
	pr.TotalReps += p.Reps
	pr.TotalSets += p.Sets

	if pr.FirstPerformedAt.IsZero() || at.Before(pr.FirstPerformedAt) {
		pr.FirstPerformedAt = at
	}
	if at.After(pr.LastPerformedAt) {
		pr.LastPerformedAt = at
	}
	return improved
}

// PersonalRecordRepository persists personal records
type PersonalRecordRepository interface {
	// Get returns the record for the pair, or ErrNotFound.
	Get(ctx context.Context, userID, exerciseName string) (*PersonalRecord, error)
	// Save inserts or fully replaces the record keyed by (user, exercise name).
	Save(ctx context.Context, record *PersonalRecord) error
	// ListByUser orders by times performed, most first.
	ListByUser(ctx context.Context, userID string) ([]*PersonalRecord, error)
	DeleteByUser(ctx context.Context, userID string) error
}

func timePtr(t time.Time) *time.Time { return &t }
