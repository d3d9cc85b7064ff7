package domain

import (
	"context"
	"time"
)

// ProgressStats is the per-user materialized aggregate of the completion history.
// It is always fully replaced, never patched.
type ProgressStats struct {
	UserID string `bson:"_id" json:"user_id"`

	TotalWorkouts     int `bson:"total_workouts" json:"total_workouts"`
	TotalExercises    int `bson:"total_exercises" json:"total_exercises"`
	UniqueExercises   int `bson:"unique_exercises" json:"unique_exercises"`
	CurrentStreak     int `bson:"current_streak" json:"current_streak"`
	LongestStreak     int `bson:"longest_streak" json:"longest_streak"`
	WorkoutsThisWeek  int `bson:"workouts_this_week" json:"workouts_this_week"`
	WorkoutsThisMonth int `bson:"workouts_this_month" json:"workouts_this_month"`

	TotalWeightLifted    float64 `bson:"total_weight_lifted" json:"total_weight_lifted"`
	TotalDurationMinutes float64 `bson:"total_duration_minutes" json:"total_duration_minutes"`
	TotalDistanceMiles   float64 `bson:"total_distance_miles" json:"total_distance_miles"`
	TotalReps            int     `bson:"total_reps" json:"total_reps"`
	TotalSets            int     `bson:"total_sets" json:"total_sets"`

	StrengthExercises    int `bson:"strength_exercises" json:"strength_exercises"`
	CardioExercises      int `bson:"cardio_exercises" json:"cardio_exercises"`
	FlexibilityExercises int `bson:"flexibility_exercises" json:"flexibility_exercises"`
	BodyweightExercises  int `bson:"bodyweight_exercises" json:"bodyweight_exercises"`

	FavoriteExercise      *string `bson:"favorite_exercise" json:"favorite_exercise"`
	FavoriteExerciseCount int     `bson:"favorite_exercise_count" json:"favorite_exercise_count"`

	FirstWorkoutAt *time.Time `bson:"first_workout_at" json:"first_workout_at"`
	LastWorkoutAt  *time.Time `bson:"last_workout_at" json:"last_workout_at"`
}

// EmptyProgressStats is the zeroed row reported before a user's first completion.
func EmptyProgressStats(userID string) *ProgressStats {
	return &ProgressStats{UserID: userID}
}

// ProgressStatsRepository stores one ProgressStats row per user
type ProgressStatsRepository interface {
	// Get returns the stored row or ErrNotFound.
	Get(ctx context.Context, userID string) (*ProgressStats, error)
	// Upsert inserts the row or overwrites every field of the existing one.
	Upsert(ctx context.Context, stats *ProgressStats) error
}
