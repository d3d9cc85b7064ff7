package domain

import (
	"context"
	"time"
)

// Category is the modality of an exercise.
type Category string

const (
	CategoryStrength    Category = "strength"
	CategoryCardio      Category = "cardio"
	CategoryFlexibility Category = "flexibility"
	CategoryBodyweight  Category = "bodyweight"
)

// Categories lists every category a plan entry may use.
var Categories = []Category{CategoryStrength, CategoryCardio, CategoryFlexibility, CategoryBodyweight}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ExercisePlan is one planned exercise inside a WorkoutSession.
// Numeric parameters are optional; nil means "not specified".
type ExercisePlan struct {
	Name     string   `bson:"name" json:"name"`
	Type     string   `bson:"type,omitempty" json:"type,omitempty"`
	Category Category `bson:"category" json:"category"`
	Sets     *int     `bson:"sets,omitempty" json:"sets"`
	Reps     *int     `bson:"reps,omitempty" json:"reps"`
	Weight   *float64 `bson:"weight,omitempty" json:"weight"`
	Duration *float64 `bson:"duration,omitempty" json:"duration"` // minutes
	Distance *float64 `bson:"distance,omitempty" json:"distance"` // miles
}

// WorkoutSession is a named, dated collection of planned exercises owned by one user.
type WorkoutSession struct {
	ID              string         `bson:"_id,omitempty" json:"id"`
	UserID          string         `bson:"user_id" json:"user_id"`
	Name            string         `bson:"name" json:"name"`
	ScheduledDate   time.Time      `bson:"scheduled_date" json:"scheduled_date"`
	Exercises       []ExercisePlan `bson:"exercises" json:"exercises"`
	CompletionCount int            `bson:"completion_count" json:"completion_count"`
	LastCompletedAt *time.Time     `bson:"last_completed_at,omitempty" json:"last_completed_at,omitempty"`
	CreatedAt       time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at" json:"updated_at"`
}

// WorkoutSessionRepository defines persistence for workout sessions
type WorkoutSessionRepository interface {
	Create(ctx context.Context, session *WorkoutSession) error
	GetByID(ctx context.Context, id string) (*WorkoutSession, error)
	ListByUser(ctx context.Context, userID string) ([]*WorkoutSession, error)
	// Delete removes the session and its plan. Recorded completions are untouched.
	Delete(ctx context.Context, id string) error
}
