package domain

import (
	"context"
	"math"
	"time"
)

// Requirement types
const (
	RequirementCount   = "count"
	RequirementStreak  = "streak"
	RequirementTotal   = "total"
	RequirementVariety = "variety"
)

// Achievement categories used by count and total requirements
const (
	AchievementCategoryWorkout  = "workout"
	AchievementCategoryExercise = "exercise"
	AchievementCategoryWeight   = "weight"
	AchievementCategoryDistance = "distance"
	AchievementCategoryTime     = "time"
)

// Rarity levels
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// RarityRank orders rarities for display; unknown rarities sort last.
func RarityRank(rarity string) int {
	switch rarity {
	case RarityLegendary:
		return 4
	case RarityEpic:
		return 3
	case RarityRare:
		return 2
	case RarityCommon:
		return 1
	default:
		return 0
	}
}

// Achievement is a static catalog entry
type Achievement struct {
	ID               string  `bson:"_id" json:"id"`
	Name             string  `bson:"name" json:"name"`
	Description      string  `bson:"description" json:"description"`
	Icon             string  `bson:"icon" json:"icon"`
	Category         string  `bson:"category" json:"category"`
	RequirementType  string  `bson:"requirement_type" json:"requirement_type"`
	RequirementValue float64 `bson:"requirement_value" json:"requirement_value"`
	Rarity           string  `bson:"rarity" json:"rarity"`
	Points           int     `bson:"points" json:"points"`
}

// StatValue picks the ProgressStats field this achievement is measured against.
// ok is false when the requirement type/category pair has no rule.
func (a *Achievement) StatValue(s *ProgressStats) (value float64, ok bool) {
	switch a.RequirementType {
	case RequirementCount:
		switch a.Category {
		case AchievementCategoryWorkout:
			return float64(s.TotalWorkouts), true
		case AchievementCategoryExercise:
			return float64(s.TotalExercises), true
		}
	case RequirementStreak:
		return float64(s.CurrentStreak), true
	case RequirementTotal:
		switch a.Category {
		case AchievementCategoryWeight:
			return s.TotalWeightLifted, true
		case AchievementCategoryDistance:
			return s.TotalDistanceMiles, true
		case AchievementCategoryTime:
			return s.TotalDurationMinutes, true
		}
	case RequirementVariety:
		return float64(s.UniqueExercises), true
	}
	return 0, false
}

// IsSatisfied reports whether the stats reach the inclusive threshold.
func (a *Achievement) IsSatisfied(s *ProgressStats) bool {
	v, ok := a.StatValue(s)
	return ok && v >= a.RequirementValue
}

// ProgressPercentage is min(100, floor(100*current/requirement)). It never
// implies the achievement is unlocked.
func (a *Achievement) ProgressPercentage(s *ProgressStats) int {
	v, ok := a.StatValue(s)
	if !ok {
		return 0
	}
	if a.RequirementValue <= 0 {
		return 100
	}
	pct := math.Floor(100 * v / a.RequirementValue)
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return int(pct)
}

// UnlockedAchievement records that a user satisfied an achievement. Created once, never removed.
type UnlockedAchievement struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	AchievementID string    `bson:"achievement_id" json:"achievement_id"`
	Progress      float64   `bson:"progress" json:"progress"`
	Points        int       `bson:"points" json:"points"`
	UnlockedAt    time.Time `bson:"unlocked_at" json:"unlocked_at"`
}

// AchievementView is a catalog entry decorated with one user's unlock state.
type AchievementView struct {
	Achievement
	IsUnlocked         bool       `json:"is_unlocked"`
	UnlockedAt         *time.Time `json:"unlocked_at,omitempty"`
	Progress           float64    `json:"progress"`
	ProgressPercentage int        `json:"progress_percentage"`
}

// AchievementRepository covers the catalog and the per-user unlock rows
type AchievementRepository interface {
	ListCatalog(ctx context.Context) ([]*Achievement, error)
	UpsertCatalogEntry(ctx context.Context, a *Achievement) error
	// ListLocked returns catalog entries the user has not unlocked yet.
	ListLocked(ctx context.Context, userID string) ([]*Achievement, error)
	ListUnlocked(ctx context.Context, userID string) ([]*UnlockedAchievement, error)
	// Unlock inserts the unlock row. An existing row for the pair yields ErrConflict.
	Unlock(ctx context.Context, u *UnlockedAchievement) error
}
