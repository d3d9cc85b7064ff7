package service

import (
	"context"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.uber.org/multierr"
)

// DefaultAchievements is the catalog installed by `fitctl seed achievements`.
func DefaultAchievements() []*domain.Achievement {
	return []*domain.Achievement{
		{ID: "first-workout", Name: "First Steps", Description: "Complete your first workout", Icon: "🏁",
			Category: domain.AchievementCategoryWorkout, RequirementType: domain.RequirementCount, RequirementValue: 1,
			Rarity: domain.RarityCommon, Points: 10},
		{ID: "workout-10", Name: "Getting Serious", Description: "Complete 10 workouts", Icon: "💪",
			Category: domain.AchievementCategoryWorkout, RequirementType: domain.RequirementCount, RequirementValue: 10,
			Rarity: domain.RarityRare, Points: 25},
		{ID: "workout-50", Name: "Dedicated", Description: "Complete 50 workouts", Icon: "🔥",
			Category: domain.AchievementCategoryWorkout, RequirementType: domain.RequirementCount, RequirementValue: 50,
			Rarity: domain.RarityEpic, Points: 50},
		{ID: "workout-100", Name: "Centurion", Description: "Complete 100 workouts", Icon: "🏆",
			Category: domain.AchievementCategoryWorkout, RequirementType: domain.RequirementCount, RequirementValue: 100,
			Rarity: domain.RarityLegendary, Points: 100},
		{ID: "exercises-100", Name: "Rep Machine", Description: "Log 100 exercises", Icon: "📋",
			Category: domain.AchievementCategoryExercise, RequirementType: domain.RequirementCount, RequirementValue: 100,
			Rarity: domain.RarityRare, Points: 25},
		{ID: "streak-3", Name: "On a Roll", Description: "Work out 3 days in a row", Icon: "📅",
			Category: domain.AchievementCategoryWorkout, RequirementType: domain.RequirementStreak, RequirementValue: 3,
			Rarity: domain.RarityCommon, Points: 10},
		{ID: "streak-7", Name: "Week Warrior", Description: "Work out 7 days in a row", Icon: "⚡",
			Category: domain.AchievementCategoryWorkout, RequirementType: domain.RequirementStreak, RequirementValue: 7,
			Rarity: domain.RarityRare, Points: 25},
		{ID: "streak-30", Name: "Unstoppable", Description: "Work out 30 days in a row", Icon: "🌟",
			Category: domain.AchievementCategoryWorkout, RequirementType: domain.RequirementStreak, RequirementValue: 30,
			Rarity: domain.RarityLegendary, Points: 100},
		{ID: "weight-10k", Name: "Heavy Lifter", Description: "Lift 10,000 in total volume", Icon: "🏋️",
			Category: domain.AchievementCategoryWeight, RequirementType: domain.RequirementTotal, RequirementValue: 10000,
			Rarity: domain.RarityRare, Points: 25},
		{ID: "weight-100k", Name: "Iron Titan", Description: "Lift 100,000 in total volume", Icon: "🦾",
			Category: domain.AchievementCategoryWeight, RequirementType: domain.RequirementTotal, RequirementValue: 100000,
			Rarity: domain.RarityEpic, Points: 50},
		{ID: "distance-26", Name: "Marathoner", Description: "Cover 26.2 miles in total", Icon: "🏃",
			Category: domain.AchievementCategoryDistance, RequirementType: domain.RequirementTotal, RequirementValue: 26.2,
			Rarity: domain.RarityEpic, Points: 50},
		{ID: "time-600", Name: "Ten Hours In", Description: "Train for 600 minutes in total", Icon: "⏱️",
			Category: domain.AchievementCategoryTime, RequirementType: domain.RequirementTotal, RequirementValue: 600,
			Rarity: domain.RarityRare, Points: 25},
		{ID: "variety-10", Name: "Explorer", Description: "Try 10 different exercises", Icon: "🧭",
			Category: domain.AchievementCategoryExercise, RequirementType: domain.RequirementVariety, RequirementValue: 10,
			Rarity: domain.RarityCommon, Points: 10},
		{ID: "variety-25", Name: "Well Rounded", Description: "Try 25 different exercises", Icon: "🎯",
			Category: domain.AchievementCategoryExercise, RequirementType: domain.RequirementVariety, RequirementValue: 25,
			Rarity: domain.RarityRare, Points: 25},
	}
}

// SeedCatalog upserts the default catalog and returns how many entries were written.
func SeedCatalog(ctx context.Context, repo domain.AchievementRepository) (int, error) {
	var errs error
	written := 0
	for _, a := range DefaultAchievements() {
		if err := repo.UpsertCatalogEntry(ctx, a); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		written++
	}
	return written, errs
}
