package domain

import (
	"testing"
	"time"
)

func TestSumHistory(t *testing.T) {
	entries := []*ExerciseHistoryEntry{
		{ExerciseName: "Bench", Category: CategoryStrength, Weight: floatPtr(50), Sets: intPtr(3), Reps: intPtr(10)},
		{ExerciseName: "Run", Category: CategoryCardio, Duration: floatPtr(30), Distance: floatPtr(3)},
		{ExerciseName: "Bench", Category: CategoryStrength, Weight: floatPtr(55), Sets: intPtr(3)},
		{ExerciseName: "Plank", Category: CategoryBodyweight},
	}

	got := SumHistory(entries)

	if got.TotalExercises != 4 {
		t.Errorf("TotalExercises = %d, want 4", got.TotalExercises)
	}
	if got.UniqueExercises != 3 {
		t.Errorf("UniqueExercises = %d, want 3", got.UniqueExercises)
	}
	// reps absent on the second bench entry contributes zero volume
	if got.TotalWeightLifted != 1500 {
		t.Errorf("TotalWeightLifted = %v, want 1500", got.TotalWeightLifted)
	}
	if got.TotalDurationMinutes != 30 || got.TotalDistanceMiles != 3 {
		t.Errorf("duration/distance = %v/%v, want 30/3", got.TotalDurationMinutes, got.TotalDistanceMiles)
	}
	if got.TotalSets != 6 || got.TotalReps != 10 {
		t.Errorf("sets/reps = %d/%d, want 6/10", got.TotalSets, got.TotalReps)
	}
	if got.ByCategory[CategoryStrength] != 2 || got.ByCategory[CategoryFlexibility] != 0 {
		t.Errorf("ByCategory = %v", got.ByCategory)
	}
}

func TestMostFrequentExercise(t *testing.T) {
	tests := []struct {
		name      string
		names     []string
		want      string
		wantCount int
	}{
		{"empty", nil, "", 0},
		{"clear winner", []string{"Run", "Bench", "Run"}, "Run", 2},
		{"tie goes to first seen", []string{"Squat", "Bench", "Bench", "Squat"}, "Squat", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []*ExerciseHistoryEntry
			for _, n := range tt.names {
				entries = append(entries, &ExerciseHistoryEntry{ExerciseName: n})
			}
			name, count := MostFrequentExercise(entries)
			if name != tt.want || count != tt.wantCount {
				t.Errorf("MostFrequentExercise() = (%q, %d), want (%q, %d)", name, count, tt.want, tt.wantCount)
			}
		})
	}
}

func TestCompletionDates_DistinctDescending(t *testing.T) {
	loc := time.UTC
	base := time.Date(2024, 5, 10, 0, 0, 0, 0, loc)
	records := []*CompletionRecord{
		{CompletedAt: base.Add(8 * time.Hour)},
		{CompletedAt: base.AddDate(0, 0, 2).Add(7 * time.Hour)},
		{CompletedAt: base.Add(20 * time.Hour)},
		{CompletedAt: base.AddDate(0, 0, -1).Add(23 * time.Hour)},
	}

	dates := CompletionDates(records, loc)

	want := []time.Time{base.AddDate(0, 0, 2), base, base.AddDate(0, 0, -1)}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestCompletionDates_UsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 02:00 UTC on the 11th is still the evening of the 10th in New York.
	records := []*CompletionRecord{{CompletedAt: time.Date(2024, 5, 11, 2, 0, 0, 0, time.UTC)}}

	dates := CompletionDates(records, ny)
	if dates[0].Day() != 10 {
		t.Errorf("day = %d, want 10", dates[0].Day())
	}
}

func TestExercisePlanClone_IsDeep(t *testing.T) {
	orig := ExercisePlan{Name: "Bench", Weight: floatPtr(50)}
	snap := orig.Clone()
	*orig.Weight = 70

	if *snap.Weight != 50 {
		t.Errorf("snapshot weight changed to %v", *snap.Weight)
	}
}
