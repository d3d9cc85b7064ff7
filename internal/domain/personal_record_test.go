package domain

import (
	"testing"
	"time"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestPersonalRecordApply_MonotonicMaxima(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	pr := NewPersonalRecord("u1", "Bench Press", CategoryStrength)
	pr.Apply(ExercisePlan{Weight: floatPtr(100), Sets: intPtr(3), Reps: intPtr(5)}.Performance(), day1)
	improved := pr.Apply(ExercisePlan{Weight: floatPtr(80), Sets: intPtr(3), Reps: intPtr(5)}.Performance(), day2)

	if pr.MaxWeight != 100 {
		t.Errorf("MaxWeight = %v, want 100", pr.MaxWeight)
	}
	if pr.TimesPerformed != 2 {
		t.Errorf("TimesPerformed = %d, want 2", pr.TimesPerformed)
	}
	if len(improved) != 0 {
		t.Errorf("improved = %v, want none", improved)
	}
	if pr.MaxWeightAt == nil || !pr.MaxWeightAt.Equal(day1) {
		t.Errorf("MaxWeightAt = %v, want %v", pr.MaxWeightAt, day1)
	}
	if pr.TotalVolume != 100*3*5+80*3*5 {
		t.Errorf("TotalVolume = %v, want %v", pr.TotalVolume, 100*3*5+80*3*5)
	}
	if !pr.LastPerformedAt.Equal(day2) || !pr.FirstPerformedAt.Equal(day1) {
		t.Errorf("performed range = %v..%v", pr.FirstPerformedAt, pr.LastPerformedAt)
	}
}

func TestPersonalRecordApply_TiesKeepDate(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 3)

	pr := NewPersonalRecord("u1", "Run", CategoryCardio)
	pr.Apply(ExercisePlan{Distance: floatPtr(3.1)}.Performance(), day1)
	improved := pr.Apply(ExercisePlan{Distance: floatPtr(3.1)}.Performance(), day2)

	if len(improved) != 0 {
		t.Errorf("tie reported as improvement: %v", improved)
	}
	if !pr.LongestDistanceAt.Equal(day1) {
		t.Errorf("LongestDistanceAt moved to %v on a tie", pr.LongestDistanceAt)
	}
}

func TestPersonalRecordApply_NullsNeverOverwrite(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	pr := NewPersonalRecord("u1", "Squat", CategoryStrength)
	pr.Apply(ExercisePlan{Weight: floatPtr(60), Reps: intPtr(8), Sets: intPtr(4)}.Performance(), at)
	pr.Apply(ExercisePlan{}.Performance(), at.Add(time.Hour))

	if pr.MaxWeight != 60 || pr.MaxReps != 8 || pr.MaxSets != 4 {
		t.Errorf("maxima = %v/%d/%d, want 60/8/4", pr.MaxWeight, pr.MaxReps, pr.MaxSets)
	}
	if pr.TimesPerformed != 2 {
		t.Errorf("TimesPerformed = %d, want 2", pr.TimesPerformed)
	}
	if pr.TotalReps != 8 || pr.TotalSets != 4 {
		t.Errorf("totals = %d reps %d sets, want 8/4", pr.TotalReps, pr.TotalSets)
	}
}

func TestPersonalRecordApply_ReportsImprovedFields(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	pr := NewPersonalRecord("u1", "Row", CategoryCardio)

	improved := pr.Apply(ExercisePlan{Duration: floatPtr(20), Distance: floatPtr(5)}.Performance(), at)
	want := map[string]bool{"duration": true, "distance": true}
	if len(improved) != len(want) {
		t.Fatalf("improved = %v, want %v", improved, want)
	}
	for _, f := range improved {
		if !want[f] {
			t.Errorf("unexpected improved field %q", f)
		}
	}
}
