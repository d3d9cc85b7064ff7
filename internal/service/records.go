package service

import (
	"context"
	"errors"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RecordTracker maintains per (user, exercise) maxima and running totals.
// Callers must invoke it at most once per completion; replays count as repeats.
type RecordTracker struct {
	repo domain.PersonalRecordRepository
	log  *zap.Logger
}

func NewRecordTracker(repo domain.PersonalRecordRepository, log *zap.Logger) *RecordTracker {
	return &RecordTracker{repo: repo, log: log.Named("records")}
}

// RecordPerformance folds one exercise into the user's record for that exercise name
// and returns the maxima that improved.
func (t *RecordTracker) RecordPerformance(ctx context.Context, userID string, exercise domain.ExercisePlan, performedAt time.Time) ([]string, error) {
	pr, err := t.repo.Get(ctx, userID, exercise.Name)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		pr = domain.NewPersonalRecord(userID, exercise.Name, exercise.Category)
	}

	improved := pr.Apply(exercise.Performance(), performedAt)
	if err := t.repo.Save(ctx, pr); err != nil {
		return nil, err
	}

	if len(improved) > 0 && pr.TimesPerformed > 1 {
		t.log.Info("new personal record",
			zap.String("user_id", userID),
			zap.String("exercise", exercise.Name),
			zap.Strings("fields", improved),
		)
	}
	return improved, nil
}

// RecordCompletion applies every exercise of a completion. One failing exercise
// does not stop the others; failures are combined.
func (t *RecordTracker) RecordCompletion(ctx context.Context, userID string, exercises []domain.ExercisePlan, performedAt time.Time) error {
	var errs error
	for _, ex := range exercises {
		if _, err := t.RecordPerformance(ctx, userID, ex, performedAt); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Rebuild discards the user's records and replays the history in order.
func (t *RecordTracker) Rebuild(ctx context.Context, userID string, entries []*domain.ExerciseHistoryEntry) ([]*domain.PersonalRecord, error) {
	records := FoldRecords(userID, entries)

	if err := t.repo.DeleteByUser(ctx, userID); err != nil {
		return nil, err
	}
	var errs error
	for _, pr := range records {
		errs = multierr.Append(errs, t.repo.Save(ctx, pr))
	}
	return records, errs
}

func (t *RecordTracker) List(ctx context.Context, userID string) ([]*domain.PersonalRecord, error) {
	return t.repo.ListByUser(ctx, userID)
}

// FoldRecords replays history entries into fresh records, in first-seen order.
func FoldRecords(userID string, entries []*domain.ExerciseHistoryEntry) []*domain.PersonalRecord {
	byName := make(map[string]*domain.PersonalRecord)
	var out []*domain.PersonalRecord
	for _, e := range entries {
		pr, ok := byName[e.ExerciseName]
		if !ok {
			pr = domain.NewPersonalRecord(userID, e.ExerciseName, e.Category)
			byName[e.ExerciseName] = pr
			out = append(out, pr)
		}
		pr.Apply(e.Performance(), e.CompletedAt)
	}
	return out
}
