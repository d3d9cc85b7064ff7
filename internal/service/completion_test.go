package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocker struct {
	err   error
	mu    sync.Mutex
	held  int
	freed int
}

func (l *stubLocker) Lock(context.Context, string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.held++
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.freed++
		l.mu.Unlock()
	}, nil
}

func TestCompleteWorkout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.user(t, "alice")
	s := h.session(t, u.ID, "Leg Day", strength("Squat", 3, 5, 100), cardio("Run", 20, 2))

	res, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.False(t, res.Replayed)
	assert.Empty(t, res.Report.Failed())
	assert.NoError(t, res.Report.Err())
	assert.Equal(t, []string{"first-workout"}, achievementIDs(res.NewAchievements))

	assert.Equal(t, domain.SourceSession, res.Record.Source)
	assert.Equal(t, "Leg Day", res.Record.SessionName)
	assert.True(t, res.Record.CompletedAt.Equal(fixedNow))
	require.Len(t, res.Record.Exercises, 2)

	history, err := h.completions.ListHistoryByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for i, e := range history {
		assert.Equal(t, res.Record.ID, e.CompletionID)
		assert.Equal(t, i, e.Position)
		assert.True(t, e.CompletedAt.Equal(fixedNow))
	}

	stored, err := h.sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CompletionCount)
	require.NotNil(t, stored.LastCompletedAt)

	stats, err := h.stats.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalWorkouts)
	assert.Equal(t, 2, stats.TotalExercises)

	pr, err := h.records.Get(ctx, u.ID, "Squat")
	require.NoError(t, err)
	assert.Equal(t, 100.0, pr.MaxWeight)

	posts := h.feed.byKind(domain.PostKindWorkout)
	require.Len(t, posts, 1)
	assert.Equal(t, "Completed Leg Day", posts[0].Content)
	assert.Equal(t, s.ID, posts[0].WorkoutID)

	assert.Contains(t, h.cache.deleted, domain.StatsCacheKey(u.ID))
	for _, key := range domain.LeaderboardCacheKeys() {
		assert.Contains(t, h.cache.deleted, key)
	}

	steps := make([]string, len(res.Report.Steps))
	for i, st := range res.Report.Steps {
		steps[i] = st.Step
	}
	assert.Equal(t, []string{StepAppend, StepPersonalRecords, StepStats, StepAchievements, StepWorkoutPost, StepCache}, steps)
}

func TestCompleteWorkoutSnapshotIsFrozen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.user(t, "alice")
	s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))

	res, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
	require.NoError(t, err)

	// edit the plan in place after completing it
	h.sessions.mu.Lock()
	*h.sessions.sessions[s.ID].Exercises[0].Weight = 200
	h.sessions.mu.Unlock()

	assert.Equal(t, 60.0, *res.Record.Exercises[0].Weight)
	history, err := h.completions.ListHistoryByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, *history[0].Weight)
}

func TestCompleteWorkoutUnknownSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")
	other := h.user(t, "bob")
	s := h.session(t, owner.ID, "Push", strength("Bench Press", 3, 10, 60))

	tests := []struct {
		name      string
		userID    string
		sessionID string
	}{
		{"missing session", owner.ID, "000000000000000000000000"},
		{"someone else's session", other.ID, s.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.orchestrator.CompleteWorkout(ctx, tt.userID, tt.sessionID, "")
			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}

	assert.Empty(t, h.completions.records)
	assert.Empty(t, h.feed.posts)
	assert.Empty(t, h.stats.rows)
	assert.Empty(t, h.records.records)
}

func TestCompleteWorkoutAppendFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "alice")
	s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))
	h.completions.appendErr = domain.NewStorageError("append completion", assert.AnError)

	res, err := h.orchestrator.CompleteWorkout(context.Background(), u.ID, s.ID, "")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, h.feed.posts)
	assert.Empty(t, h.records.records)
}

func TestCompleteWorkoutAdvisoryFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.user(t, "alice")
	s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))
	h.records.saveErr = errors.New("records down")
	h.stats.upsertErr = errors.New("stats down")
	h.feed.createErr = errors.New("feed down")

	res, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
	require.NoError(t, err)
	require.NotNil(t, res.Record)

	// achievements are skipped when stats could not be recomputed
	assert.Equal(t, []string{StepPersonalRecords, StepStats, StepWorkoutPost}, res.Report.Failed())
	for _, st := range res.Report.Steps {
		assert.NotEqual(t, StepAchievements, st.Step)
	}
	assert.Error(t, res.Report.Err())
	assert.Empty(t, res.NewAchievements)

	// the event itself is durable
	records, err := h.completions.ListByUser(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// a later rebuild repairs the derived state
	h.records.saveErr = nil
	h.stats.upsertErr = nil
	h.feed.createErr = nil
	rebuilt, err := h.progress.Rebuild(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilt.Stats.TotalWorkouts)
	assert.Equal(t, 1, rebuilt.PersonalRecords)
	assert.Equal(t, []string{"first-workout"}, achievementIDs(rebuilt.NewAchievements))
}

func TestCompleteWorkoutIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.user(t, "alice")
	s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))

	first, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "key-1")
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "key-1")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Empty(t, second.NewAchievements)

	stored, err := h.sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CompletionCount)
	assert.Len(t, h.feed.byKind(domain.PostKindWorkout), 1)

	pr, err := h.records.Get(ctx, u.ID, "Bench Press")
	require.NoError(t, err)
	assert.Equal(t, 1, pr.TimesPerformed)

	// a different key is a new completion
	third, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "key-2")
	require.NoError(t, err)
	assert.False(t, third.Replayed)
	assert.NotEqual(t, first.Record.ID, third.Record.ID)
}

func TestCompleteWorkoutWithoutKeyCountsTwice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.user(t, "alice")
	s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))

	for i := 0; i < 2; i++ {
		_, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
		require.NoError(t, err)
	}

	stored, err := h.sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CompletionCount)

	stats, err := h.stats.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalWorkouts)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestCompleteWorkoutLock(t *testing.T) {
	ctx := context.Background()

	t.Run("timeout aborts", func(t *testing.T) {
		h := newHarness(t)
		h.orchestrator.locker = &stubLocker{err: domain.ErrLockTimeout}
		u := h.user(t, "alice")
		s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))

		_, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
		assert.ErrorIs(t, err, domain.ErrLockTimeout)
		assert.Empty(t, h.completions.records)
	})

	t.Run("backend failure runs unserialized", func(t *testing.T) {
		h := newHarness(t)
		h.orchestrator.locker = &stubLocker{err: errors.New("redis down")}
		u := h.user(t, "alice")
		s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))

		res, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
		require.NoError(t, err)
		assert.NotNil(t, res.Record)
	})

	t.Run("lock is released", func(t *testing.T) {
		h := newHarness(t)
		locker := &stubLocker{}
		h.orchestrator.locker = locker
		u := h.user(t, "alice")
		s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))

		_, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
		require.NoError(t, err)
		_, err = h.orchestrator.CompleteWorkout(ctx, u.ID, "000000000000000000000000", "")
		require.Error(t, err)
		assert.Equal(t, 2, locker.held)
		assert.Equal(t, 2, locker.freed)
	})
}

func TestDeletedSessionKeepsHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.user(t, "alice")
	s := h.session(t, u.ID, "Push", strength("Bench Press", 3, 10, 60))

	_, err := h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
	require.NoError(t, err)
	require.NoError(t, h.workouts.DeleteSession(ctx, u.ID, s.ID))

	completions, err := h.workouts.ListCompletions(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, completions, 1)

	rebuilt, err := h.progress.Rebuild(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilt.Stats.TotalWorkouts)

	_, err = h.orchestrator.CompleteWorkout(ctx, u.ID, s.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
