package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/mansoorceksport/fittrack/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pipeline steps, in execution order
const (
	StepAppend          = "append"
	StepPersonalRecords = "personal_records"
	StepStats           = "stats"
	StepAchievements    = "achievements"
	StepWorkoutPost     = "workout_post"
	StepCache           = "cache"
)

// StepResult is the outcome of one pipeline step
type StepResult struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	err   error
}

// CompletionReport collects step outcomes of one completion
type CompletionReport struct {
	Steps []StepResult `json:"steps"`
}

func (r *CompletionReport) record(step string, err error) {
	res := StepResult{Step: step, OK: err == nil, err: err}
	if err != nil {
		res.Error = err.Error()
	}
	r.Steps = append(r.Steps, res)
}

// Err combines the failures of every step, nil when all succeeded.
func (r *CompletionReport) Err() error {
	var errs error
	for _, s := range r.Steps {
		if s.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Step, s.err))
		}
	}
	return errs
}

// Failed lists the names of failed steps
func (r *CompletionReport) Failed() []string {
	var out []string
	for _, s := range r.Steps {
		if !s.OK {
			out = append(out, s.Step)
		}
	}
	return out
}

// CompletionResult is what CompleteWorkout returns
type CompletionResult struct {
	Record          *domain.CompletionRecord
	NewAchievements []*domain.Achievement
	Replayed        bool
	Report          CompletionReport
}

// snapshot is the input of one pipeline run
type snapshot struct {
	userID         string
	source         domain.CompletionSource
	sessionID      string
	sessionName    string
	challengeID    string
	idempotencyKey string
	exercises      []domain.ExercisePlan
	postContent    string
}

// CompletionOrchestrator runs append, record update, stats recompute, achievement
// evaluation, feed post and cache invalidation for one completion. Only the append
// (and the session lookup before it) can fail the call.
type CompletionOrchestrator struct {
	sessions    domain.WorkoutSessionRepository
	completions domain.CompletionRepository
	records     *RecordTracker
	stats       *StatsAggregator
	evaluator   *AchievementEvaluator
	feed        domain.FeedRepository
	cache       domain.CacheRepository
	locker      domain.UserLocker
	metrics     *telemetry.DomainMetrics
	now         func() time.Time
	log         *zap.Logger
}

// NewCompletionOrchestrator wires the pipeline. cache and locker may be nil.
func NewCompletionOrchestrator(
	sessions domain.WorkoutSessionRepository,
	completions domain.CompletionRepository,
	records *RecordTracker,
	stats *StatsAggregator,
	evaluator *AchievementEvaluator,
	feed domain.FeedRepository,
	cache domain.CacheRepository,
	locker domain.UserLocker,
	metrics *telemetry.DomainMetrics,
	log *zap.Logger,
) *CompletionOrchestrator {
	return &CompletionOrchestrator{
		sessions:    sessions,
		completions: completions,
		records:     records,
		stats:       stats,
		evaluator:   evaluator,
		feed:        feed,
		cache:       cache,
		locker:      locker,
		metrics:     metrics,
		now:         time.Now,
		log:         log.Named("completion"),
	}
}

// CompleteWorkout records a completion of one of the user's own sessions.
// A non-empty idempotencyKey that was already used replays the stored completion.
func (o *CompletionOrchestrator) CompleteWorkout(ctx context.Context, userID, sessionID, idempotencyKey string) (*CompletionResult, error) {
	unlock, err := o.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if res, ok := o.replay(ctx, userID, idempotencyKey); ok {
		return res, nil
	}

	session, err := o.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		// Other users' sessions are invisible here
		return nil, domain.NewNotFoundError("workout session", sessionID)
	}

	return o.run(ctx, snapshot{
		userID:         userID,
		source:         domain.SourceSession,
		sessionID:      session.ID,
		sessionName:    session.Name,
		idempotencyKey: idempotencyKey,
		exercises:      session.Exercises,
		postContent:    fmt.Sprintf("Completed %s", session.Name),
	})
}

// completeChallenge records the challenged user's run of the challenger's session.
// The challenger's session counter is left untouched.
func (o *CompletionOrchestrator) completeChallenge(ctx context.Context, userID string, c *domain.Challenge, session *domain.WorkoutSession, idempotencyKey string) (*CompletionResult, error) {
	unlock, err := o.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if res, ok := o.replay(ctx, userID, idempotencyKey); ok {
		return res, nil
	}

	return o.run(ctx, snapshot{
		userID:         userID,
		source:         domain.SourceChallenge,
		sessionID:      session.ID,
		sessionName:    session.Name,
		challengeID:    c.ID,
		idempotencyKey: idempotencyKey,
		exercises:      session.Exercises,
		postContent:    fmt.Sprintf("Completed a challenge from %s: %s", c.ChallengerName, session.Name),
	})
}

func (o *CompletionOrchestrator) lock(ctx context.Context, userID string) (func(), error) {
	if o.locker == nil {
		return func() {}, nil
	}
	unlock, err := o.locker.Lock(ctx, userID)
	switch {
	case err == nil:
		return unlock, nil
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		o.log.Warn("completion lock unavailable, running unserialized",
			zap.String("user_id", userID), zap.Error(err))
		return func() {}, nil
	}
}

func (o *CompletionOrchestrator) replay(ctx context.Context, userID, key string) (*CompletionResult, bool) {
	if key == "" {
		return nil, false
	}
	record, err := o.completions.GetByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			o.log.Warn("idempotency lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	o.metrics.CompletionRecorded(ctx, string(record.Source), true)
	return &CompletionResult{
		Record:          record,
		NewAchievements: []*domain.Achievement{},
		Replayed:        true,
	}, true
}

func (o *CompletionOrchestrator) run(ctx context.Context, in snapshot) (*CompletionResult, error) {
	ctx, span := otel.Tracer("fittrack/completion").Start(ctx, "completion.run",
		trace.WithAttributes(
			attribute.String("user.id", in.userID),
			attribute.String("completion.source", string(in.source)),
		),
	)
	defer span.End()

	completedAt := o.now().UTC()
	record, entries := buildCompletion(in, completedAt)

	result := &CompletionResult{Record: record, NewAchievements: []*domain.Achievement{}}

	// Fatal step
	if err := o.completions.Append(ctx, record, entries); err != nil {
		if errors.Is(err, domain.ErrConflict) && in.idempotencyKey != "" {
			if res, ok := o.replay(ctx, in.userID, in.idempotencyKey); ok {
				return res, nil
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}
	result.Report.record(StepAppend, nil)
	o.metrics.CompletionRecorded(ctx, string(in.source), false)

	fields := []zap.Field{
		zap.String("user_id", in.userID),
		zap.String("session_id", in.sessionID),
		zap.String("completion_id", record.ID),
	}

	// Advisory steps
	o.step(ctx, &result.Report, StepPersonalRecords, fields, func(ctx context.Context) error {
		return o.records.RecordCompletion(ctx, in.userID, record.Exercises, completedAt)
	})

	var fresh FreshStats
	statsOK := o.step(ctx, &result.Report, StepStats, fields, func(ctx context.Context) error {
		var err error
		fresh, err = o.stats.Recompute(ctx, in.userID)
		return err
	})

	if statsOK {
		o.step(ctx, &result.Report, StepAchievements, fields, func(ctx context.Context) error {
			unlocked, err := o.evaluator.Evaluate(ctx, in.userID, fresh)
			if unlocked != nil {
				result.NewAchievements = unlocked
			}
			return err
		})
	}

	o.step(ctx, &result.Report, StepWorkoutPost, fields, func(ctx context.Context) error {
		return o.feed.Create(ctx, &domain.FeedPost{
			ID:        generateULID(),
			UserID:    in.userID,
			Kind:      domain.PostKindWorkout,
			Content:   in.postContent,
			WorkoutID: in.sessionID,
			CreatedAt: completedAt,
		})
	})

	if o.cache != nil {
		o.step(ctx, &result.Report, StepCache, fields, func(ctx context.Context) error {
			keys := append(domain.UserCacheKeys(in.userID), domain.LeaderboardCacheKeys()...)
			return o.cache.Delete(ctx, keys...)
		})
	}

	span.SetAttributes(
		attribute.String("completion.id", record.ID),
		attribute.Int("completion.unlocked", len(result.NewAchievements)),
	)
	return result, nil
}

// step runs one advisory step in its own span and logs its failure.
func (o *CompletionOrchestrator) step(ctx context.Context, report *CompletionReport, name string, fields []zap.Field, fn func(context.Context) error) bool {
	ctx, span := otel.Tracer("fittrack/completion").Start(ctx, "completion."+name)
	defer span.End()

	err := fn(ctx)
	report.record(name, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		o.metrics.StepFailed(ctx, name)
		o.log.Warn("completion step failed",
			append(fields, zap.String("step", name), zap.Error(err))...)
		return false
	}
	return true
}

// buildCompletion freezes the exercises into a record and its history rows,
// all stamped with the same instant.
func buildCompletion(in snapshot, completedAt time.Time) (*domain.CompletionRecord, []*domain.ExerciseHistoryEntry) {
	exercises := make([]domain.ExercisePlan, len(in.exercises))
	for i, ex := range in.exercises {
		exercises[i] = ex.Clone()
	}

	record := &domain.CompletionRecord{
		ID:             generateULID(),
		UserID:         in.userID,
		SessionID:      in.sessionID,
		SessionName:    in.sessionName,
		ChallengeID:    in.challengeID,
		Source:         in.source,
		IdempotencyKey: in.idempotencyKey,
		CompletedAt:    completedAt,
		Exercises:      exercises,
	}

	entries := make([]*domain.ExerciseHistoryEntry, len(exercises))
	for i, ex := range exercises {
		snap := ex.Clone()
		entries[i] = &domain.ExerciseHistoryEntry{
			ID:           generateULID(),
			UserID:       in.userID,
			CompletionID: record.ID,
			SessionID:    in.sessionID,
			Position:     i,
			ExerciseName: snap.Name,
			Category:     snap.Category,
			Sets:         snap.Sets,
			Reps:         snap.Reps,
			Weight:       snap.Weight,
			Duration:     snap.Duration,
			Distance:     snap.Distance,
			CompletedAt:  completedAt,
		}
	}
	return record, entries
}
