package service

import (
	"context"
	"testing"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

type harness struct {
	sessions      *memSessions
	completions   *memCompletions
	records       *memRecords
	stats         *memStats
	achievements  *memAchievements
	feed          *memFeed
	users         *memUsers
	follows       *memFollows
	challenges    *memChallenges
	notifications *memNotifications
	cache         *memCache

	tracker      *RecordTracker
	aggregator   *StatsAggregator
	evaluator    *AchievementEvaluator
	orchestrator *CompletionOrchestrator
	progress     *ProgressService
	workouts     *WorkoutService
	challengeSvc *ChallengeService
	community    *CommunityService

	now time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()

	h := &harness{
		sessions:      newMemSessions(),
		records:       newMemRecords(),
		stats:         newMemStats(),
		achievements:  &memAchievements{catalog: DefaultAchievements()},
		feed:          &memFeed{},
		users:         newMemUsers(),
		follows:       &memFollows{},
		challenges:    newMemChallenges(),
		notifications: &memNotifications{},
		cache:         &memCache{},
		now:           fixedNow,
	}
	h.completions = &memCompletions{sessions: h.sessions}
	clock := func() time.Time { return h.now }

	h.tracker = NewRecordTracker(h.records, log)
	h.aggregator = NewStatsAggregator(h.completions, h.stats, time.UTC, log)
	h.aggregator.now = clock
	h.evaluator = NewAchievementEvaluator(h.achievements, h.stats, h.feed, nil, log)
	h.evaluator.now = clock
	h.orchestrator = NewCompletionOrchestrator(h.sessions, h.completions, h.tracker, h.aggregator,
		h.evaluator, h.feed, h.cache, nil, nil, log)
	h.orchestrator.now = clock
	h.progress = NewProgressService(h.completions, h.tracker, h.aggregator, h.evaluator, h.cache, log)
	h.workouts = NewWorkoutService(h.sessions, h.completions, h.users, log)
	h.challengeSvc = NewChallengeService(h.challenges, h.sessions, h.users, h.notifications, h.orchestrator, log)
	h.challengeSvc.now = clock
	h.community = NewCommunityService(h.users, h.follows, h.feed, &memLeaderboard{}, h.notifications,
		h.achievements, h.completions, h.aggregator, log)
	h.community.now = clock
	return h
}

func (h *harness) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{Email: name + "@example.com", DisplayName: name, Profile: domain.DefaultProfile()}
	require.NoError(t, h.users.Create(context.Background(), u))
	return u
}

func (h *harness) session(t *testing.T, userID, name string, exercises ...domain.ExercisePlan) *domain.WorkoutSession {
	t.Helper()
	s := &domain.WorkoutSession{UserID: userID, Name: name, ScheduledDate: h.now, Exercises: exercises}
	require.NoError(t, h.sessions.Create(context.Background(), s))
	return s
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func strength(name string, sets, reps int, weight float64) domain.ExercisePlan {
	return domain.ExercisePlan{Name: name, Category: domain.CategoryStrength, Sets: intp(sets), Reps: intp(reps), Weight: floatp(weight)}
}

func cardio(name string, minutes, miles float64) domain.ExercisePlan {
	return domain.ExercisePlan{Name: name, Category: domain.CategoryCardio, Duration: floatp(minutes), Distance: floatp(miles)}
}
