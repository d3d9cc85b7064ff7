package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/mansoorceksport/fittrack/internal/telemetry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AchievementEvaluator unlocks catalog entries whose thresholds the user's stats reach.
// Unlocks are never revoked.
type AchievementEvaluator struct {
	achievements domain.AchievementRepository
	stats        domain.ProgressStatsRepository
	feed         domain.FeedRepository
	metrics      *telemetry.DomainMetrics
	now          func() time.Time
	log          *zap.Logger
}

func NewAchievementEvaluator(
	achievements domain.AchievementRepository,
	stats domain.ProgressStatsRepository,
	feed domain.FeedRepository,
	metrics *telemetry.DomainMetrics,
	log *zap.Logger,
) *AchievementEvaluator {
	return &AchievementEvaluator{
		achievements: achievements,
		stats:        stats,
		feed:         feed,
		metrics:      metrics,
		now:          time.Now,
		log:          log.Named("achievements"),
	}
}

// Evaluate checks every locked achievement against freshly recomputed stats.
// It returns the achievements unlocked by this call. Feed post failures are
// returned as an error alongside the unlocked list.
func (e *AchievementEvaluator) Evaluate(ctx context.Context, userID string, fresh FreshStats) ([]*domain.Achievement, error) {
	stats := fresh.Stats()
	if stats == nil {
		return []*domain.Achievement{}, nil
	}
	return e.evaluate(ctx, userID, stats)
}

// EvaluateStored runs the evaluator against the stored stats row. A user without
// a row gets no unlocks.
func (e *AchievementEvaluator) EvaluateStored(ctx context.Context, userID string) ([]*domain.Achievement, error) {
	stats, err := e.stats.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []*domain.Achievement{}, nil
		}
		return nil, err
	}
	return e.evaluate(ctx, userID, stats)
}

func (e *AchievementEvaluator) evaluate(ctx context.Context, userID string, stats *domain.ProgressStats) ([]*domain.Achievement, error) {
	locked, err := e.achievements.ListLocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlocked := []*domain.Achievement{}
	var postErrs error
	for _, a := range locked {
		if !a.IsSatisfied(stats) {
			continue
		}

		now := e.now().UTC()
		err := e.achievements.Unlock(ctx, &domain.UnlockedAchievement{
			UserID:        userID,
			AchievementID: a.ID,
			Progress:      a.RequirementValue,
			Points:        a.Points,
			UnlockedAt:    now,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// unlocked concurrently
				continue
			}
			return unlocked, err
		}
		unlocked = append(unlocked, a)

		post := &domain.FeedPost{
			ID:            generateULID(),
			UserID:        userID,
			Kind:          domain.PostKindAchievement,
			Content:       fmt.Sprintf("Unlocked achievement: %s!", a.Name),
			AchievementID: a.ID,
			CreatedAt:     now,
		}
		if err := e.feed.Create(ctx, post); err != nil {
			postErrs = multierr.Append(postErrs, fmt.Errorf("achievement post %s: %w", a.ID, err))
		}
	}

	if len(unlocked) > 0 {
		e.metrics.AchievementsUnlocked(ctx, len(unlocked))
		e.log.Info("achievements unlocked", zap.String("user_id", userID), zap.Int("count", len(unlocked)))
	}
	return unlocked, postErrs
}

// View lists the whole catalog with the user's unlock state and progress,
// legendary first, then by ascending requirement.
func (e *AchievementEvaluator) View(ctx context.Context, userID string) ([]*domain.AchievementView, error) {
	var (
		catalog  []*domain.Achievement
		unlocked []*domain.UnlockedAchievement
		stats    *domain.ProgressStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = e.achievements.ListCatalog(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unlocked, err = e.achievements.ListUnlocked(gctx, userID)
		return err
	})
	g.Go(func() error {
		s, err := e.stats.Get(gctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			s, err = domain.EmptyProgressStats(userID), nil
		}
		stats = s
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildAchievementViews(catalog, unlocked, stats), nil
}

// BuildAchievementViews joins catalog, unlock rows and stats. Unlocked entries
// report 100 percent; locked ones report progress against current stats.
func BuildAchievementViews(catalog []*domain.Achievement, unlocked []*domain.UnlockedAchievement, stats *domain.ProgressStats) []*domain.AchievementView {
	byID := make(map[string]*domain.UnlockedAchievement, len(unlocked))
	for _, u := range unlocked {
		byID[u.AchievementID] = u
	}

	views := make([]*domain.AchievementView, 0, len(catalog))
	for _, a := range catalog {
		v := &domain.AchievementView{
			Achievement:        *a,
			ProgressPercentage: a.ProgressPercentage(stats),
		}
		if u, ok := byID[a.ID]; ok {
			at := u.UnlockedAt
			v.IsUnlocked = true
			v.UnlockedAt = &at
			v.Progress = u.Progress
			v.ProgressPercentage = 100
		} else if value, ok := a.StatValue(stats); ok {
			v.Progress = value
		}
		views = append(views, v)
	}

	sort.SliceStable(views, func(i, j int) bool {
		ri, rj := domain.RarityRank(views[i].Rarity), domain.RarityRank(views[j].Rarity)
		if ri != rj {
			return ri > rj
		}
		if views[i].RequirementValue != views[j].RequirementValue {
			return views[i].RequirementValue < views[j].RequirementValue
		}
		return views[i].ID < views[j].ID
	})
	return views
}
