package service

import (
	"context"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.uber.org/zap"
)

// ProgressService serves the read side of progress tracking and full rebuilds
type ProgressService struct {
	completions domain.CompletionRepository
	records     *RecordTracker
	stats       *StatsAggregator
	evaluator   *AchievementEvaluator
	cache       domain.CacheRepository
	log         *zap.Logger
}

func NewProgressService(
	completions domain.CompletionRepository,
	records *RecordTracker,
	stats *StatsAggregator,
	evaluator *AchievementEvaluator,
	cache domain.CacheRepository,
	log *zap.Logger,
) *ProgressService {
	return &ProgressService{
		completions: completions,
		records:     records,
		stats:       stats,
		evaluator:   evaluator,
		cache:       cache,
		log:         log.Named("progress"),
	}
}

// GetProgressStats returns the stored stats, zeroed before the first completion
func (s *ProgressService) GetProgressStats(ctx context.Context, userID string) (*domain.ProgressStats, error) {
	return s.stats.Get(ctx, userID)
}

// GetPersonalRecords lists records, most performed first
func (s *ProgressService) GetPersonalRecords(ctx context.Context, userID string) ([]*domain.PersonalRecord, error) {
	return s.records.List(ctx, userID)
}

func (s *ProgressService) GetAchievements(ctx context.Context, userID string) ([]*domain.AchievementView, error) {
	return s.evaluator.View(ctx, userID)
}

// RebuildResult summarizes one rebuild
type RebuildResult struct {
	UserID          string                `json:"user_id"`
	Stats           *domain.ProgressStats `json:"stats"`
	PersonalRecords int                   `json:"personal_records"`
	NewAchievements []*domain.Achievement `json:"new_achievements"`
	DryRun          bool                  `json:"dry_run"`
}

// Rebuild recomputes stats and personal records from the event store, then
// evaluates achievements against the fresh stats. A dry run writes nothing.
func (s *ProgressService) Rebuild(ctx context.Context, userID string, dryRun bool) (*RebuildResult, error) {
	out := &RebuildResult{UserID: userID, DryRun: dryRun, NewAchievements: []*domain.Achievement{}}

	if dryRun {
		stats, err := s.stats.Compute(ctx, userID)
		if err != nil {
			return nil, err
		}
		entries, err := s.completions.ListHistoryByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		out.Stats = stats
		out.PersonalRecords = len(FoldRecords(userID, entries))
		return out, nil
	}

	entries, err := s.completions.ListHistoryByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.Rebuild(ctx, userID, entries)
	if err != nil {
		return nil, err
	}
	out.PersonalRecords = len(records)

	fresh, err := s.stats.Recompute(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Stats = fresh.Stats()

	unlocked, err := s.evaluator.Evaluate(ctx, userID, fresh)
	if unlocked != nil {
		out.NewAchievements = unlocked
	}
	if err != nil {
		s.log.Warn("rebuild evaluation incomplete", zap.String("user_id", userID), zap.Error(err))
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, domain.UserCacheKeys(userID)...)
	}
	s.log.Info("progress rebuilt",
		zap.String("user_id", userID),
		zap.Int("personal_records", out.PersonalRecords),
		zap.Int("new_achievements", len(out.NewAchievements)),
	)
	return out, nil
}

// RebuildAll rebuilds every user with at least one completion
func (s *ProgressService) RebuildAll(ctx context.Context, dryRun bool, each func(*RebuildResult, error)) error {
	ids, err := s.completions.ListUserIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := s.Rebuild(ctx, id, dryRun)
		if res == nil {
			res = &RebuildResult{UserID: id, DryRun: dryRun}
		}
		each(res, err)
	}
	return nil
}
