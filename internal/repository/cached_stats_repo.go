package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
)

const (
	statsCacheTTL       = 5 * time.Minute
	leaderboardCacheTTL = 60 * time.Second
)

// CachedProgressStatsRepository wraps a stats repository with Redis read-through caching.
// Upsert writes through and refreshes the cached row.
type CachedProgressStatsRepository struct {
	inner domain.ProgressStatsRepository
	cache domain.CacheRepository
}

func NewCachedProgressStatsRepository(inner domain.ProgressStatsRepository, cache domain.CacheRepository) *CachedProgressStatsRepository {
	return &CachedProgressStatsRepository{inner: inner, cache: cache}
}

func (r *CachedProgressStatsRepository) Get(ctx context.Context, userID string) (*domain.ProgressStats, error) {
	key := domain.StatsCacheKey(userID)

	var stats domain.ProgressStats
	if err := r.cache.Get(ctx, key, &stats); err == nil {
		return &stats, nil
	}

	result, err := r.inner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, result, statsCacheTTL)
	return result, nil
}

func (r *CachedProgressStatsRepository) Upsert(ctx context.Context, stats *domain.ProgressStats) error {
	if err := r.inner.Upsert(ctx, stats); err != nil {
		// Drop the cached row so readers fall back to storage
		_ = r.cache.Delete(ctx, domain.StatsCacheKey(stats.UserID))
		return err
	}
	_ = r.cache.Set(ctx, domain.StatsCacheKey(stats.UserID), stats, statsCacheTTL)
	return nil
}

// CachedPersonalRecordRepository caches the per-user record list; any write drops it.
type CachedPersonalRecordRepository struct {
	inner domain.PersonalRecordRepository
	cache domain.CacheRepository
}

func NewCachedPersonalRecordRepository(inner domain.PersonalRecordRepository, cache domain.CacheRepository) *CachedPersonalRecordRepository {
	return &CachedPersonalRecordRepository{inner: inner, cache: cache}
}

func (r *CachedPersonalRecordRepository) Get(ctx context.Context, userID, exerciseName string) (*domain.PersonalRecord, error) {
	return r.inner.Get(ctx, userID, exerciseName)
}

func (r *CachedPersonalRecordRepository) Save(ctx context.Context, pr *domain.PersonalRecord) error {
	if err := r.inner.Save(ctx, pr); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, domain.RecordsCacheKey(pr.UserID))
	return nil
}

func (r *CachedPersonalRecordRepository) ListByUser(ctx context.Context, userID string) ([]*domain.PersonalRecord, error) {
	key := domain.RecordsCacheKey(userID)

	var records []*domain.PersonalRecord
	if err := r.cache.Get(ctx, key, &records); err == nil {
		return records, nil
	}

	result, err := r.inner.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, result, statsCacheTTL)
	return result, nil
}

func (r *CachedPersonalRecordRepository) DeleteByUser(ctx context.Context, userID string) error {
	if err := r.inner.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, domain.RecordsCacheKey(userID))
	return nil
}

// CachedLeaderboardRepository holds each ranking for a minute
type CachedLeaderboardRepository struct {
	inner domain.LeaderboardRepository
	cache domain.CacheRepository
}

func NewCachedLeaderboardRepository(inner domain.LeaderboardRepository, cache domain.CacheRepository) *CachedLeaderboardRepository {
	return &CachedLeaderboardRepository{inner: inner, cache: cache}
}

func (r *CachedLeaderboardRepository) Top(ctx context.Context, criteria string, limit int64) ([]*domain.LeaderboardEntry, error) {
	key := domain.LeaderboardCacheKey(criteria)

	var entries []*domain.LeaderboardEntry
	if err := r.cache.Get(ctx, key, &entries); err == nil && int64(len(entries)) <= limit {
		return entries, nil
	}

	result, err := r.inner.Top(ctx, criteria, limit)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, result, leaderboardCacheTTL)
	return result, nil
}
