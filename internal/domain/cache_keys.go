package domain

const (
	statsKeyPrefix       = "user:stats:"
	recordsKeyPrefix     = "user:records:"
	leaderboardKeyPrefix = "leaderboard:"
)

// StatsCacheKey is the cache key of a user's progress stats
func StatsCacheKey(userID string) string { return statsKeyPrefix + userID }

// RecordsCacheKey is the cache key of a user's personal record list
func RecordsCacheKey(userID string) string { return recordsKeyPrefix + userID }

// LeaderboardCacheKey is the cache key of one leaderboard ranking
func LeaderboardCacheKey(criteria string) string { return leaderboardKeyPrefix + criteria }

// UserCacheKeys lists every per-user key a completion makes stale
func UserCacheKeys(userID string) []string {
	return []string{StatsCacheKey(userID), RecordsCacheKey(userID)}
}

// LeaderboardCacheKeys lists the keys of every leaderboard ranking
func LeaderboardCacheKeys() []string {
	return []string{
		LeaderboardCacheKey(LeaderboardXP),
		LeaderboardCacheKey(LeaderboardWorkouts),
		LeaderboardCacheKey(LeaderboardStreak),
	}
}
