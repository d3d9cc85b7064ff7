package domain

import (
	"context"
	"time"
)

// Follow is a directed edge of the social graph
type Follow struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	FollowerID  string    `bson:"follower_id" json:"follower_id"`
	FollowingID string    `bson:"following_id" json:"following_id"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// FollowRepository persists follow edges
type FollowRepository interface {
	// Toggle creates the edge when absent or removes it when present and reports
	// whether the follower now follows the target.
	Toggle(ctx context.Context, followerID, followingID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
	// ListFollowingIDs returns whom the user follows, newest edge first.
	ListFollowingIDs(ctx context.Context, userID string) ([]string, error)
}

// Challenge statuses
const (
	ChallengePending   = "pending"
	ChallengeAccepted  = "accepted"
	ChallengeDeclined  = "declined"
	ChallengeCompleted = "completed"
	ChallengeExpired   = "expired"
)

// ChallengeTTL is how long a challenge stays open.
const ChallengeTTL = 7 * 24 * time.Hour

// Challenge invites another user to perform one of the challenger's sessions
type Challenge struct {
	ID             string    `bson:"_id" json:"id"`
	ChallengerID   string    `bson:"challenger_id" json:"challenger_id"`
	ChallengedID   string    `bson:"challenged_id" json:"challenged_id"`
	SessionID      string    `bson:"session_id" json:"workout_session_id"`
	SessionName    string    `bson:"session_name" json:"workout_name"`
	ChallengerName string    `bson:"challenger_name" json:"challenger_name"`
	ChallengedName string    `bson:"challenged_name" json:"challenged_name"`
	Message        string    `bson:"message" json:"message"`
	Status         string    `bson:"status" json:"status"`
	ExpiresAt      time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the challenge can still be answered or completed at now.
func (c *Challenge) IsOpen(now time.Time) bool {
	if c.Status != ChallengePending && c.Status != ChallengeAccepted {
		return false
	}
	return now.Before(c.ExpiresAt)
}

// ChallengeRepository persists challenges
type ChallengeRepository interface {
	Create(ctx context.Context, c *Challenge) error
	GetByID(ctx context.Context, id string) (*Challenge, error)
	// ListReceived and ListSent skip expired challenges, newest first.
	ListReceived(ctx context.Context, userID string, now time.Time) ([]*Challenge, error)
	ListSent(ctx context.Context, userID string, now time.Time) ([]*Challenge, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// Notification kinds
const (
	NotificationFollow    = "follow"
	NotificationChallenge = "challenge"
)

// Notification is a message addressed to one user
type Notification struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	Kind        string    `bson:"kind" json:"type"`
	FromUserID  string    `bson:"from_user_id" json:"from_user_id"`
	ReferenceID string    `bson:"reference_id,omitempty" json:"reference_id,omitempty"`
	Message     string    `bson:"message" json:"message"`
	Read        bool      `bson:"read" json:"read"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// NotificationRepository persists notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]*Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
}

// LeaderboardEntry is one ranked user
type LeaderboardEntry struct {
	UserID         string `bson:"_id" json:"id"`
	DisplayName    string `bson:"display_name" json:"display_name"`
	ProfilePicture string `bson:"profile_picture" json:"profile_picture"`
	ProfileColor   string `bson:"profile_color" json:"profile_color"`
	TotalWorkouts  int    `bson:"total_workouts" json:"total_workouts"`
	TotalExercises int    `bson:"total_exercises" json:"total_exercises"`
	CurrentStreak  int    `bson:"current_streak" json:"current_streak"`
	LongestStreak  int    `bson:"longest_streak" json:"longest_streak"`
	TotalPoints    int    `bson:"total_points" json:"total_points"`
}

// Leaderboard criteria
const (
	LeaderboardXP       = "xp"
	LeaderboardWorkouts = "workouts"
	LeaderboardStreak   = "streak"
)

// LeaderboardRepository ranks users
type LeaderboardRepository interface {
	Top(ctx context.Context, criteria string, limit int64) ([]*LeaderboardEntry, error)
}
