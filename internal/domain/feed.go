package domain

import (
	"context"
	"time"
)

// Post kinds
const (
	PostKindWorkout     = "workout"
	PostKindAchievement = "achievement"
)

// FeedPost is an entry of the community feed
type FeedPost struct {
	ID            string    `bson:"_id" json:"id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	Kind          string    `bson:"kind" json:"post_type"`
	Content       string    `bson:"content" json:"content"`
	AchievementID string    `bson:"achievement_id,omitempty" json:"achievement_id,omitempty"`
	WorkoutID     string    `bson:"workout_id,omitempty" json:"workout_id,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

// FeedItem is a post joined with its author's card.
type FeedItem struct {
	FeedPost       `bson:",inline"`
	UserName       string `bson:"user_name" json:"user_name"`
	ProfilePicture string `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
	ProfileColor   string `bson:"profile_color,omitempty" json:"profile_color,omitempty"`
}

// FeedFilter narrows a feed listing
type FeedFilter struct {
	// AuthorIDs restricts posts to these authors when non-nil.
	AuthorIDs []string
	Limit     int64
}

// FeedRepository stores feed posts
type FeedRepository interface {
	Create(ctx context.Context, post *FeedPost) error
	List(ctx context.Context, filter FeedFilter) ([]*FeedItem, error)
}
