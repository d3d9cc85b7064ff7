package domain

import (
	"context"
	"time"
)

// DefaultProfileColor is the accent color shown until a user picks one.
const DefaultProfileColor = "#2563eb"

// Profile is the public card and privacy settings of a user
type Profile struct {
	Bio              string `bson:"bio" json:"bio"`
	Location         string `bson:"location" json:"location"`
	FitnessGoal      string `bson:"fitness_goal" json:"fitness_goal"`
	ProfilePicture   string `bson:"profile_picture" json:"profile_picture"`
	ProfileColor     string `bson:"profile_color" json:"profile_color"`
	ShowWorkouts     bool   `bson:"show_workouts" json:"show_workouts"`
	ShowAchievements bool   `bson:"show_achievements" json:"show_achievements"`
	ShowStats        bool   `bson:"show_stats" json:"show_stats"`
}

// DefaultProfile returns the settings of a freshly created account.
func DefaultProfile() Profile {
	return Profile{
		ProfileColor:     DefaultProfileColor,
		ShowWorkouts:     true,
		ShowAchievements: true,
		ShowStats:        true,
	}
}

// User represents an account
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Email        string    `bson:"email" json:"email"`
	DisplayName  string    `bson:"display_name" json:"display_name"`
	PasswordHash string    `bson:"password_hash,omitempty" json:"-"`
	FirebaseUID  string    `bson:"firebase_uid,omitempty" json:"-"`
	Profile      Profile   `bson:"profile" json:"profile"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// UserSummary is the compact card used in search results and follow lists.
type UserSummary struct {
	ID             string `bson:"_id" json:"id"`
	DisplayName    string `bson:"display_name" json:"display_name"`
	Email          string `bson:"email,omitempty" json:"email,omitempty"`
	Bio            string `bson:"bio" json:"bio"`
	ProfilePicture string `bson:"profile_picture" json:"profile_picture"`
	ProfileColor   string `bson:"profile_color" json:"profile_color"`
	FollowersCount int    `bson:"followers_count" json:"followers_count"`
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*User, error)
	UpdateFirebaseUID(ctx context.Context, id, uid string) error
	UpdateProfile(ctx context.Context, id string, profile Profile) error
	// Search matches display name or email case-insensitively, excluding one user id,
	// ordered by follower count.
	Search(ctx context.Context, query, excludeID string, limit int64) ([]*UserSummary, error)
	GetSummaries(ctx context.Context, ids []string) ([]*UserSummary, error)
}
