package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.uber.org/zap"
)

// ProfileService reads and edits a user's own profile
type ProfileService struct {
	users domain.UserRepository
	files domain.FileRepository // nil when object storage is not configured
	log   *zap.Logger
}

func NewProfileService(users domain.UserRepository, files domain.FileRepository, log *zap.Logger) *ProfileService {
	return &ProfileService{users: users, files: files, log: log.Named("profile")}
}

// UpdateProfileRequest is a partial update; nil fields are left alone.
type UpdateProfileRequest struct {
	Bio              *string `json:"bio" validate:"omitempty,max=500"`
	Location         *string `json:"location" validate:"omitempty,max=100"`
	FitnessGoal      *string `json:"fitness_goal" validate:"omitempty,max=200"`
	ProfileColor     *string `json:"profile_color" validate:"omitempty,hexcolor"`
	ShowWorkouts     *bool   `json:"show_workouts"`
	ShowAchievements *bool   `json:"show_achievements"`
	ShowStats        *bool   `json:"show_stats"`
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Profile.ProfileColor == "" {
		user.Profile.ProfileColor = domain.DefaultProfileColor
	}
	return user, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &user.Profile
	if req.Bio != nil {
		p.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Location != nil {
		p.Location = strings.TrimSpace(*req.Location)
	}
	if req.FitnessGoal != nil {
		p.FitnessGoal = strings.TrimSpace(*req.FitnessGoal)
	}
	if req.ProfileColor != nil {
		p.ProfileColor = *req.ProfileColor
	}
	if req.ShowWorkouts != nil {
		p.ShowWorkouts = *req.ShowWorkouts
	}
	if req.ShowAchievements != nil {
		p.ShowAchievements = *req.ShowAchievements
	}
	if req.ShowStats != nil {
		p.ShowStats = *req.ShowStats
	}

	if err := s.users.UpdateProfile(ctx, userID, user.Profile); err != nil {
		return nil, err
	}
	return user, nil
}

// UploadProfilePicture stores an image and points the profile at it
func (s *ProfileService) UploadProfilePicture(ctx context.Context, userID, filename, contentType string, data []byte) (string, error) {
	if s.files == nil {
		return "", domain.ErrStorageUnavailable
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", domain.NewValidationError("file", "must be an image")
	}
	if len(data) == 0 {
		return "", domain.NewValidationError("file", "is empty")
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("profile-pictures/%s/%s%s", userID, generateULID(), strings.ToLower(path.Ext(filename)))
	url, err := s.files.Upload(ctx, data, key, contentType)
	if err != nil {
		return "", domain.NewStorageError("upload profile picture", err)
	}

	user.Profile.ProfilePicture = url
	if err := s.users.UpdateProfile(ctx, userID, user.Profile); err != nil {
		return "", err
	}
	s.log.Info("profile picture updated", zap.String("user_id", userID))
	return url, nil
}
