package service

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

func generateULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// WorkoutService manages a user's planned sessions and completion history
type WorkoutService struct {
	sessions    domain.WorkoutSessionRepository
	completions domain.CompletionRepository
	users       domain.UserRepository
	log         *zap.Logger
}

func NewWorkoutService(
	sessions domain.WorkoutSessionRepository,
	completions domain.CompletionRepository,
	users domain.UserRepository,
	log *zap.Logger,
) *WorkoutService {
	return &WorkoutService{
		sessions:    sessions,
		completions: completions,
		users:       users,
		log:         log.Named("workouts"),
	}
}

type ExerciseInput struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Type     string   `json:"type" validate:"max=50"`
	Category string   `json:"category" validate:"required,oneof=strength cardio flexibility bodyweight"`
	Sets     *int     `json:"sets" validate:"omitempty,gte=0"`
	Reps     *int     `json:"reps" validate:"omitempty,gte=0"`
	Weight   *float64 `json:"weight" validate:"omitempty,gte=0"`
	Duration *float64 `json:"duration" validate:"omitempty,gte=0"`
	Distance *float64 `json:"distance" validate:"omitempty,gte=0"`
}

type CreateSessionRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	ScheduledDate *time.Time      `json:"scheduled_date"`
	Exercises     []ExerciseInput `json:"exercises" validate:"required,min=1,dive"`
}

// PublicSession is a session as shown to other users
type PublicSession struct {
	*domain.WorkoutSession
	OwnerName string `json:"owner_name"`
}

func (s *WorkoutService) CreateSession(ctx context.Context, userID string, req CreateSessionRequest) (*domain.WorkoutSession, error) {
	req.Name = strings.TrimSpace(req.Name)
	for i := range req.Exercises {
		req.Exercises[i].Name = strings.TrimSpace(req.Exercises[i].Name)
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	scheduled := time.Now().UTC()
	if req.ScheduledDate != nil {
		scheduled = req.ScheduledDate.UTC()
	}

	session := &domain.WorkoutSession{
		UserID:        userID,
		Name:          req.Name,
		ScheduledDate: scheduled,
		Exercises:     make([]domain.ExercisePlan, 0, len(req.Exercises)),
	}
	for _, ex := range req.Exercises {
		session.Exercises = append(session.Exercises, domain.ExercisePlan{
			Name:     ex.Name,
			Type:     ex.Type,
			Category: domain.Category(ex.Category),
			Sets:     ex.Sets,
			Reps:     ex.Reps,
			Weight:   ex.Weight,
			Duration: ex.Duration,
			Distance: ex.Distance,
		})
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	s.log.Debug("session created", zap.String("user_id", userID), zap.String("session_id", session.ID))
	return session, nil
}

func (s *WorkoutService) ListSessions(ctx context.Context, userID string) ([]*domain.WorkoutSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// GetSession returns one of the user's own sessions
func (s *WorkoutService) GetSession(ctx context.Context, userID, id string) (*domain.WorkoutSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.NewNotFoundError("workout session", id)
	}
	return session, nil
}

// DeleteSession removes the plan only. Completions, history and everything
// derived from them stay.
func (s *WorkoutService) DeleteSession(ctx context.Context, userID, id string) error {
	if _, err := s.GetSession(ctx, userID, id); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("session deleted", zap.String("user_id", userID), zap.String("session_id", id))
	return nil
}

func (s *WorkoutService) ListCompletions(ctx context.Context, userID string, limit int64) ([]*domain.CompletionRecord, error) {
	return s.completions.ListByUser(ctx, userID, limit)
}

// GetPublicSession shows any session with its owner's display name
func (s *WorkoutService) GetPublicSession(ctx context.Context, id string) (*PublicSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &PublicSession{WorkoutSession: session}
	if owner, err := s.users.GetByID(ctx, session.UserID); err == nil {
		out.OwnerName = owner.DisplayName
	}
	return out, nil
}
