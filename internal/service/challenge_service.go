package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.uber.org/zap"
)

// ChallengeService lets users dare each other to perform one of their sessions
type ChallengeService struct {
	challenges    domain.ChallengeRepository
	sessions      domain.WorkoutSessionRepository
	users         domain.UserRepository
	notifications domain.NotificationRepository
	orchestrator  *CompletionOrchestrator
	now           func() time.Time
	log           *zap.Logger
}

func NewChallengeService(
	challenges domain.ChallengeRepository,
	sessions domain.WorkoutSessionRepository,
	users domain.UserRepository,
	notifications domain.NotificationRepository,
	orchestrator *CompletionOrchestrator,
	log *zap.Logger,
) *ChallengeService {
	return &ChallengeService{
		challenges:    challenges,
		sessions:      sessions,
		users:         users,
		notifications: notifications,
		orchestrator:  orchestrator,
		now:           time.Now,
		log:           log.Named("challenges"),
	}
}

type SendChallengeRequest struct {
	ChallengedID string `json:"challenged_id" validate:"required"`
	SessionID    string `json:"workout_session_id" validate:"required"`
	Message      string `json:"message" validate:"max=280"`
}

func (s *ChallengeService) Send(ctx context.Context, challengerID string, req SendChallengeRequest) (*domain.Challenge, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.ChallengedID == challengerID {
		return nil, domain.NewValidationError("challenged_id", "cannot challenge yourself")
	}

	challenged, err := s.users.GetByID(ctx, req.ChallengedID)
	if err != nil {
		return nil, err
	}
	challenger, err := s.users.GetByID(ctx, challengerID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != challengerID {
		return nil, domain.NewNotFoundError("workout session", req.SessionID)
	}

	now := s.now().UTC()
	c := &domain.Challenge{
		ID:             generateULID(),
		ChallengerID:   challengerID,
		ChallengedID:   challenged.ID,
		SessionID:      session.ID,
		SessionName:    session.Name,
		ChallengerName: challenger.DisplayName,
		ChallengedName: challenged.DisplayName,
		Message:        req.Message,
		Status:         domain.ChallengePending,
		ExpiresAt:      now.Add(domain.ChallengeTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.challenges.Create(ctx, c); err != nil {
		return nil, err
	}

	s.notify(ctx, &domain.Notification{
		ID:          generateULID(),
		UserID:      challenged.ID,
		Kind:        domain.NotificationChallenge,
		FromUserID:  challengerID,
		ReferenceID: c.ID,
		Message:     fmt.Sprintf("%s challenged you to %s", challenger.DisplayName, session.Name),
		CreatedAt:   now,
	})
	return c, nil
}

func (s *ChallengeService) ListReceived(ctx context.Context, userID string) ([]*domain.Challenge, error) {
	return s.challenges.ListReceived(ctx, userID, s.now())
}

func (s *ChallengeService) ListSent(ctx context.Context, userID string) ([]*domain.Challenge, error) {
	return s.challenges.ListSent(ctx, userID, s.now())
}

// Respond accepts or declines a pending challenge addressed to the user
func (s *ChallengeService) Respond(ctx context.Context, userID, id, action string) (*domain.Challenge, error) {
	var status string
	switch action {
	case "accept":
		status = domain.ChallengeAccepted
	case "decline":
		status = domain.ChallengeDeclined
	default:
		return nil, domain.NewValidationError("action", "must be accept or decline")
	}

	c, err := s.challenges.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ChallengedID != userID {
		return nil, domain.ErrForbidden
	}
	if c.Status != domain.ChallengePending || !c.IsOpen(s.now()) {
		return nil, domain.ErrConflict
	}

	if err := s.challenges.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	c.Status = status
	return c, nil
}

// Cancel deletes a challenge; only its sender may do so
func (s *ChallengeService) Cancel(ctx context.Context, userID, id string) error {
	c, err := s.challenges.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.ChallengerID != userID {
		return domain.ErrForbidden
	}
	return s.challenges.Delete(ctx, id)
}

// Complete runs the completion pipeline on the challenger's session for the
// challenged user and closes the challenge.
func (s *ChallengeService) Complete(ctx context.Context, userID, id, idempotencyKey string) (*CompletionResult, error) {
	c, err := s.challenges.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ChallengedID != userID {
		return nil, domain.ErrForbidden
	}
	if !c.IsOpen(s.now()) {
		return nil, domain.ErrConflict
	}

	session, err := s.sessions.GetByID(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.completeChallenge(ctx, userID, c, session, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if result.Replayed {
		return result, nil
	}

	if err := s.challenges.UpdateStatus(ctx, id, domain.ChallengeCompleted); err != nil {
		s.log.Warn("challenge completed but status update failed",
			zap.String("challenge_id", id), zap.Error(err))
		result.Report.record("challenge_status", err)
	}
	return result, nil
}

func (s *ChallengeService) notify(ctx context.Context, n *domain.Notification) {
	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Warn("notification not stored", zap.String("user_id", n.UserID), zap.Error(err))
	}
}
