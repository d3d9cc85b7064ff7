package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// FirebaseAuthClient defines the interface for Firebase Auth operations
// This allows mocking for tests
type FirebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthService handles registration and login
type AuthService struct {
	userRepo   domain.UserRepository
	tokens     *TokenService
	authClient FirebaseAuthClient
	log        *zap.Logger
}

// NewAuthService creates a new auth service. authClient may be nil when Firebase login is disabled.
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *TokenService,
	authClient FirebaseAuthClient,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		authClient: authClient,
		log:        log.Named("auth"),
	}
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name" validate:"required,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ClientInfo identifies where a refresh token was issued
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// AuthResult is returned by every login flavour
type AuthResult struct {
	User      *domain.User
	Tokens    *TokenPair
	IsNewUser bool
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Profile:      domain.DefaultProfile(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))

	return s.issue(ctx, user, client, true)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(ctx, user, client, false)
}

// LoginWithFirebase verifies a Firebase ID token, then finds the user by firebase uid,
// links an existing account by email, or creates a new one.
func (s *AuthService) LoginWithFirebase(ctx context.Context, idToken string, client ClientInfo) (*AuthResult, error) {
	if s.authClient == nil {
		return nil, domain.ErrFirebaseDisabled
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	email, _ := token.Claims["email"].(string)
	email = normalizeEmail(email)
	name, _ := token.Claims["name"].(string)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	user, err := s.userRepo.GetByFirebaseUID(ctx, token.UID)
	if err == nil {
		return s.issue(ctx, user, client, false)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if email != "" {
		existing, emailErr := s.userRepo.GetByEmail(ctx, email)
		switch {
		case emailErr == nil && existing.FirebaseUID == "":
			if err := s.userRepo.UpdateFirebaseUID(ctx, existing.ID, token.UID); err != nil {
				return nil, err
			}
			existing.FirebaseUID = token.UID
			return s.issue(ctx, existing, client, false)
		case emailErr == nil:
			// Email already linked to a different firebase account
			return nil, domain.ErrEmailTaken
		case !errors.Is(emailErr, domain.ErrNotFound):
			return nil, emailErr
		}
	}

	user = &domain.User{
		Email:       email,
		DisplayName: name,
		FirebaseUID: token.UID,
		Profile:     domain.DefaultProfile(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered via firebase", zap.String("user_id", user.ID))

	return s.issue(ctx, user, client, true)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidCredentials
	}
	return s.tokens.RefreshAccessToken(ctx, refreshToken, client.UserAgent, client.IPAddress)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.RevokeRefreshToken(ctx, refreshToken)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User, client ClientInfo, isNew bool) (*AuthResult, error) {
	pair, err := s.tokens.GenerateTokenPair(ctx, user, client.UserAgent, client.IPAddress)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: pair, IsNewUser: isNew}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
