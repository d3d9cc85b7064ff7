package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/fittrack/internal/service"
	"go.uber.org/zap"
)

// RefreshCookieName carries the opaque refresh token
const RefreshCookieName = "fittrack-refresh-token"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService   *service.AuthService
	refreshExpiry time.Duration
	secureCookie  bool
	log           *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, refreshExpiry time.Duration, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		refreshExpiry: refreshExpiry,
		secureCookie:  secureCookie,
		log:           log,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.authService.Register(c.UserContext(), req, clientInfo(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.respondAuth(c.Status(fiber.StatusCreated), res, "Welcome to FitTrack!")
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.authService.Login(c.UserContext(), req, clientInfo(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.respondAuth(c, res, "Welcome back, "+res.User.DisplayName+"!")
}

// LoginWithFirebase handles POST /v1/auth/firebase
func (h *AuthHandler) LoginWithFirebase(c *fiber.Ctx) error {
	// Get Firebase token from Authorization header
	token := strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing Authorization header",
		})
	}

	res, err := h.authService.LoginWithFirebase(c.UserContext(), token, clientInfo(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	msg := "Welcome back, " + res.User.DisplayName + "!"
	if res.IsNewUser {
		msg = "Welcome to FitTrack!"
	}
	return h.respondAuth(c, res, msg)
}

// Refresh handles POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := h.refreshToken(c)
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No refresh token provided",
		})
	}

	pair, err := h.authService.Refresh(c.UserContext(), refreshToken, clientInfo(c))
	if err != nil {
		h.clearRefreshCookie(c)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(fiber.Map{
		"token":      pair.AccessToken,
		"expires_in": pair.ExpiresIn,
	})
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if refreshToken := h.refreshToken(c); refreshToken != "" {
		if err := h.authService.Logout(c.UserContext(), refreshToken); err != nil {
			// the cookie is cleared either way
			h.log.Warn("revoke refresh token", zap.Error(err))
		}
	}

	h.clearRefreshCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) respondAuth(c *fiber.Ctx, res *service.AuthResult, message string) error {
	h.setRefreshCookie(c, res.Tokens.RefreshToken)
	return c.JSON(fiber.Map{
		"token":       res.Tokens.AccessToken,
		"expires_in":  res.Tokens.ExpiresIn,
		"is_new_user": res.IsNewUser,
		"message":     message,
		"user": fiber.Map{
			"id":           res.User.ID,
			"email":        res.User.Email,
			"display_name": res.User.DisplayName,
		},
	})
}

// refreshToken reads the cookie first, then a JSON body for non-browser clients
func (h *AuthHandler) refreshToken(c *fiber.Ctx) string {
	if token := c.Cookies(RefreshCookieName); token != "" {
		return token
	}
	var req refreshRequest
	if len(c.Body()) > 0 && c.BodyParser(&req) == nil {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Expires:  time.Now().Add(h.refreshExpiry),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: "Lax",
		Path:     "/",
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: "Lax",
		Path:     "/",
	})
}

func clientInfo(c *fiber.Ctx) service.ClientInfo {
	return service.ClientInfo{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	}
}
