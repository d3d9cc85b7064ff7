package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/fittrack/internal/middleware"
	"github.com/mansoorceksport/fittrack/internal/service"
	"go.uber.org/zap"
)

// CommunityHandler serves the social endpoints under /v1/community
type CommunityHandler struct {
	communityService *service.CommunityService
	challengeService *service.ChallengeService
	log              *zap.Logger
}

func NewCommunityHandler(
	communityService *service.CommunityService,
	challengeService *service.ChallengeService,
	log *zap.Logger,
) *CommunityHandler {
	return &CommunityHandler{
		communityService: communityService,
		challengeService: challengeService,
		log:              log,
	}
}

// SearchUsers handles GET /v1/community/users/search?q=
func (h *CommunityHandler) SearchUsers(c *fiber.Ctx) error {
	users, err := h.communityService.SearchUsers(c.UserContext(), middleware.GetUserID(c), c.Query("q"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(users)
}

// GetProfile handles GET /v1/community/users/:id/profile
func (h *CommunityHandler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.communityService.GetCommunityProfile(c.UserContext(), middleware.GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(profile)
}

// ToggleFollow handles POST /v1/community/users/:id/follow
func (h *CommunityHandler) ToggleFollow(c *fiber.Ctx) error {
	following, err := h.communityService.ToggleFollow(c.UserContext(), middleware.GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// ListFollowing handles GET /v1/community/following
func (h *CommunityHandler) ListFollowing(c *fiber.Ctx) error {
	users, err := h.communityService.ListFollowing(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(users)
}

// Feed handles GET /v1/community/feed?following=true
func (h *CommunityHandler) Feed(c *fiber.Ctx) error {
	items, err := h.communityService.Feed(c.UserContext(), middleware.GetUserID(c), c.QueryBool("following", false))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(items)
}

// Leaderboard handles GET /v1/community/leaderboard/:criteria
func (h *CommunityHandler) Leaderboard(c *fiber.Ctx) error {
	entries, err := h.communityService.Leaderboard(c.UserContext(), c.Params("criteria"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(entries)
}

// SendChallenge handles POST /v1/community/challenges
func (h *CommunityHandler) SendChallenge(c *fiber.Ctx) error {
	var req service.SendChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	challenge, err := h.challengeService.Send(c.UserContext(), middleware.GetUserID(c), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

// ListReceivedChallenges handles GET /v1/community/challenges/received
func (h *CommunityHandler) ListReceivedChallenges(c *fiber.Ctx) error {
	challenges, err := h.challengeService.ListReceived(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(challenges)
}

// ListSentChallenges handles GET /v1/community/challenges/sent
func (h *CommunityHandler) ListSentChallenges(c *fiber.Ctx) error {
	challenges, err := h.challengeService.ListSent(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(challenges)
}

// RespondChallenge handles POST /v1/community/challenges/:id/:action
func (h *CommunityHandler) RespondChallenge(c *fiber.Ctx) error {
	challenge, err := h.challengeService.Respond(c.UserContext(), middleware.GetUserID(c), c.Params("id"), c.Params("action"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(challenge)
}

// CompleteChallenge handles POST /v1/community/challenges/:id/complete
func (h *CommunityHandler) CompleteChallenge(c *fiber.Ctx) error {
	res, err := h.challengeService.Complete(
		c.UserContext(),
		middleware.GetUserID(c),
		c.Params("id"),
		middleware.IdempotencyKey(c),
	)
	if err != nil {
		return respondError(c, h.log, err)
	}

	body := completionResponse(res)
	body["message"] = "Challenge completed!"
	return c.JSON(body)
}

// CancelChallenge handles DELETE /v1/community/challenges/:id
func (h *CommunityHandler) CancelChallenge(c *fiber.Ctx) error {
	if err := h.challengeService.Cancel(c.UserContext(), middleware.GetUserID(c), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Challenge cancelled"})
}
