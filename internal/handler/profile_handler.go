package handler

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/fittrack/internal/middleware"
	"github.com/mansoorceksport/fittrack/internal/service"
	"go.uber.org/zap"
)

const pictureFormField = "picture"

// ProfileHandler serves the user's own profile and notifications
type ProfileHandler struct {
	profileService   *service.ProfileService
	communityService *service.CommunityService
	log              *zap.Logger
}

func NewProfileHandler(
	profileService *service.ProfileService,
	communityService *service.CommunityService,
	log *zap.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profileService:   profileService,
		communityService: communityService,
		log:              log,
	}
}

// GetProfile handles GET /v1/me/profile
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	user, err := h.profileService.GetProfile(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PUT /v1/me/profile
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.profileService.UpdateProfile(c.UserContext(), middleware.GetUserID(c), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

// UploadPicture handles POST /v1/me/profile/picture (multipart, field "picture")
func (h *ProfileHandler) UploadPicture(c *fiber.Ctx) error {
	file, err := c.FormFile(pictureFormField)
	if err != nil {
		return badRequest(c, "picture file is required")
	}

	fh, err := file.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer fh.Close()

	data, err := io.ReadAll(fh)
	if err != nil {
		return respondError(c, h.log, err)
	}

	url, err := h.profileService.UploadProfilePicture(
		c.UserContext(),
		middleware.GetUserID(c),
		file.Filename,
		file.Header.Get(fiber.HeaderContentType),
		data,
	)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"profile_picture": url})
}

// ListNotifications handles GET /v1/me/notifications
func (h *ProfileHandler) ListNotifications(c *fiber.Ctx) error {
	items, err := h.communityService.ListNotifications(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(items)
}

// MarkNotificationsRead handles POST /v1/me/notifications/read
func (h *ProfileHandler) MarkNotificationsRead(c *fiber.Ctx) error {
	if err := h.communityService.MarkNotificationsRead(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Notifications marked as read"})
}
