package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/pongarena/backend/internal/dto"
	"github.com/pongarena/backend/internal/middleware"
	"github.com/pongarena/backend/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// GetByUsername is the public profile lookup.
func (h *ProfileHandler) GetByUsername(c *fiber.Ctx) error {
	username := c.Params("username")
	if username == "" {
		return badRequest(c, "Username is required")
	}

	resp, err := h.profileService.GetByUsername(username)
	if err != nil {
		return h.mapProfileError(c, err)
	}

	return c.JSON(resp)
}

func (h *ProfileHandler) ChangeUsername(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ChangeUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.profileService.ChangeUsername(userID, req.Username)
	if err != nil {
		return h.mapProfileError(c, err)
	}

	return c.JSON(resp)
}

func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.profileService.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		return h.mapProfileError(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Password updated"})
}

func (h *ProfileHandler) UpdateImage(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.UpdateImageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.profileService.UpdateImage(userID, req.Image)
	if err != nil {
		return h.mapProfileError(c, err)
	}

	return c.JSON(resp)
}

func (h *ProfileHandler) SetLanguage(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.SetLanguageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.profileService.SetLanguage(userID, req.Language); err != nil {
		return h.mapProfileError(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Language updated"})
}

func (h *ProfileHandler) SetTwoFactor(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.SetTwoFactorRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.profileService.SetTwoFactor(userID, req.Enabled); err != nil {
		return h.mapProfileError(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Two-factor setting updated"})
}

func (h *ProfileHandler) mapProfileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidLanguage), errors.Is(err, services.ErrValidation):
		return badRequest(c, err.Error())
	default:
		slog.Error("profile request failed", "method", c.Method(), "path", c.Path(), "error", err.Error())
		return internalError(c)
	}
}
