package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/pongarena/backend/internal/dto"
	"github.com/pongarena/backend/internal/middleware"
	"github.com/pongarena/backend/internal/oauth"
	"github.com/pongarena/backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.SignupLocal(req.Username, req.Email, req.Password)
	if err != nil {
		return h.mapAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) SignupOAuth(c *fiber.Ctx) error {
	var req dto.OAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Code == "" {
		return badRequest(c, "Authorization code is required")
	}

	resp, err := h.authService.SignupOAuth(c.Context(), req.Code)
	if err != nil {
		return h.mapAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.LoginLocal(c.Context(), req.Username, req.Password)
	if err != nil {
		return h.mapAuthError(c, err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) LoginOAuth(c *fiber.Ctx) error {
	var req dto.OAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Code == "" {
		return badRequest(c, "Authorization code is required")
	}

	resp, err := h.authService.LoginOAuth(c.Context(), req.Code)
	if err != nil {
		return h.mapAuthError(c, err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) VerifyTwoFactor(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.VerifyChallenge(req.Email, req.Code)
	if err != nil {
		return h.mapAuthError(c, err)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.Logout(req.RefreshToken); err != nil {
		return internalError(c)
	}

	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.DeleteAccount(userID, req.Password); err != nil {
		return h.mapAuthError(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Account deleted successfully"})
}

func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return h.mapAuthError(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Reset code sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.ResetPassword(req.Email, req.Code, req.NewPassword); err != nil {
		return h.mapAuthError(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Password updated"})
}

// mapAuthError translates service sentinels into HTTP statuses. Anything
// unrecognized is an infrastructure fault and must not leak to the client.
func (h *AuthHandler) mapAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrEmailTaken), errors.Is(err, services.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidCode), errors.Is(err, services.ErrExpiredCode):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, oauth.ErrUpstream):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "Upstream identity provider failure",
		})
	case errors.Is(err, services.ErrValidation):
		return badRequest(c, err.Error())
	default:
		slog.Error("auth request failed", "method", c.Method(), "path", c.Path(), "error", err.Error())
		return internalError(c)
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
