package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pongarena/backend/internal/dto"
	"github.com/pongarena/backend/internal/middleware"
	"github.com/pongarena/backend/internal/services"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

type FriendHandler struct {
	friendService *services.FriendService
}

func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

// Request sends a friend request from the authenticated user.
func (h *FriendHandler) Request(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.FriendRequestBody
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UserID == 0 {
		return badRequest(c, "user_id is required")
	}

	if _, err := h.friendService.Request(userID, req.UserID); err != nil {
		return h.mapFriendError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "Friend request sent"})
}

// Approve accepts a pending request sent to the authenticated user by the
// user in the path.
func (h *FriendHandler) Approve(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	requesterID, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.friendService.Approve(userID, requesterID); err != nil {
		return h.mapFriendError(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Friend request approved"})
}

// Deny rejects a pending request sent to the authenticated user.
func (h *FriendHandler) Deny(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	requesterID, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.friendService.Deny(userID, requesterID); err != nil {
		return h.mapFriendError(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Friend request denied"})
}

// List returns accepted friends, or pending incoming requests when the
// `pending` query flag is present.
func (h *FriendHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	page, pageSize := pagination(c)

	var (
		friends []dto.FriendSummary
		total   int64
	)
	if _, pending := c.Queries()["pending"]; pending {
		friends, total, err = h.friendService.ListPending(userID, page, pageSize)
	} else {
		friends, total, err = h.friendService.ListAccepted(userID, page, pageSize)
	}
	if err != nil {
		return h.mapFriendError(c, err)
	}

	return c.JSON(dto.FriendListResponse{
		Friends:  friends,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *FriendHandler) mapFriendError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrFriendRequestNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrFriendExists):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrSelfRequest):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}

func parseUserID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("user_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user id")
	}
	return uint(id), nil
}

func pagination(c *fiber.Ctx) (page, pageSize int) {
	page = c.QueryInt("page", defaultPage)
	if page < 1 {
		page = defaultPage
	}
	pageSize = c.QueryInt("pageSize", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}
