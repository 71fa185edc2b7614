package httpx

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/service"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, "not_found", message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, "Internal server error")
}

// FromError writes the response for an error returned by the service layer.
func FromError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCapacityExceeded):
		return Error(c, fiber.StatusConflict, "group_full", "This group is full")
	case errors.Is(err, service.ErrNotFound):
		return NotFound(c, "Not found")
	case errors.Is(err, service.ErrPartialFailure):
		return Error(c, fiber.StatusConflict, "delete_incomplete", "Delete did not finish, please delete again")
	case errors.Is(err, service.ErrToggleInFlight):
		return Error(c, fiber.StatusConflict, "membership_pending", "A membership change is already in progress")
	case errors.Is(err, service.ErrUnauthorized):
		return Forbidden(c, "forbidden", "You are not allowed to do that")
	case errors.Is(err, service.ErrNotMember):
		return BadRequest(c, "not_member", "Target user is not a member of this group")
	case errors.Is(err, service.ErrInvalidTarget):
		return BadRequest(c, "invalid_target", "Invalid target user")
	case errors.Is(err, service.ErrInvalidContent):
		return BadRequest(c, "invalid_content", err.Error())
	case errors.Is(err, models.ErrInvalidCursor), errors.Is(err, models.ErrCursorOrdering):
		return BadRequest(c, "invalid_cursor", "Invalid cursor")
	case errors.Is(err, service.ErrTransient):
		log.Printf("transient failure path=%s request_id=%s err=%v", c.Path(), requestID(c), err)
		return Error(c, fiber.StatusServiceUnavailable, "try_again", "Temporary problem, please try again")
	default:
		log.Printf("unhandled error path=%s request_id=%s err=%v", c.Path(), requestID(c), err)
		return Internal(c, "internal_error")
	}
}

func LocalString(c *fiber.Ctx, key string) (string, error) {
	v := c.Locals(key)
	if v == nil {
		return "", fmt.Errorf("missing local %s", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("invalid local %s", key)
	}
	return s, nil
}
