package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/noteduco342/moim-backend/internal/httpx"
	"github.com/noteduco342/moim-backend/internal/middleware"
	"github.com/noteduco342/moim-backend/internal/service"
	"github.com/noteduco342/moim-backend/internal/validation"
)

// currentActor returns the authenticated caller set by AuthRequired.
func currentActor(c *fiber.Ctx) (service.Actor, bool) {
	userID, err := httpx.LocalString(c, middleware.LocalUserID)
	if err != nil {
		return service.Actor{}, false
	}
	name, _ := c.Locals(middleware.LocalDisplayName).(string)
	return service.Actor{ID: userID, Name: name}, true
}

// parseBody decodes and validates a JSON body. On failure the error response
// has already been written and the returned error must be returned as is.
func parseBody(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if err := validation.Struct(dst); err != nil {
		return false, httpx.BadRequest(c, "invalid_request_body", validation.Describe(err))
	}
	return true, nil
}

func unauthorized(c *fiber.Ctx) error {
	return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
}

// param and query copy the value out of the request buffer. Services keep ids
// and filter terms beyond the request, and fasthttp reuses that buffer.
func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}

func query(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Query(key))
}
