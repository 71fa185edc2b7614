package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/moim-backend/internal/httpx"
)

type CSRFMode string

const (
	// CSRFToken requires the X-Moim-CSRF header to match the moim_csrf cookie.
	CSRFToken CSRFMode = "token"
	// CSRFOrigin only enforces the Origin allow-list.
	CSRFOrigin CSRFMode = "origin"
	CSRFOff    CSRFMode = "off"
)

// CSRFRequired protects cookie-authenticated browser writes. Requests without
// an Origin header are not from a browser and pass.
func CSRFRequired(mode CSRFMode, allowed string) fiber.Handler {
	if mode == "" {
		mode = CSRFToken
	}
	policy := parseOrigins(allowed)

	return func(c *fiber.Ctx) error {
		if mode == CSRFOff {
			return c.Next()
		}

		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		origin := strings.TrimSpace(c.Get(fiber.HeaderOrigin))
		if origin == "" {
			return c.Next()
		}
		if !policy.permits(origin) {
			return httpx.Forbidden(c, "forbidden_origin", "Origin not allowed")
		}
		if mode == CSRFOrigin {
			return c.Next()
		}

		csrfCookie := c.Cookies("moim_csrf")
		csrfHeader := c.Get("X-Moim-CSRF")
		if csrfCookie == "" || csrfHeader == "" {
			return httpx.Forbidden(c, "csrf_required", "Missing CSRF token")
		}
		if subtle.ConstantTimeCompare([]byte(csrfCookie), []byte(csrfHeader)) != 1 {
			return httpx.Forbidden(c, "csrf_invalid", "Invalid CSRF token")
		}
		return c.Next()
	}
}
