package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/moim-backend/internal/httpx"
)

// originPolicy is a parsed ALLOWED_ORIGINS value. Entries are compared
// case-insensitively and without a trailing slash; "*" opens the policy.
type originPolicy struct {
	open    bool
	origins map[string]struct{}
}

func parseOrigins(allowed string) originPolicy {
	policy := originPolicy{origins: make(map[string]struct{})}
	for _, entry := range strings.Split(allowed, ",") {
		entry = normalizeOrigin(entry)
		switch entry {
		case "":
		case "*":
			policy.open = true
		default:
			policy.origins[entry] = struct{}{}
		}
	}
	if len(policy.origins) == 0 {
		policy.open = true
	}
	return policy
}

// permits reports whether a request carrying origin may pass. Requests
// without an Origin header are not from a browser and always pass.
func (p originPolicy) permits(origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == "" || p.open {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
}

// OriginAllowed rejects browser requests from origins outside the
// comma-separated allow-list. An empty list, or "*", allows every origin.
func OriginAllowed(allowed string) fiber.Handler {
	policy := parseOrigins(allowed)
	return func(c *fiber.Ctx) error {
		if !policy.permits(c.Get(fiber.HeaderOrigin)) {
			return httpx.Forbidden(c, "forbidden_origin", "Origin not allowed")
		}
		return c.Next()
	}
}
