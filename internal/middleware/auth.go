package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/noteduco342/moim-backend/internal/httpx"
)

const (
	LocalUserID      = "userID"
	LocalDisplayName = "displayName"
)

// Claims are issued by the identity service. Only the subject and the
// display name are read here.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired verifies an HS256 access token from the Authorization header,
// the moim_access cookie or, for WebSocket upgrades, the token query param.
func AuthRequired(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
		}
		if tokenString == "" {
			return httpx.Unauthorized(c, "missing_access_token", "Missing access token")
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid or expired token")
		}

		subject, err := claims.GetSubject()
		if err != nil || strings.TrimSpace(subject) == "" {
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid token")
		}

		c.Locals(LocalUserID, subject)
		c.Locals(LocalDisplayName, claims.Name)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	if header := c.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", false
		}
		return parts[1], true
	}
	if cookie := c.Cookies("moim_access"); cookie != "" {
		return cookie, true
	}
	return c.Query("token"), true
}
