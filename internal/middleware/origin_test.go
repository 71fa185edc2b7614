package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed string
		origin  string
		want    bool
	}{
		{"No list", "", "https://evil.example", true},
		{"Wildcard", "*", "https://evil.example", true},
		{"Listed", "https://moim.app, https://admin.moim.app", "https://admin.moim.app", true},
		{"Listed with different case and slash", "https://Moim.app/", "https://moim.APP", true},
		{"Not listed", "https://moim.app", "https://evil.example", false},
		{"No origin header", "https://moim.app", "", true},
		{"Blank entries only", " , ", "https://evil.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseOrigins(tt.allowed).permits(tt.origin); got != tt.want {
				t.Errorf("permits(%q) with %q = %v, want %v", tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}

func TestCSRFRequired(t *testing.T) {
	app := fiber.New()
	app.Post("/token", CSRFRequired(CSRFToken, "https://moim.app"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Post("/origin", CSRFRequired(CSRFOrigin, "https://moim.app"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		origin string
		cookie string
		header string
		want   int
	}{
		{"Server to server", "/token", "", "", "", fiber.StatusNoContent},
		{"Foreign origin", "/token", "https://evil.example", "t", "t", fiber.StatusForbidden},
		{"Missing token", "/token", "https://moim.app", "", "", fiber.StatusForbidden},
		{"Mismatched token", "/token", "https://moim.app", "a", "b", fiber.StatusForbidden},
		{"Matching token", "/token", "https://moim.app", "t", "t", fiber.StatusNoContent},
		{"Origin mode skips token", "/origin", "https://moim.app", "", "", fiber.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.cookie != "" {
				req.Header.Set("Cookie", "moim_csrf="+tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("X-Moim-CSRF", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
