package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-webapp/auth"
	"conference-webapp/middleware"
	"conference-webapp/model"
)

var key = []byte("middleware-test-signing-key")

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/whoami", middleware.Authorize(key), func(c *fiber.Ctx) error {
		identity, ok := middleware.IdentityFrom(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendString(identity.Username + ":" + string(identity.Role))
	})
	app.Get("/admin", middleware.Authorize(key), middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/review", middleware.Authorize(key), middleware.RequirePrivileged(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func sign(t *testing.T, signingKey []byte, role model.Role) string {
	t.Helper()
	token, err := auth.NewIssuer(signingKey, time.Hour).Issue(model.User{ID: "u-1", Username: "grace", Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthorize(t *testing.T) {
	app := newApp()
	coordinator := sign(t, key, model.RoleCoordinator)

	tests := []struct {
		description  string
		route        string
		header       string
		cookie       string
		expectedCode int
	}{
		{"bearer token", "/whoami", "Bearer " + coordinator, "", 200},
		{"cookie fallback", "/whoami", "", coordinator, 200},
		{"no credentials", "/whoami", "", "", 401},
		{"foreign signature", "/whoami", "Bearer " + sign(t, []byte("another-signing-key"), model.RoleAdmin), "", 401},
		{"coordinator on admin route", "/admin", "Bearer " + coordinator, "", 403},
		{"admin on admin route", "/admin", "Bearer " + sign(t, key, model.RoleAdmin), "", 204},
		{"user on privileged route", "/review", "Bearer " + sign(t, key, model.RoleUser), "", 403},
		{"coordinator on privileged route", "/review", "", coordinator, 204},
	}

	for _, test := range tests {
		req, _ := http.NewRequest("GET", test.route, nil)
		if test.header != "" {
			req.Header.Set("Authorization", test.header)
		}
		if test.cookie != "" {
			req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: test.cookie})
		}
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equalf(t, test.expectedCode, res.StatusCode, test.description)
	}
}

func TestLoginLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/login", middleware.LoginLimiter(2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusUnauthorized)
	})

	codes := []int{}
	for range 3 {
		req, _ := http.NewRequest("POST", "/login", nil)
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		res.Body.Close()
		codes = append(codes, res.StatusCode)
		if res.StatusCode == fiber.StatusTooManyRequests {
			assert.NotEmpty(t, res.Header.Get(middleware.RetryAfterHeader))
		}
	}
	assert.Equal(t, []int{401, 401, 429}, codes)
}
