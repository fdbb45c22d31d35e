package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("join: %w", Conflict("Already registered for this session"))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))
	assert.True(t, stderrors.Is(wrapped, Conflict("")))
	assert.False(t, stderrors.Is(wrapped, NotFound("")))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Internal("create user", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "create user: disk full", err.Error())
	assert.Equal(t, "Session is full", Validation("Session is full").Error())
}

func TestHandler(t *testing.T) {
	tests := []struct {
		description  string
		err          error
		expectedCode int
		expectedData string
	}{
		{"validation", Validation("Session is full"), 400, "Session is full"},
		{"unauthorized", Unauthorized("Invalid username or password"), 401, "Invalid username or password"},
		{"permission", Permission("You can only cancel your own registrations"), 403, "You can only cancel your own registrations"},
		{"not found", NotFound("Session not found"), 404, "Session not found"},
		{"conflict", fmt.Errorf("wrapped: %w", Conflict("Registration already cancelled")), 409, "Registration already cancelled"},
		{"fiber error", fiber.ErrMethodNotAllowed, 405, "Method Not Allowed"},
		{"internal", Internal("store failure", stderrors.New("connection reset")), 500, GenericMessage},
		{"unclassified", stderrors.New("connection reset"), 500, GenericMessage},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, test := range tests {
		app := fiber.New(fiber.Config{ErrorHandler: Handler(logger)})
		failure := test.err
		app.Get("/", func(c *fiber.Ctx) error { return failure })

		req, _ := http.NewRequest("GET", "/", nil)
		res, err := app.Test(req, -1)
		require.NoError(t, err)

		var body struct {
			Status string `json:"status"`
			Data   string `json:"data"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		res.Body.Close()

		assert.Equalf(t, test.expectedCode, res.StatusCode, test.description)
		assert.Equalf(t, "error", body.Status, test.description)
		assert.Equalf(t, test.expectedData, body.Data, test.description)
	}
}
