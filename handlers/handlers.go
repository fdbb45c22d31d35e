// Package handlers adapts HTTP requests to the service layer and renders the
// {"status","message","data"} envelope.
package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "conference-webapp/errors"
	"conference-webapp/middleware"
	"conference-webapp/model"
	"conference-webapp/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	CookieSecure   bool
	RequestTimeout time.Duration
}

type Handler struct {
	services *service.Services
	store    Pinger
	opts     Options
}

func New(services *service.Services, store Pinger, opts Options) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &Handler{services: services, store: store, opts: opts}
}

// Health pings the store. It is the only route outside /api.
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		return apperrors.RaiseError(c, fiber.StatusServiceUnavailable, "unhealthy", "database unreachable")
	}
	return success(c, fiber.StatusOK, "healthy", nil)
}

func (h *Handler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.opts.RequestTimeout)
}

func success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"data":    data})
}

func identity(c *fiber.Ctx) (model.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return model.Identity{}, apperrors.Unauthorized("Missing or malformed JWT")
	}
	return identity, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.Validation("Malformed request body")
	}
	return nil
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
