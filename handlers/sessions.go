package handlers

import (
	"github.com/gofiber/fiber/v2"

	"conference-webapp/model"
)

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	req := new(model.SessionRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	session, err := h.services.Sessions.Create(ctx, caller, *req)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "session created", session)
}

func (h *Handler) GetSessions(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessions, err := h.services.Sessions.List(ctx)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "sessions", nonNil(sessions))
}

func (h *Handler) GetUpcomingSessions(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessions, err := h.services.Sessions.ListUpcoming(ctx)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "sessions", nonNil(sessions))
}

func (h *Handler) GetMySessions(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessions, err := h.services.Sessions.ListBySpeaker(ctx, caller)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "sessions", nonNil(sessions))
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	session, err := h.services.Sessions.Get(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "session", session)
}

func (h *Handler) UpdateSession(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	req := new(model.SessionRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	session, err := h.services.Sessions.Update(ctx, caller, c.Params("id"), *req)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "session updated", session)
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.services.Sessions.Delete(ctx, caller, c.Params("id")); err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "entity deleted", nil)
}
