package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) JoinSession(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	registration, err := h.services.Registrations.Join(ctx, caller, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "registered for session", registration)
}

func (h *Handler) GetMyRegistrations(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	registrations, err := h.services.Registrations.ListMine(ctx, caller)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "registrations", nonNil(registrations))
}

func (h *Handler) GetSessionRegistrations(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	registrations, err := h.services.Registrations.ListBySession(ctx, caller, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "registrations", nonNil(registrations))
}

func (h *Handler) CancelRegistration(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	registration, err := h.services.Registrations.Cancel(ctx, caller, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "registration cancelled", registration)
}

func (h *Handler) MarkAttended(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	registration, err := h.services.Registrations.MarkAttended(ctx, caller, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "attendance recorded", registration)
}
