package handlers

import (
	"github.com/gofiber/fiber/v2"

	"conference-webapp/model"
)

func (h *Handler) GetUsers(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	users, err := h.services.Users.List(ctx, caller)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "users", nonNil(users))
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.services.Users.Get(ctx, caller, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "user", user)
}

func (h *Handler) UpdateUserRole(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	req := new(model.RoleRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.services.Users.UpdateRole(ctx, caller, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "role updated", user)
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.services.Users.Delete(ctx, caller, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "entity deleted", "user "+user.Username+" was deleted")
}
