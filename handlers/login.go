package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"conference-webapp/middleware"
	"conference-webapp/model"
)

func (h *Handler) Register(c *fiber.Ctx) error {
	req := new(model.RegisterRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.services.Auth.Register(ctx, *req)
	if err != nil {
		return err
	}
	h.setTokenCookie(c, result.Token)
	return success(c, fiber.StatusCreated, "Registration successful", authData(result))
}

func (h *Handler) Login(c *fiber.Ctx) error {
	req := new(model.LoginRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.services.Auth.Login(ctx, *req)
	if err != nil {
		return err
	}
	h.setTokenCookie(c, result.Token)
	return success(c, fiber.StatusOK, "Login successful", authData(result))
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return success(c, fiber.StatusOK, "Logout successful", nil)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.services.Auth.Me(ctx, caller)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "current user", user)
}

func (h *Handler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.services.Auth.TokenTTL().Seconds()),
		HTTPOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func authData(result model.AuthResult) fiber.Map {
	return fiber.Map{"token": result.Token, "user": result.User}
}
