package handlers

import (
	"github.com/gofiber/fiber/v2"

	"conference-webapp/model"
)

func (h *Handler) SubmitFeedback(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	req := new(model.FeedbackRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	feedback, err := h.services.Feedback.Submit(ctx, caller, *req)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "feedback submitted", feedback)
}

func (h *Handler) GetSessionFeedback(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	items, err := h.services.Feedback.ListBySession(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "feedback", nonNil(items))
}

func (h *Handler) GetSessionAverageRating(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	average, err := h.services.Feedback.AverageRating(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "average rating", average)
}

func (h *Handler) GetMyFeedback(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	items, err := h.services.Feedback.ListMine(ctx, caller)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "feedback", nonNil(items))
}

func (h *Handler) DeleteFeedback(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.services.Feedback.Delete(ctx, caller, c.Params("id")); err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "entity deleted", nil)
}
