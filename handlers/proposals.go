package handlers

import (
	"github.com/gofiber/fiber/v2"

	"conference-webapp/model"
)

func (h *Handler) SubmitProposal(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	req := new(model.ProposalRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	proposal, err := h.services.Proposals.Submit(ctx, caller, *req)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "proposal submitted", proposal)
}

func (h *Handler) GetProposals(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	proposals, err := h.services.Proposals.List(ctx, caller)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "proposals", nonNil(proposals))
}

func (h *Handler) GetMyProposals(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	proposals, err := h.services.Proposals.ListMine(ctx, caller)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "proposals", nonNil(proposals))
}

func (h *Handler) GetProposalsByStatus(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	proposals, err := h.services.Proposals.ListByStatus(ctx, caller, c.Params("status"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "proposals", nonNil(proposals))
}

func (h *Handler) ReviewProposal(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	req := new(model.ReviewRequest)
	if err := parseBody(c, req); err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	proposal, err := h.services.Proposals.Review(ctx, caller, c.Params("id"), *req)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "proposal reviewed", proposal)
}

func (h *Handler) DeleteProposal(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.services.Proposals.Delete(ctx, caller, c.Params("id")); err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "entity deleted", nil)
}
