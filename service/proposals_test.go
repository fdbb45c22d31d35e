package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

var talk = model.ProposalRequest{
	Title:       "Scheduling without regret",
	Description: "How we stopped double-booking rooms with a single SQL constraint.",
}

func TestSubmitProposal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner, identity := h.user(t, model.RoleUser)

	proposal, err := h.services.Proposals.Submit(ctx, identity, talk)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalPending, proposal.Status)
	assert.Equal(t, owner.ID, proposal.UserID)
	assert.Equal(t, owner.Username, proposal.Username)
	assert.True(t, now.Equal(proposal.SubmittedAt))

	tests := []struct {
		description string
		request     model.ProposalRequest
		message     string
	}{
		{"short title", model.ProposalRequest{Title: "Go", Description: talk.Description}, "Title must be between 5 and 200 characters"},
		{"blank title", model.ProposalRequest{Title: "   ", Description: talk.Description}, "Title is required"},
		{"short description", model.ProposalRequest{Title: talk.Title, Description: "Too short"}, "Description must be at least 20 characters"},
	}
	for _, test := range tests {
		_, err := h.services.Proposals.Submit(ctx, identity, test.request)
		assertKind(t, err, apperrors.KindValidation, test.message)
	}

	mine, err := h.services.Proposals.ListMine(ctx, identity)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestReviewIsOneShot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, speaker := h.user(t, model.RoleUser)
	reviewer, coordinator := h.user(t, model.RoleCoordinator)

	proposal, err := h.services.Proposals.Submit(ctx, speaker, talk)
	require.NoError(t, err)

	_, err = h.services.Proposals.Review(ctx, speaker, proposal.ID, model.ReviewRequest{Status: "ACCEPTED"})
	assertKind(t, err, apperrors.KindPermission, "")

	_, err = h.services.Proposals.Review(ctx, coordinator, proposal.ID, model.ReviewRequest{Status: "PENDING"})
	assertKind(t, err, apperrors.KindValidation, "")

	_, err = h.services.Proposals.Review(ctx, coordinator, proposal.ID, model.ReviewRequest{Status: "REJECTED"})
	assertKind(t, err, apperrors.KindValidation, "Rejection reason is required")

	reviewed, err := h.services.Proposals.Review(ctx, coordinator, proposal.ID, model.ReviewRequest{Status: "accepted"})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalAccepted, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, reviewer.ID, *reviewed.ReviewedBy)
	assert.Equal(t, reviewer.Username, reviewed.ReviewerName)

	_, err = h.services.Proposals.Review(ctx, coordinator, proposal.ID,
		model.ReviewRequest{Status: "REJECTED", RejectionReason: "changed my mind"})
	assertKind(t, err, apperrors.KindConflict, "Proposal already reviewed")

	_, err = h.services.Proposals.Review(ctx, coordinator, "missing", model.ReviewRequest{Status: "ACCEPTED"})
	assertKind(t, err, apperrors.KindNotFound, "Proposal not found")

	accepted, err := h.services.Proposals.ListByStatus(ctx, coordinator, "accepted")
	require.NoError(t, err)
	assert.Len(t, accepted, 1)

	_, err = h.services.Proposals.ListByStatus(ctx, coordinator, "maybe")
	assertKind(t, err, apperrors.KindValidation, "Invalid proposal status: maybe")
}

func TestDeleteProposal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, owner := h.user(t, model.RoleUser)
	_, stranger := h.user(t, model.RoleUser)
	_, coordinator := h.user(t, model.RoleCoordinator)

	pending, err := h.services.Proposals.Submit(ctx, owner, talk)
	require.NoError(t, err)
	reviewed, err := h.services.Proposals.Submit(ctx, owner, talk)
	require.NoError(t, err)
	_, err = h.services.Proposals.Review(ctx, coordinator, reviewed.ID,
		model.ReviewRequest{Status: "REJECTED", RejectionReason: "Out of scope"})
	require.NoError(t, err)

	assertKind(t, h.services.Proposals.Delete(ctx, stranger, pending.ID),
		apperrors.KindPermission, "You can only delete your own proposals")
	assertKind(t, h.services.Proposals.Delete(ctx, owner, reviewed.ID),
		apperrors.KindConflict, "Cannot delete reviewed proposal")
	assertKind(t, h.services.Proposals.Delete(ctx, owner, "missing"),
		apperrors.KindNotFound, "Proposal not found")

	require.NoError(t, h.services.Proposals.Delete(ctx, owner, pending.ID))

	all, err := h.services.Proposals.List(ctx, coordinator)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Out of scope", all[0].RejectionReason)

	_, err = h.services.Proposals.List(ctx, owner)
	assertKind(t, err, apperrors.KindPermission, "")
}
