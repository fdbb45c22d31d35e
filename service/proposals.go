package service

import (
	"context"
	"errors"
	"strings"

	"conference-webapp/database"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

// ProposalService runs the talk proposal workflow: submit, review once, withdraw while pending.
type ProposalService struct {
	deps
	proposals database.ProposalStore
}

func (s *ProposalService) Submit(ctx context.Context, identity model.Identity, req model.ProposalRequest) (model.Proposal, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validateRequest(req); err != nil {
		return model.Proposal{}, err
	}
	proposal := model.Proposal{
		ID:          s.newID(),
		UserID:      identity.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.ProposalPending,
		SubmittedAt: s.now(),
	}
	if err := s.proposals.CreateProposal(ctx, proposal); err != nil {
		return model.Proposal{}, storeError(err, "Current user not found")
	}
	return s.get(ctx, proposal.ID)
}

// Review records an ACCEPTED or REJECTED decision. A proposal is reviewed at most once;
// the store applies the decision only while the row is still pending.
func (s *ProposalService) Review(ctx context.Context, identity model.Identity, id string, req model.ReviewRequest) (model.Proposal, error) {
	if err := requirePrivileged(identity); err != nil {
		return model.Proposal{}, err
	}
	status, err := model.ParseProposalStatus(req.Status)
	if err != nil || !model.ProposalPending.CanTransitionTo(status) {
		return model.Proposal{}, apperrors.Validation("Status is required (ACCEPTED or REJECTED)")
	}
	review := model.Review{
		ProposalID: id,
		ReviewerID: identity.UserID,
		Status:     status,
		ReviewedAt: s.now(),
	}
	if status == model.ProposalRejected {
		review.RejectionReason = strings.TrimSpace(req.RejectionReason)
		if review.RejectionReason == "" {
			return model.Proposal{}, apperrors.Validation("Rejection reason is required")
		}
	}

	proposal, err := s.proposals.ReviewProposal(ctx, review)
	if errors.Is(err, database.ErrNotPending) {
		return model.Proposal{}, apperrors.Conflict("Proposal already reviewed")
	}
	if err != nil {
		return model.Proposal{}, storeError(err, "Proposal not found")
	}
	s.logger.Info("proposal reviewed", "proposal_id", id, "status", status, "by", identity.UserID)
	return proposal, nil
}

// Delete withdraws the caller's own proposal while it is still pending.
func (s *ProposalService) Delete(ctx context.Context, identity model.Identity, id string) error {
	proposal, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if proposal.UserID != identity.UserID {
		return apperrors.Permission("You can only delete your own proposals")
	}
	if proposal.Status != model.ProposalPending {
		return apperrors.Conflict("Cannot delete reviewed proposal")
	}
	err = s.proposals.DeletePendingProposal(ctx, id)
	if errors.Is(err, database.ErrNotPending) {
		return apperrors.Conflict("Cannot delete reviewed proposal")
	}
	if err != nil {
		return storeError(err, "Proposal not found")
	}
	return nil
}

func (s *ProposalService) List(ctx context.Context, identity model.Identity) ([]model.Proposal, error) {
	if err := requirePrivileged(identity); err != nil {
		return nil, err
	}
	proposals, err := s.proposals.ListProposals(ctx)
	if err != nil {
		return nil, apperrors.Internal("list proposals", err)
	}
	return proposals, nil
}

func (s *ProposalService) ListMine(ctx context.Context, identity model.Identity) ([]model.Proposal, error) {
	proposals, err := s.proposals.ListProposalsByUser(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Internal("list proposals", err)
	}
	return proposals, nil
}

func (s *ProposalService) ListByStatus(ctx context.Context, identity model.Identity, rawStatus string) ([]model.Proposal, error) {
	if err := requirePrivileged(identity); err != nil {
		return nil, err
	}
	status, err := model.ParseProposalStatus(rawStatus)
	if err != nil {
		return nil, apperrors.Validation("Invalid proposal status: " + rawStatus)
	}
	proposals, err := s.proposals.ListProposalsByStatus(ctx, status)
	if err != nil {
		return nil, apperrors.Internal("list proposals", err)
	}
	return proposals, nil
}

func (s *ProposalService) get(ctx context.Context, id string) (model.Proposal, error) {
	proposal, err := s.proposals.GetProposal(ctx, id)
	if err != nil {
		return model.Proposal{}, storeError(err, "Proposal not found")
	}
	return proposal, nil
}
