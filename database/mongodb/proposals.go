package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference-webapp/database"
	"conference-webapp/model"
)

// withProposalNames fills the submitter and reviewer usernames.
func (s *Store) withProposalNames(ctx context.Context, proposals []model.Proposal) ([]model.Proposal, error) {
	if len(proposals) == 0 {
		return proposals, nil
	}
	ids := make([]string, 0, len(proposals)*2)
	for _, proposal := range proposals {
		ids = append(ids, proposal.UserID)
		if proposal.ReviewedBy != nil {
			ids = append(ids, *proposal.ReviewedBy)
		}
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range proposals {
		proposals[i].Username = users[proposals[i].UserID].Username
		if proposals[i].ReviewedBy != nil {
			proposals[i].ReviewerName = users[*proposals[i].ReviewedBy].Username
		}
	}
	return proposals, nil
}

func (s *Store) listProposals(ctx context.Context, filter bson.D) ([]model.Proposal, error) {
	proposals, err := findAll[model.Proposal](ctx, s.proposals, filter,
		options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return s.withProposalNames(ctx, proposals)
}

func (s *Store) CreateProposal(ctx context.Context, proposal model.Proposal) error {
	found, err := exists(ctx, s.users, byID(proposal.UserID))
	if err != nil {
		return err
	}
	if !found {
		return database.ErrNotFound
	}
	if _, err := s.proposals.InsertOne(ctx, proposal); err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, id string) (model.Proposal, error) {
	proposal, err := findOne[model.Proposal](ctx, s.proposals, byID(id))
	if err != nil {
		return model.Proposal{}, err
	}
	enriched, err := s.withProposalNames(ctx, []model.Proposal{proposal})
	if err != nil {
		return model.Proposal{}, err
	}
	return enriched[0], nil
}

func (s *Store) ListProposals(ctx context.Context) ([]model.Proposal, error) {
	return s.listProposals(ctx, bson.D{})
}

func (s *Store) ListProposalsByUser(ctx context.Context, userID string) ([]model.Proposal, error) {
	return s.listProposals(ctx, bson.D{{Key: "user_id", Value: userID}})
}

func (s *Store) ListProposalsByStatus(ctx context.Context, status model.ProposalStatus) ([]model.Proposal, error) {
	return s.listProposals(ctx, bson.D{{Key: "status", Value: string(status)}})
}

func pendingProposal(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "status", Value: string(model.ProposalPending)}}
}

func (s *Store) ReviewProposal(ctx context.Context, review model.Review) (model.Proposal, error) {
	set := bson.D{
		{Key: "status", Value: string(review.Status)},
		{Key: "reviewed_by", Value: review.ReviewerID},
		{Key: "reviewed_at", Value: review.ReviewedAt},
	}
	if review.Status == model.ProposalRejected {
		set = append(set, bson.E{Key: "rejection_reason", Value: review.RejectionReason})
	}
	res, err := s.proposals.UpdateOne(ctx, pendingProposal(review.ProposalID), bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return model.Proposal{}, fmt.Errorf("review proposal: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetProposal(ctx, review.ProposalID); err != nil {
			return model.Proposal{}, err
		}
		return model.Proposal{}, database.ErrNotPending
	}
	return s.GetProposal(ctx, review.ProposalID)
}

func (s *Store) DeletePendingProposal(ctx context.Context, id string) error {
	res, err := s.proposals.DeleteOne(ctx, pendingProposal(id))
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if res.DeletedCount == 0 {
		if _, err := s.GetProposal(ctx, id); err != nil {
			return err
		}
		return database.ErrNotPending
	}
	return nil
}
