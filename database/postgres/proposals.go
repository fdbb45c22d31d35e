package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"conference-webapp/database"
	"conference-webapp/model"
)

const proposalSelect = `SELECT p.id, p.user_id, u.username, p.title, p.description, p.status, p.submitted_at,
	p.reviewed_by, r.username, p.reviewed_at, p.rejection_reason
	FROM proposals p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN users r ON r.id = p.reviewed_by`

func scanProposal(row scanner) (model.Proposal, error) {
	var (
		proposal        model.Proposal
		status          string
		reviewerName    *string
		rejectionReason *string
	)
	err := row.Scan(&proposal.ID, &proposal.UserID, &proposal.Username, &proposal.Title, &proposal.Description,
		&status, &proposal.SubmittedAt, &proposal.ReviewedBy, &reviewerName, &proposal.ReviewedAt, &rejectionReason)
	if err != nil {
		return model.Proposal{}, err
	}
	proposal.Status = model.ProposalStatus(status)
	proposal.SubmittedAt = utc(proposal.SubmittedAt)
	if proposal.ReviewedAt != nil {
		at := utc(*proposal.ReviewedAt)
		proposal.ReviewedAt = &at
	}
	if reviewerName != nil {
		proposal.ReviewerName = *reviewerName
	}
	if rejectionReason != nil {
		proposal.RejectionReason = *rejectionReason
	}
	return proposal, nil
}

func (s *Store) listProposals(ctx context.Context, where string, args ...any) ([]model.Proposal, error) {
	rows, err := s.pool.Query(ctx, proposalSelect+" "+where+" ORDER BY p.submitted_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	proposals := make([]model.Proposal, 0)
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, proposal)
	}
	return proposals, rows.Err()
}

func (s *Store) CreateProposal(ctx context.Context, proposal model.Proposal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO proposals (id, user_id, title, description, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		proposal.ID, proposal.UserID, proposal.Title, proposal.Description, string(proposal.Status), proposal.SubmittedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return database.ErrNotFound
		}
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, id string) (model.Proposal, error) {
	proposal, err := scanProposal(s.pool.QueryRow(ctx, proposalSelect+" WHERE p.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Proposal{}, database.ErrNotFound
	}
	if err != nil {
		return model.Proposal{}, fmt.Errorf("get proposal: %w", err)
	}
	return proposal, nil
}

func (s *Store) ListProposals(ctx context.Context) ([]model.Proposal, error) {
	return s.listProposals(ctx, "")
}

func (s *Store) ListProposalsByUser(ctx context.Context, userID string) ([]model.Proposal, error) {
	return s.listProposals(ctx, "WHERE p.user_id = $1", userID)
}

func (s *Store) ListProposalsByStatus(ctx context.Context, status model.ProposalStatus) ([]model.Proposal, error) {
	return s.listProposals(ctx, "WHERE p.status = $1", string(status))
}

// ReviewProposal is a conditional update: of two racing reviews only the first matches.
func (s *Store) ReviewProposal(ctx context.Context, review model.Review) (model.Proposal, error) {
	var reason *string
	if review.Status == model.ProposalRejected {
		reason = &review.RejectionReason
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE proposals
		 SET status = $1, reviewed_by = $2, reviewed_at = $3, rejection_reason = $4
		 WHERE id = $5 AND status = $6`,
		string(review.Status), review.ReviewerID, review.ReviewedAt, reason,
		review.ProposalID, string(model.ProposalPending),
	)
	if err != nil {
		return model.Proposal{}, fmt.Errorf("review proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetProposal(ctx, review.ProposalID); err != nil {
			return model.Proposal{}, err
		}
		return model.Proposal{}, database.ErrNotPending
	}
	return s.GetProposal(ctx, review.ProposalID)
}

func (s *Store) DeletePendingProposal(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM proposals WHERE id = $1 AND status = $2`, id, string(model.ProposalPending))
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetProposal(ctx, id); err != nil {
			return err
		}
		return database.ErrNotPending
	}
	return nil
}
