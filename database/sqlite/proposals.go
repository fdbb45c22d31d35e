package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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
		submittedAt     int64
		reviewedBy      sql.NullString
		reviewerName    sql.NullString
		reviewedAt      sql.NullInt64
		rejectionReason sql.NullString
	)
	err := row.Scan(&proposal.ID, &proposal.UserID, &proposal.Username, &proposal.Title, &proposal.Description,
		&status, &submittedAt, &reviewedBy, &reviewerName, &reviewedAt, &rejectionReason)
	if err != nil {
		return model.Proposal{}, err
	}
	proposal.Status = model.ProposalStatus(status)
	proposal.SubmittedAt = fromMillis(submittedAt)
	if reviewedBy.Valid {
		proposal.ReviewedBy = &reviewedBy.String
	}
	proposal.ReviewerName = reviewerName.String
	if reviewedAt.Valid {
		at := fromMillis(reviewedAt.Int64)
		proposal.ReviewedAt = &at
	}
	proposal.RejectionReason = rejectionReason.String
	return proposal, nil
}

func (s *Store) listProposals(ctx context.Context, where string, args ...any) ([]model.Proposal, error) {
	rows, err := s.sqlDB.QueryContext(ctx, proposalSelect+" "+where+" ORDER BY p.submitted_at DESC", args...)
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
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO proposals (id, user_id, title, description, status, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		proposal.ID, proposal.UserID, proposal.Title, proposal.Description, string(proposal.Status), toMillis(proposal.SubmittedAt),
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
	proposal, err := scanProposal(s.sqlDB.QueryRowContext(ctx, proposalSelect+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
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
	return s.listProposals(ctx, "WHERE p.user_id = ?", userID)
}

func (s *Store) ListProposalsByStatus(ctx context.Context, status model.ProposalStatus) ([]model.Proposal, error) {
	return s.listProposals(ctx, "WHERE p.status = ?", string(status))
}

func (s *Store) ReviewProposal(ctx context.Context, review model.Review) (model.Proposal, error) {
	var reason sql.NullString
	if review.Status == model.ProposalRejected {
		reason = sql.NullString{String: review.RejectionReason, Valid: true}
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE proposals
		 SET status = ?, reviewed_by = ?, reviewed_at = ?, rejection_reason = ?
		 WHERE id = ? AND status = ?`,
		string(review.Status), review.ReviewerID, toMillis(review.ReviewedAt), reason,
		review.ProposalID, string(model.ProposalPending),
	)
	if err != nil {
		return model.Proposal{}, fmt.Errorf("review proposal: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return model.Proposal{}, fmt.Errorf("review proposal: %w", err)
	} else if affected == 0 {
		if _, err := s.GetProposal(ctx, review.ProposalID); err != nil {
			return model.Proposal{}, err
		}
		return model.Proposal{}, database.ErrNotPending
	}
	return s.GetProposal(ctx, review.ProposalID)
}

func (s *Store) DeletePendingProposal(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM proposals WHERE id = ? AND status = ?`, id, string(model.ProposalPending))
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetProposal(ctx, id); err != nil {
			return err
		}
		return database.ErrNotPending
	}
	return nil
}
