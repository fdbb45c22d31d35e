package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"conference-webapp/database"
	"conference-webapp/model"
)

const feedbackSelect = `SELECT f.id, f.user_id, u.username, f.session_id, s.title, f.rating, f.comment, f.created_at
	FROM feedback f
	JOIN users u ON u.id = f.user_id
	JOIN sessions s ON s.id = f.session_id`

func scanFeedback(row scanner) (model.Feedback, error) {
	var feedback model.Feedback
	err := row.Scan(&feedback.ID, &feedback.UserID, &feedback.Username, &feedback.SessionID, &feedback.SessionTitle,
		&feedback.Rating, &feedback.Comment, &feedback.CreatedAt)
	if err != nil {
		return model.Feedback{}, err
	}
	feedback.CreatedAt = utc(feedback.CreatedAt)
	return feedback, nil
}

func (s *Store) listFeedback(ctx context.Context, where string, args ...any) ([]model.Feedback, error) {
	rows, err := s.pool.Query(ctx, feedbackSelect+" "+where+" ORDER BY f.created_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	items := make([]model.Feedback, 0)
	for rows.Next() {
		feedback, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, feedback)
	}
	return items, rows.Err()
}

func (s *Store) CreateFeedback(ctx context.Context, feedback model.Feedback) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (id, user_id, session_id, rating, comment, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		feedback.ID, feedback.UserID, feedback.SessionID, feedback.Rating, feedback.Comment, feedback.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "feedback_user_id_session_id_key"):
		return database.ErrFeedbackExists
	case isForeignKeyViolation(err):
		return database.ErrNotFound
	}
	return fmt.Errorf("insert feedback: %w", err)
}

func (s *Store) GetFeedback(ctx context.Context, id string) (model.Feedback, error) {
	feedback, err := scanFeedback(s.pool.QueryRow(ctx, feedbackSelect+" WHERE f.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Feedback{}, database.ErrNotFound
	}
	if err != nil {
		return model.Feedback{}, fmt.Errorf("get feedback: %w", err)
	}
	return feedback, nil
}

func (s *Store) HasFeedback(ctx context.Context, userID, sessionID string) (bool, error) {
	found, err := exists(ctx, s.pool, `SELECT 1 FROM feedback WHERE user_id = $1 AND session_id = $2`, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("check feedback: %w", err)
	}
	return found, nil
}

func (s *Store) ListFeedbackBySession(ctx context.Context, sessionID string) ([]model.Feedback, error) {
	return s.listFeedback(ctx, "WHERE f.session_id = $1", sessionID)
}

func (s *Store) ListFeedbackByUser(ctx context.Context, userID string) ([]model.Feedback, error) {
	return s.listFeedback(ctx, "WHERE f.user_id = $1", userID)
}

func (s *Store) AverageRating(ctx context.Context, sessionID string) (float64, error) {
	var average float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0)::float8 FROM feedback WHERE session_id = $1`, sessionID).Scan(&average)
	if err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	return average, nil
}

func (s *Store) DeleteFeedback(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
