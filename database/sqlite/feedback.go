package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"conference-webapp/database"
	"conference-webapp/model"
)

const feedbackSelect = `SELECT f.id, f.user_id, u.username, f.session_id, s.title, f.rating, f.comment, f.created_at
	FROM feedback f
	JOIN users u ON u.id = f.user_id
	JOIN sessions s ON s.id = f.session_id`

func scanFeedback(row scanner) (model.Feedback, error) {
	var (
		feedback  model.Feedback
		createdAt int64
	)
	err := row.Scan(&feedback.ID, &feedback.UserID, &feedback.Username, &feedback.SessionID, &feedback.SessionTitle,
		&feedback.Rating, &feedback.Comment, &createdAt)
	if err != nil {
		return model.Feedback{}, err
	}
	feedback.CreatedAt = fromMillis(createdAt)
	return feedback, nil
}

func (s *Store) listFeedback(ctx context.Context, where string, args ...any) ([]model.Feedback, error) {
	rows, err := s.sqlDB.QueryContext(ctx, feedbackSelect+" "+where+" ORDER BY f.created_at DESC", args...)
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
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO feedback (id, user_id, session_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		feedback.ID, feedback.UserID, feedback.SessionID, feedback.Rating, feedback.Comment, toMillis(feedback.CreatedAt),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "feedback."):
		return database.ErrFeedbackExists
	case isForeignKeyViolation(err):
		return database.ErrNotFound
	}
	return fmt.Errorf("insert feedback: %w", err)
}

func (s *Store) GetFeedback(ctx context.Context, id string) (model.Feedback, error) {
	feedback, err := scanFeedback(s.sqlDB.QueryRowContext(ctx, feedbackSelect+" WHERE f.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Feedback{}, database.ErrNotFound
	}
	if err != nil {
		return model.Feedback{}, fmt.Errorf("get feedback: %w", err)
	}
	return feedback, nil
}

func (s *Store) HasFeedback(ctx context.Context, userID, sessionID string) (bool, error) {
	found, err := exists(ctx, s.sqlDB, `SELECT 1 FROM feedback WHERE user_id = ? AND session_id = ?`, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("check feedback: %w", err)
	}
	return found, nil
}

func (s *Store) ListFeedbackBySession(ctx context.Context, sessionID string) ([]model.Feedback, error) {
	return s.listFeedback(ctx, "WHERE f.session_id = ?", sessionID)
}

func (s *Store) ListFeedbackByUser(ctx context.Context, userID string) ([]model.Feedback, error) {
	return s.listFeedback(ctx, "WHERE f.user_id = ?", userID)
}

func (s *Store) AverageRating(ctx context.Context, sessionID string) (float64, error) {
	var average sql.NullFloat64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT AVG(rating) FROM feedback WHERE session_id = ?`, sessionID).Scan(&average); err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	return average.Float64, nil
}

func (s *Store) DeleteFeedback(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM feedback WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}
