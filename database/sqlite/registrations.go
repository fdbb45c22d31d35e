package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"conference-webapp/database"
	"conference-webapp/model"
)

const registrationSelect = `SELECT g.id, g.user_id, u.username, g.session_id, s.title, s.session_time, g.status, g.registered_at
	FROM registrations g
	JOIN users u ON u.id = g.user_id
	JOIN sessions s ON s.id = g.session_id`

func scanRegistration(row scanner) (model.Registration, error) {
	var (
		registration model.Registration
		status       string
		sessionTime  int64
		registeredAt int64
	)
	err := row.Scan(&registration.ID, &registration.UserID, &registration.Username, &registration.SessionID,
		&registration.SessionTitle, &sessionTime, &status, &registeredAt)
	if err != nil {
		return model.Registration{}, err
	}
	registration.Status = model.RegistrationStatus(status)
	registration.SessionTime = fromMillis(sessionTime)
	registration.RegisteredAt = fromMillis(registeredAt)
	return registration, nil
}

func getRegistration(ctx context.Context, q queryer, id string) (model.Registration, error) {
	registration, err := scanRegistration(q.QueryRowContext(ctx, registrationSelect+" WHERE g.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Registration{}, database.ErrNotFound
	}
	if err != nil {
		return model.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return registration, nil
}

func (s *Store) listRegistrations(ctx context.Context, where string, args ...any) ([]model.Registration, error) {
	rows, err := s.sqlDB.QueryContext(ctx, registrationSelect+" "+where+" ORDER BY g.registered_at", args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	registrations := make([]model.Registration, 0)
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		registrations = append(registrations, registration)
	}
	return registrations, rows.Err()
}

// JoinSession runs inside one BEGIN IMMEDIATE transaction; no other writer can
// touch the session counter between the capacity check and the increment.
func (s *Store) JoinSession(ctx context.Context, registration model.Registration) (model.Registration, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		known, err := exists(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, registration.UserID)
		if err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !known {
			return database.ErrUnknownUser
		}

		duplicate, err := exists(ctx, tx,
			`SELECT 1 FROM registrations WHERE user_id = ? AND session_id = ?`,
			registration.UserID, registration.SessionID)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if duplicate {
			return database.ErrAlreadyRegistered
		}

		session, err := getSession(ctx, tx, registration.SessionID)
		if err != nil {
			return err
		}
		if session.IsFull() {
			return database.ErrSessionFull
		}

		conflict, err := exists(ctx, tx,
			`SELECT 1 FROM registrations g JOIN sessions s ON s.id = g.session_id
			 WHERE g.user_id = ? AND g.status = ? AND `+overlapFilter+` LIMIT 1`,
			registration.UserID, string(model.RegistrationConfirmed),
			toMillis(session.EndTime()), toMillis(session.SessionTime))
		if err != nil {
			return fmt.Errorf("check schedule conflict: %w", err)
		}
		if conflict {
			return database.ErrScheduleConflict
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO registrations (id, user_id, session_id, status, registered_at) VALUES (?, ?, ?, ?, ?)`,
			registration.ID, registration.UserID, registration.SessionID,
			string(model.RegistrationConfirmed), toMillis(registration.RegisteredAt))
		if err != nil {
			if isUniqueViolation(err, "registrations.") {
				return database.ErrAlreadyRegistered
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET current_participants = current_participants + 1 WHERE id = ?`,
			registration.SessionID); err != nil {
			return fmt.Errorf("increment participants: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Registration{}, err
	}
	return s.GetRegistration(ctx, registration.ID)
}

// transition moves a registration to next, decrementing the session counter when it leaves the seat.
func (s *Store) transition(ctx context.Context, id string, next model.RegistrationStatus) (model.Registration, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getRegistration(ctx, tx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(next) {
			return database.ErrInvalidTransition
		}
		if _, err := tx.ExecContext(ctx, `UPDATE registrations SET status = ? WHERE id = ?`, string(next), id); err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		if next == model.RegistrationCancelled {
			if _, err := tx.ExecContext(ctx,
				`UPDATE sessions SET current_participants = MAX(current_participants - 1, 0) WHERE id = ?`,
				current.SessionID); err != nil {
				return fmt.Errorf("decrement participants: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Registration{}, err
	}
	return s.GetRegistration(ctx, id)
}

func (s *Store) CancelRegistration(ctx context.Context, id string) (model.Registration, error) {
	return s.transition(ctx, id, model.RegistrationCancelled)
}

func (s *Store) MarkAttended(ctx context.Context, id string) (model.Registration, error) {
	return s.transition(ctx, id, model.RegistrationAttended)
}

func (s *Store) GetRegistration(ctx context.Context, id string) (model.Registration, error) {
	return getRegistration(ctx, s.sqlDB, id)
}

func (s *Store) ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx, "WHERE g.user_id = ?", userID)
}

func (s *Store) ListRegistrationsBySession(ctx context.Context, sessionID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx, "WHERE g.session_id = ?", sessionID)
}

func (s *Store) HasRegistration(ctx context.Context, userID, sessionID string) (bool, error) {
	found, err := exists(ctx, s.sqlDB,
		`SELECT 1 FROM registrations WHERE user_id = ? AND session_id = ?`, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return found, nil
}
