package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

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
	)
	err := row.Scan(&registration.ID, &registration.UserID, &registration.Username, &registration.SessionID,
		&registration.SessionTitle, &registration.SessionTime, &status, &registration.RegisteredAt)
	if err != nil {
		return model.Registration{}, err
	}
	registration.Status = model.RegistrationStatus(status)
	registration.SessionTime = utc(registration.SessionTime)
	registration.RegisteredAt = utc(registration.RegisteredAt)
	return registration, nil
}

func getRegistration(ctx context.Context, q queryer, id string, forUpdate bool) (model.Registration, error) {
	query := registrationSelect + " WHERE g.id = $1"
	if forUpdate {
		query += " FOR UPDATE OF g"
	}
	registration, err := scanRegistration(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Registration{}, database.ErrNotFound
	}
	if err != nil {
		return model.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return registration, nil
}

func (s *Store) listRegistrations(ctx context.Context, where string, args ...any) ([]model.Registration, error) {
	rows, err := s.pool.Query(ctx, registrationSelect+" "+where+" ORDER BY g.registered_at", args...)
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

// JoinSession locks the caller's user row and then the session row. The user lock
// serializes one attendee's joins so the schedule check cannot race; the session
// lock serializes the capacity check and the counter increment.
func (s *Store) JoinSession(ctx context.Context, registration model.Registration) (model.Registration, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockUser(ctx, tx, registration.UserID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return database.ErrUnknownUser
			}
			return err
		}
		session, err := getSession(ctx, tx, registration.SessionID, true)
		if err != nil {
			return err
		}

		duplicate, err := exists(ctx, tx,
			`SELECT 1 FROM registrations WHERE user_id = $1 AND session_id = $2`,
			registration.UserID, registration.SessionID)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if duplicate {
			return database.ErrAlreadyRegistered
		}
		if session.IsFull() {
			return database.ErrSessionFull
		}

		conflict, err := exists(ctx, tx,
			`SELECT 1 FROM registrations g JOIN sessions s ON s.id = g.session_id
			 WHERE g.user_id = $1 AND g.status = $2 AND s.session_time < $3 AND `+sessionEnd+` > $4
			 LIMIT 1`,
			registration.UserID, string(model.RegistrationConfirmed), session.EndTime(), session.SessionTime)
		if err != nil {
			return fmt.Errorf("check schedule conflict: %w", err)
		}
		if conflict {
			return database.ErrScheduleConflict
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO registrations (id, user_id, session_id, status, registered_at) VALUES ($1, $2, $3, $4, $5)`,
			registration.ID, registration.UserID, registration.SessionID,
			string(model.RegistrationConfirmed), registration.RegisteredAt)
		if err != nil {
			if isUniqueViolation(err, "registrations_user_id_session_id_key") {
				return database.ErrAlreadyRegistered
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE sessions SET current_participants = current_participants + 1 WHERE id = $1`,
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

func (s *Store) transition(ctx context.Context, id string, next model.RegistrationStatus) (model.Registration, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := getRegistration(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(next) {
			return database.ErrInvalidTransition
		}
		if _, err := tx.Exec(ctx, `UPDATE registrations SET status = $1 WHERE id = $2`, string(next), id); err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		if next == model.RegistrationCancelled {
			if _, err := tx.Exec(ctx,
				`UPDATE sessions SET current_participants = GREATEST(current_participants - 1, 0) WHERE id = $1`,
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
	return getRegistration(ctx, s.pool, id, false)
}

func (s *Store) ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx, "WHERE g.user_id = $1", userID)
}

func (s *Store) ListRegistrationsBySession(ctx context.Context, sessionID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx, "WHERE g.session_id = $1", sessionID)
}

func (s *Store) HasRegistration(ctx context.Context, userID, sessionID string) (bool, error) {
	found, err := exists(ctx, s.pool,
		`SELECT 1 FROM registrations WHERE user_id = $1 AND session_id = $2`, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return found, nil
}
