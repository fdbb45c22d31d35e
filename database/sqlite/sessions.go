package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"conference-webapp/database"
	"conference-webapp/model"
)

const sessionSelect = `SELECT s.id, s.proposal_id, s.speaker_id, u.full_name, s.title, s.description, s.session_time,
	s.duration_minutes, s.room, s.max_participants, s.current_participants, s.status, s.created_at
	FROM sessions s
	JOIN users u ON u.id = s.speaker_id`

// overlapFilter matches sessions intersecting [start, end); args are (end, start).
const overlapFilter = `s.session_time < ? AND s.session_time + s.duration_minutes * 60000 > ?`

func scanSession(row scanner) (model.Session, error) {
	var (
		session     model.Session
		status      string
		sessionTime int64
		createdAt   int64
	)
	err := row.Scan(&session.ID, &session.ProposalID, &session.SpeakerID, &session.SpeakerName, &session.Title,
		&session.Description, &sessionTime, &session.DurationMinutes, &session.Room, &session.MaxParticipants,
		&session.CurrentParticipants, &status, &createdAt)
	if err != nil {
		return model.Session{}, err
	}
	session.Status = model.SessionStatus(status)
	session.SessionTime = fromMillis(sessionTime)
	session.CreatedAt = fromMillis(createdAt)
	return session, nil
}

func getSession(ctx context.Context, q queryer, id string) (model.Session, error) {
	session, err := scanSession(q.QueryRowContext(ctx, sessionSelect+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, database.ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *Store) listSessions(ctx context.Context, where string, args ...any) ([]model.Session, error) {
	rows, err := s.sqlDB.QueryContext(ctx, sessionSelect+" "+where+" ORDER BY s.session_time", args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// hasOverlap reports whether any live session other than excludeID intersects [start, end).
// Cancelled sessions free their slot.
func hasOverlap(ctx context.Context, q queryer, start, end time.Time, excludeID string) (bool, error) {
	found, err := exists(ctx, q,
		`SELECT 1 FROM sessions s WHERE `+overlapFilter+` AND s.status <> ? AND s.id <> ? LIMIT 1`,
		toMillis(end), toMillis(start), string(model.SessionCancelled), excludeID)
	if err != nil {
		return false, fmt.Errorf("check session overlap: %w", err)
	}
	return found, nil
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		scheduled, err := exists(ctx, tx, `SELECT 1 FROM sessions WHERE proposal_id = ?`, session.ProposalID)
		if err != nil {
			return fmt.Errorf("check proposal session: %w", err)
		}
		if scheduled {
			return database.ErrSessionExists
		}
		conflict, err := hasOverlap(ctx, tx, session.SessionTime, session.EndTime(), "")
		if err != nil {
			return err
		}
		if conflict {
			return database.ErrTimeConflict
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sessions (id, proposal_id, speaker_id, title, description, session_time, duration_minutes,
			   room, max_participants, current_participants, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.ProposalID, session.SpeakerID, session.Title, session.Description,
			toMillis(session.SessionTime), session.DurationMinutes, session.Room, session.MaxParticipants,
			session.CurrentParticipants, string(session.Status), toMillis(session.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err, "sessions.proposal_id") {
				return database.ErrSessionExists
			}
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	return getSession(ctx, s.sqlDB, id)
}

func (s *Store) ListSessions(ctx context.Context) ([]model.Session, error) {
	return s.listSessions(ctx, "")
}

func (s *Store) ListUpcomingSessions(ctx context.Context, now time.Time) ([]model.Session, error) {
	return s.listSessions(ctx, "WHERE s.session_time >= ? AND s.status = ?", toMillis(now), string(model.SessionScheduled))
}

func (s *Store) ListSessionsBySpeaker(ctx context.Context, speakerID string) ([]model.Session, error) {
	return s.listSessions(ctx, "WHERE s.speaker_id = ?", speakerID)
}

func (s *Store) UpdateSession(ctx context.Context, update model.SessionUpdate) (model.Session, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getSession(ctx, tx, update.ID)
		if err != nil {
			return err
		}
		next := current
		next.Room = update.Room
		next.SessionTime = update.SessionTime
		next.DurationMinutes = update.DurationMinutes
		if update.MaxParticipants != nil {
			next.MaxParticipants = *update.MaxParticipants
		}
		if update.Status != nil && *update.Status != current.Status {
			if !current.Status.CanTransitionTo(*update.Status) {
				return database.ErrInvalidTransition
			}
			next.Status = *update.Status
		}

		if next.Status != model.SessionCancelled {
			conflict, err := hasOverlap(ctx, tx, next.SessionTime, next.EndTime(), current.ID)
			if err != nil {
				return err
			}
			if conflict {
				return database.ErrTimeConflict
			}
		}
		if next.MaxParticipants < current.CurrentParticipants {
			return database.ErrBelowParticipants
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE sessions
			 SET room = ?, session_time = ?, duration_minutes = ?, max_participants = ?, status = ?
			 WHERE id = ?`,
			next.Room, toMillis(next.SessionTime), next.DurationMinutes, next.MaxParticipants, string(next.Status), next.ID,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Session{}, err
	}
	return s.GetSession(ctx, update.ID)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND current_participants = 0`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return database.ErrHasParticipants
	}
	return nil
}
