package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"conference-webapp/database"
	"conference-webapp/model"
)

const sessionSelect = `SELECT s.id, s.proposal_id, s.speaker_id, u.full_name, s.title, s.description, s.session_time,
	s.duration_minutes, s.room, s.max_participants, s.current_participants, s.status, s.created_at
	FROM sessions s
	JOIN users u ON u.id = s.speaker_id`

// sessionEnd is the exclusive end of a session row.
const sessionEnd = `s.session_time + make_interval(mins => s.duration_minutes)`

func scanSession(row scanner) (model.Session, error) {
	var (
		session model.Session
		status  string
	)
	err := row.Scan(&session.ID, &session.ProposalID, &session.SpeakerID, &session.SpeakerName, &session.Title,
		&session.Description, &session.SessionTime, &session.DurationMinutes, &session.Room, &session.MaxParticipants,
		&session.CurrentParticipants, &status, &session.CreatedAt)
	if err != nil {
		return model.Session{}, err
	}
	session.Status = model.SessionStatus(status)
	session.SessionTime = utc(session.SessionTime)
	session.CreatedAt = utc(session.CreatedAt)
	return session, nil
}

func getSession(ctx context.Context, q queryer, id string, forUpdate bool) (model.Session, error) {
	query := sessionSelect + " WHERE s.id = $1"
	if forUpdate {
		query += " FOR UPDATE OF s"
	}
	session, err := scanSession(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Session{}, database.ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *Store) listSessions(ctx context.Context, where string, args ...any) ([]model.Session, error) {
	rows, err := s.pool.Query(ctx, sessionSelect+" "+where+" ORDER BY s.session_time", args...)
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

func lockCatalog(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, catalogLockKey); err != nil {
		return fmt.Errorf("lock session catalog: %w", err)
	}
	return nil
}

// hasOverlap reports whether any live session other than excludeID intersects [start, end).
func hasOverlap(ctx context.Context, q queryer, start, end time.Time, excludeID string) (bool, error) {
	found, err := exists(ctx, q,
		`SELECT 1 FROM sessions s
		 WHERE s.session_time < $1 AND `+sessionEnd+` > $2 AND s.status <> $3 AND s.id <> $4
		 LIMIT 1`,
		end, start, string(model.SessionCancelled), excludeID)
	if err != nil {
		return false, fmt.Errorf("check session overlap: %w", err)
	}
	return found, nil
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockCatalog(ctx, tx); err != nil {
			return err
		}
		scheduled, err := exists(ctx, tx, `SELECT 1 FROM sessions WHERE proposal_id = $1`, session.ProposalID)
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
		_, err = tx.Exec(ctx,
			`INSERT INTO sessions (id, proposal_id, speaker_id, title, description, session_time, duration_minutes,
			   room, max_participants, current_participants, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			session.ID, session.ProposalID, session.SpeakerID, session.Title, session.Description,
			session.SessionTime, session.DurationMinutes, session.Room, session.MaxParticipants,
			session.CurrentParticipants, string(session.Status), session.CreatedAt,
		)
		switch {
		case err == nil:
			return nil
		case isUniqueViolation(err, "sessions_proposal_id_key"):
			return database.ErrSessionExists
		case isForeignKeyViolation(err):
			return database.ErrNotFound
		}
		return fmt.Errorf("insert session: %w", err)
	})
}

func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	return getSession(ctx, s.pool, id, false)
}

func (s *Store) ListSessions(ctx context.Context) ([]model.Session, error) {
	return s.listSessions(ctx, "")
}

func (s *Store) ListUpcomingSessions(ctx context.Context, now time.Time) ([]model.Session, error) {
	return s.listSessions(ctx, "WHERE s.session_time >= $1 AND s.status = $2", now, string(model.SessionScheduled))
}

func (s *Store) ListSessionsBySpeaker(ctx context.Context, speakerID string) ([]model.Session, error) {
	return s.listSessions(ctx, "WHERE s.speaker_id = $1", speakerID)
}

func (s *Store) UpdateSession(ctx context.Context, update model.SessionUpdate) (model.Session, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockCatalog(ctx, tx); err != nil {
			return err
		}
		current, err := getSession(ctx, tx, update.ID, true)
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

		_, err = tx.Exec(ctx,
			`UPDATE sessions
			 SET room = $1, session_time = $2, duration_minutes = $3, max_participants = $4, status = $5
			 WHERE id = $6`,
			next.Room, next.SessionTime, next.DurationMinutes, next.MaxParticipants, string(next.Status), next.ID,
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
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND current_participants = 0`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return database.ErrHasParticipants
	}
	return nil
}
