package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference-webapp/database"
	"conference-webapp/model"
)

// sessionDocument stores the exclusive end next to the session so overlap
// queries can run against an index.
type sessionDocument struct {
	model.Session `bson:",inline"`
	SessionEnd    time.Time `bson:"session_end"`
}

func (s *Store) withSpeakerNames(ctx context.Context, sessions []model.Session) ([]model.Session, error) {
	if len(sessions) == 0 {
		return sessions, nil
	}
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.SpeakerID)
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].SpeakerName = users[sessions[i].SpeakerID].FullName
	}
	return sessions, nil
}

func (s *Store) listSessions(ctx context.Context, filter bson.D) ([]model.Session, error) {
	sessions, err := findAll[model.Session](ctx, s.sessions, filter,
		options.Find().SetSort(bson.D{{Key: "session_time", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return s.withSpeakerNames(ctx, sessions)
}

// sessionsByID loads the given sessions keyed by id, without speaker names.
func (s *Store) sessionsByID(ctx context.Context, ids []string) (map[string]model.Session, error) {
	sessions, err := findAll[model.Session](ctx, s.sessions,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: uniqueIDs(ids)}}}})
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Session, len(sessions))
	for _, session := range sessions {
		out[session.ID] = session
	}
	return out, nil
}

// overlapFilter matches sessions intersecting [start, end).
func overlapFilter(start, end time.Time) bson.D {
	return bson.D{
		{Key: "session_time", Value: bson.D{{Key: "$lt", Value: end}}},
		{Key: "session_end", Value: bson.D{{Key: "$gt", Value: start}}},
	}
}

// hasOverlap must run while the catalog lock is held.
func (s *Store) hasOverlap(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	filter := append(overlapFilter(start, end),
		bson.E{Key: "status", Value: bson.D{{Key: "$ne", Value: string(model.SessionCancelled)}}},
		bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludeID}}},
	)
	return exists(ctx, s.sessions, filter)
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	unlock := s.locks.Lock(catalogKey)
	defer unlock()

	scheduled, err := exists(ctx, s.sessions, bson.D{{Key: "proposal_id", Value: session.ProposalID}})
	if err != nil {
		return err
	}
	if scheduled {
		return database.ErrSessionExists
	}
	conflict, err := s.hasOverlap(ctx, session.SessionTime, session.EndTime(), "")
	if err != nil {
		return err
	}
	if conflict {
		return database.ErrTimeConflict
	}

	_, err = s.sessions.InsertOne(ctx, sessionDocument{Session: session, SessionEnd: session.EndTime()})
	if err != nil {
		if duplicateOn(err, "proposal_unique") {
			return database.ErrSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	session, err := findOne[model.Session](ctx, s.sessions, byID(id))
	if err != nil {
		return model.Session{}, err
	}
	enriched, err := s.withSpeakerNames(ctx, []model.Session{session})
	if err != nil {
		return model.Session{}, err
	}
	return enriched[0], nil
}

func (s *Store) ListSessions(ctx context.Context) ([]model.Session, error) {
	return s.listSessions(ctx, bson.D{})
}

func (s *Store) ListUpcomingSessions(ctx context.Context, now time.Time) ([]model.Session, error) {
	return s.listSessions(ctx, bson.D{
		{Key: "session_time", Value: bson.D{{Key: "$gte", Value: now}}},
		{Key: "status", Value: string(model.SessionScheduled)},
	})
}

func (s *Store) ListSessionsBySpeaker(ctx context.Context, speakerID string) ([]model.Session, error) {
	return s.listSessions(ctx, bson.D{{Key: "speaker_id", Value: speakerID}})
}

func (s *Store) UpdateSession(ctx context.Context, update model.SessionUpdate) (model.Session, error) {
	unlockCatalog := s.locks.Lock(catalogKey)
	defer unlockCatalog()
	unlockSession := s.locks.Lock(sessionKey(update.ID))
	defer unlockSession()

	current, err := s.GetSession(ctx, update.ID)
	if err != nil {
		return model.Session{}, err
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
			return model.Session{}, database.ErrInvalidTransition
		}
		next.Status = *update.Status
	}

	if next.Status != model.SessionCancelled {
		conflict, err := s.hasOverlap(ctx, next.SessionTime, next.EndTime(), current.ID)
		if err != nil {
			return model.Session{}, err
		}
		if conflict {
			return model.Session{}, database.ErrTimeConflict
		}
	}
	if next.MaxParticipants < current.CurrentParticipants {
		return model.Session{}, database.ErrBelowParticipants
	}

	_, err = s.sessions.UpdateOne(ctx, byID(current.ID), bson.D{{Key: "$set", Value: bson.D{
		{Key: "room", Value: next.Room},
		{Key: "session_time", Value: next.SessionTime},
		{Key: "session_end", Value: next.EndTime()},
		{Key: "duration_minutes", Value: next.DurationMinutes},
		{Key: "max_participants", Value: next.MaxParticipants},
		{Key: "status", Value: string(next.Status)},
	}}})
	if err != nil {
		return model.Session{}, fmt.Errorf("update session: %w", err)
	}
	return s.GetSession(ctx, current.ID)
}

// DeleteSession removes an empty session and cascades its registrations and feedback.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	unlock := s.locks.Lock(sessionKey(id))
	defer unlock()

	res, err := s.sessions.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "current_participants", Value: 0}})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		if _, err := findOne[model.Session](ctx, s.sessions, byID(id)); err != nil {
			return err
		}
		return database.ErrHasParticipants
	}

	if _, err := s.registrations.DeleteMany(ctx, bson.D{{Key: "session_id", Value: id}}); err != nil {
		return fmt.Errorf("delete session registrations: %w", err)
	}
	if _, err := s.feedback.DeleteMany(ctx, bson.D{{Key: "session_id", Value: id}}); err != nil {
		return fmt.Errorf("delete session feedback: %w", err)
	}
	return nil
}
