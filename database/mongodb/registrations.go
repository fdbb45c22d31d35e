package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference-webapp/database"
	"conference-webapp/model"
)

func (s *Store) withRegistrationViews(ctx context.Context, registrations []model.Registration) ([]model.Registration, error) {
	if len(registrations) == 0 {
		return registrations, nil
	}
	userIDs := make([]string, 0, len(registrations))
	sessionIDs := make([]string, 0, len(registrations))
	for _, registration := range registrations {
		userIDs = append(userIDs, registration.UserID)
		sessionIDs = append(sessionIDs, registration.SessionID)
	}
	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionsByID(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	for i := range registrations {
		registrations[i].Username = users[registrations[i].UserID].Username
		session := sessions[registrations[i].SessionID]
		registrations[i].SessionTitle = session.Title
		registrations[i].SessionTime = session.SessionTime
	}
	return registrations, nil
}

func (s *Store) listRegistrations(ctx context.Context, filter bson.D) ([]model.Registration, error) {
	registrations, err := findAll[model.Registration](ctx, s.registrations, filter,
		options.Find().SetSort(bson.D{{Key: "registered_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return s.withRegistrationViews(ctx, registrations)
}

// hasScheduleConflict reports whether userID holds a confirmed seat in a session overlapping session.
func (s *Store) hasScheduleConflict(ctx context.Context, userID string, session model.Session) (bool, error) {
	confirmed, err := findAll[model.Registration](ctx, s.registrations, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "status", Value: string(model.RegistrationConfirmed)},
	})
	if err != nil {
		return false, err
	}
	if len(confirmed) == 0 {
		return false, nil
	}
	ids := make([]string, 0, len(confirmed))
	for _, registration := range confirmed {
		ids = append(ids, registration.SessionID)
	}
	filter := append(overlapFilter(session.SessionTime, session.EndTime()),
		bson.E{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}})
	return exists(ctx, s.sessions, filter)
}

// JoinSession holds the caller's lock and then the session's lock for the whole
// check-then-insert sequence. The counter itself only moves through a $inc that
// re-checks capacity on the server.
func (s *Store) JoinSession(ctx context.Context, registration model.Registration) (model.Registration, error) {
	unlockUser := s.locks.Lock(userKey(registration.UserID))
	defer unlockUser()
	unlockSession := s.locks.Lock(sessionKey(registration.SessionID))
	defer unlockSession()

	known, err := exists(ctx, s.users, byID(registration.UserID))
	if err != nil {
		return model.Registration{}, err
	}
	if !known {
		return model.Registration{}, database.ErrUnknownUser
	}

	duplicate, err := exists(ctx, s.registrations, bson.D{
		{Key: "user_id", Value: registration.UserID},
		{Key: "session_id", Value: registration.SessionID},
	})
	if err != nil {
		return model.Registration{}, err
	}
	if duplicate {
		return model.Registration{}, database.ErrAlreadyRegistered
	}

	session, err := findOne[model.Session](ctx, s.sessions, byID(registration.SessionID))
	if err != nil {
		return model.Registration{}, err
	}
	if session.IsFull() {
		return model.Registration{}, database.ErrSessionFull
	}
	conflict, err := s.hasScheduleConflict(ctx, registration.UserID, session)
	if err != nil {
		return model.Registration{}, err
	}
	if conflict {
		return model.Registration{}, database.ErrScheduleConflict
	}

	res, err := s.sessions.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: session.ID},
			{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{"$current_participants", "$max_participants"}}}},
		},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "current_participants", Value: 1}}}})
	if err != nil {
		return model.Registration{}, fmt.Errorf("increment participants: %w", err)
	}
	if res.ModifiedCount == 0 {
		return model.Registration{}, database.ErrSessionFull
	}

	registration.Status = model.RegistrationConfirmed
	if _, err := s.registrations.InsertOne(ctx, registration); err != nil {
		if _, undoErr := s.sessions.UpdateOne(ctx, byID(session.ID),
			bson.D{{Key: "$inc", Value: bson.D{{Key: "current_participants", Value: -1}}}}); undoErr != nil {
			return model.Registration{}, fmt.Errorf("insert registration: %w (undo increment: %v)", err, undoErr)
		}
		if duplicateOn(err, "user_session_unique") {
			return model.Registration{}, database.ErrAlreadyRegistered
		}
		return model.Registration{}, fmt.Errorf("insert registration: %w", err)
	}
	return s.GetRegistration(ctx, registration.ID)
}

func (s *Store) transition(ctx context.Context, id string, next model.RegistrationStatus) (model.Registration, error) {
	current, err := findOne[model.Registration](ctx, s.registrations, byID(id))
	if err != nil {
		return model.Registration{}, err
	}
	unlock := s.locks.Lock(sessionKey(current.SessionID))
	defer unlock()

	if !current.Status.CanTransitionTo(next) {
		return model.Registration{}, database.ErrInvalidTransition
	}
	res, err := s.registrations.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "status", Value: string(current.Status)}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(next)}}}})
	if err != nil {
		return model.Registration{}, fmt.Errorf("update registration: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.Registration{}, database.ErrInvalidTransition
	}
	if next == model.RegistrationCancelled {
		_, err := s.sessions.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: current.SessionID}, {Key: "current_participants", Value: bson.D{{Key: "$gt", Value: 0}}}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "current_participants", Value: -1}}}})
		if err != nil {
			return model.Registration{}, fmt.Errorf("decrement participants: %w", err)
		}
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
	registration, err := findOne[model.Registration](ctx, s.registrations, byID(id))
	if err != nil {
		return model.Registration{}, err
	}
	enriched, err := s.withRegistrationViews(ctx, []model.Registration{registration})
	if err != nil {
		return model.Registration{}, err
	}
	return enriched[0], nil
}

func (s *Store) ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx, bson.D{{Key: "user_id", Value: userID}})
}

func (s *Store) ListRegistrationsBySession(ctx context.Context, sessionID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx, bson.D{{Key: "session_id", Value: sessionID}})
}

func (s *Store) HasRegistration(ctx context.Context, userID, sessionID string) (bool, error) {
	return exists(ctx, s.registrations, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "session_id", Value: sessionID},
	})
}
