package service

import (
	"context"
	"errors"

	"conference-webapp/database"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

// RegistrationService seats attendees in sessions.
type RegistrationService struct {
	deps
	registrations database.RegistrationStore
	sessions      database.SessionStore
}

// Join takes a seat for the caller. The store runs the duplicate, capacity and
// schedule checks together with the counter increment as one atomic unit, so two
// callers racing for the last seat cannot both succeed.
func (s *RegistrationService) Join(ctx context.Context, identity model.Identity, sessionID string) (model.Registration, error) {
	registration, err := s.registrations.JoinSession(ctx, model.Registration{
		ID:           s.newID(),
		UserID:       identity.UserID,
		SessionID:    sessionID,
		Status:       model.RegistrationConfirmed,
		RegisteredAt: s.now(),
	})
	switch {
	case errors.Is(err, database.ErrUnknownUser):
		return model.Registration{}, apperrors.Unauthorized("Current user not found")
	case errors.Is(err, database.ErrAlreadyRegistered):
		return model.Registration{}, apperrors.Conflict("Already registered for this session")
	case errors.Is(err, database.ErrSessionFull):
		return model.Registration{}, apperrors.Validation("Session is full")
	case errors.Is(err, database.ErrScheduleConflict):
		return model.Registration{}, apperrors.Conflict("You have another session at this time")
	case err != nil:
		return model.Registration{}, storeError(err, "Session not found")
	}
	return registration, nil
}

// Cancel gives the caller's seat back. A cancelled registration is final.
func (s *RegistrationService) Cancel(ctx context.Context, identity model.Identity, id string) (model.Registration, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return model.Registration{}, err
	}
	if current.UserID != identity.UserID {
		return model.Registration{}, apperrors.Permission("You can only cancel your own registrations")
	}
	if current.Status == model.RegistrationCancelled {
		return model.Registration{}, apperrors.Conflict("Registration already cancelled")
	}

	registration, err := s.registrations.CancelRegistration(ctx, id)
	if errors.Is(err, database.ErrInvalidTransition) {
		return model.Registration{}, apperrors.Conflict("Only confirmed registrations can be cancelled")
	}
	if err != nil {
		return model.Registration{}, storeError(err, "Registration not found")
	}
	return registration, nil
}

// MarkAttended records that a confirmed attendee showed up.
func (s *RegistrationService) MarkAttended(ctx context.Context, identity model.Identity, id string) (model.Registration, error) {
	if err := requirePrivileged(identity); err != nil {
		return model.Registration{}, err
	}
	registration, err := s.registrations.MarkAttended(ctx, id)
	if errors.Is(err, database.ErrInvalidTransition) {
		return model.Registration{}, apperrors.Conflict("Only confirmed registrations can be marked attended")
	}
	if err != nil {
		return model.Registration{}, storeError(err, "Registration not found")
	}
	return registration, nil
}

func (s *RegistrationService) ListMine(ctx context.Context, identity model.Identity) ([]model.Registration, error) {
	registrations, err := s.registrations.ListRegistrationsByUser(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Internal("list registrations", err)
	}
	return registrations, nil
}

func (s *RegistrationService) ListBySession(ctx context.Context, identity model.Identity, sessionID string) ([]model.Registration, error) {
	if err := requirePrivileged(identity); err != nil {
		return nil, err
	}
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, storeError(err, "Session not found")
	}
	registrations, err := s.registrations.ListRegistrationsBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("list registrations", err)
	}
	return registrations, nil
}

func (s *RegistrationService) get(ctx context.Context, id string) (model.Registration, error) {
	registration, err := s.registrations.GetRegistration(ctx, id)
	if err != nil {
		return model.Registration{}, storeError(err, "Registration not found")
	}
	return registration, nil
}
