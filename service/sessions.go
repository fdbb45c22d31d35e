package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conference-webapp/database"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

// SessionService schedules accepted proposals into the catalog.
type SessionService struct {
	deps
	sessions  database.SessionStore
	proposals database.ProposalStore
}

// Create schedules an accepted proposal. The catalog allows one session per proposal and
// no two live sessions with overlapping time ranges, whatever the room.
func (s *SessionService) Create(ctx context.Context, identity model.Identity, req model.SessionRequest) (model.Session, error) {
	if err := requirePrivileged(identity); err != nil {
		return model.Session{}, err
	}
	req.ProposalID = strings.TrimSpace(req.ProposalID)
	req.Room = strings.TrimSpace(req.Room)
	if req.ProposalID == "" {
		return model.Session{}, apperrors.Validation("Proposal ID is required")
	}
	if req.Room == "" {
		return model.Session{}, apperrors.Validation("Room is required")
	}
	if req.SessionTime.IsZero() {
		return model.Session{}, apperrors.Validation("Session time is required")
	}
	if !req.SessionTime.After(s.now()) {
		return model.Session{}, apperrors.Validation("Session time must be in the future")
	}
	if req.DurationMinutes < model.MinDurationMinutes {
		return model.Session{}, apperrors.Validation("Duration must be at least 15 minutes")
	}
	capacity := model.DefaultMaxParticipants
	if req.MaxParticipants != nil {
		capacity = *req.MaxParticipants
	}
	if capacity < 1 {
		return model.Session{}, apperrors.Validation("Max participants must be at least 1")
	}

	proposal, err := s.proposals.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return model.Session{}, storeError(err, "Proposal not found")
	}
	if proposal.Status != model.ProposalAccepted {
		return model.Session{}, apperrors.Validation("Only accepted proposals can be scheduled")
	}

	session := model.Session{
		ID:              s.newID(),
		ProposalID:      proposal.ID,
		SpeakerID:       proposal.UserID,
		Title:           proposal.Title,
		Description:     proposal.Description,
		SessionTime:     req.SessionTime.UTC(),
		DurationMinutes: req.DurationMinutes,
		Room:            req.Room,
		MaxParticipants: capacity,
		Status:          model.SessionScheduled,
		CreatedAt:       s.now(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return model.Session{}, sessionWriteError(err)
	}
	return s.Get(ctx, session.ID)
}

// Update changes room, time, duration, capacity or status. Zero-valued fields keep
// their current value.
func (s *SessionService) Update(ctx context.Context, identity model.Identity, id string, req model.SessionRequest) (model.Session, error) {
	if err := requirePrivileged(identity); err != nil {
		return model.Session{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Session{}, err
	}

	update := model.SessionUpdate{
		ID:              id,
		Room:            current.Room,
		SessionTime:     current.SessionTime,
		DurationMinutes: current.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
	}
	if room := strings.TrimSpace(req.Room); room != "" {
		update.Room = room
	}
	if !req.SessionTime.IsZero() && !req.SessionTime.Equal(current.SessionTime) {
		if !req.SessionTime.After(s.now()) {
			return model.Session{}, apperrors.Validation("Session time must be in the future")
		}
		update.SessionTime = req.SessionTime.UTC()
	}
	if req.DurationMinutes != 0 {
		if req.DurationMinutes < model.MinDurationMinutes {
			return model.Session{}, apperrors.Validation("Duration must be at least 15 minutes")
		}
		update.DurationMinutes = req.DurationMinutes
	}
	if req.MaxParticipants != nil && *req.MaxParticipants < 1 {
		return model.Session{}, apperrors.Validation("Max participants must be at least 1")
	}
	if req.Status != "" {
		status, err := model.ParseSessionStatus(req.Status)
		if err != nil {
			return model.Session{}, apperrors.Validation("Invalid session status: " + req.Status)
		}
		update.Status = &status
	}

	session, err := s.sessions.UpdateSession(ctx, update)
	if err != nil {
		if errors.Is(err, database.ErrInvalidTransition) {
			return model.Session{}, apperrors.Conflict(
				fmt.Sprintf("Cannot change session status from %s to %s", current.Status, *update.Status))
		}
		if errors.Is(err, database.ErrBelowParticipants) {
			return model.Session{}, apperrors.Validation(
				fmt.Sprintf("Max participants cannot be below current participants (%d)", current.CurrentParticipants))
		}
		return model.Session{}, sessionWriteError(err)
	}
	return session, nil
}

// Delete removes a session nobody holds a seat in.
func (s *SessionService) Delete(ctx context.Context, identity model.Identity, id string) error {
	if err := requirePrivileged(identity); err != nil {
		return err
	}
	err := s.sessions.DeleteSession(ctx, id)
	if errors.Is(err, database.ErrHasParticipants) {
		return apperrors.Conflict("Cannot delete session with registered participants")
	}
	if err != nil {
		return storeError(err, "Session not found")
	}
	return nil
}

func (s *SessionService) Get(ctx context.Context, id string) (model.Session, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, storeError(err, "Session not found")
	}
	return session, nil
}

func (s *SessionService) List(ctx context.Context) ([]model.Session, error) {
	sessions, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return nil, apperrors.Internal("list sessions", err)
	}
	return sessions, nil
}

// ListUpcoming returns scheduled sessions that have not started yet, earliest first.
func (s *SessionService) ListUpcoming(ctx context.Context) ([]model.Session, error) {
	sessions, err := s.sessions.ListUpcomingSessions(ctx, s.now())
	if err != nil {
		return nil, apperrors.Internal("list sessions", err)
	}
	return sessions, nil
}

// ListBySpeaker returns the sessions built from the caller's proposals.
func (s *SessionService) ListBySpeaker(ctx context.Context, identity model.Identity) ([]model.Session, error) {
	sessions, err := s.sessions.ListSessionsBySpeaker(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Internal("list sessions", err)
	}
	return sessions, nil
}

func sessionWriteError(err error) error {
	switch {
	case errors.Is(err, database.ErrSessionExists):
		return apperrors.Conflict("Session already exists for this proposal")
	case errors.Is(err, database.ErrTimeConflict):
		return apperrors.Conflict("Time slot conflicts with existing session")
	}
	return storeError(err, "Session not found")
}
