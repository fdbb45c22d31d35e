package service

import (
	"context"
	"errors"
	"strings"

	"conference-webapp/database"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

// FeedbackService collects one rating per attendee and session.
type FeedbackService struct {
	deps
	feedback      database.FeedbackStore
	registrations database.RegistrationStore
	sessions      database.SessionStore
}

// Submit checks, in this order, for earlier feedback, for a registration of any
// status, and for the session itself.
func (s *FeedbackService) Submit(ctx context.Context, identity model.Identity, req model.FeedbackRequest) (model.Feedback, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validateRequest(req); err != nil {
		return model.Feedback{}, err
	}

	given, err := s.feedback.HasFeedback(ctx, identity.UserID, req.SessionID)
	if err != nil {
		return model.Feedback{}, apperrors.Internal("check feedback", err)
	}
	if given {
		return model.Feedback{}, apperrors.Conflict("You already gave feedback for this session")
	}
	registered, err := s.registrations.HasRegistration(ctx, identity.UserID, req.SessionID)
	if err != nil {
		return model.Feedback{}, apperrors.Internal("check registration", err)
	}
	if !registered {
		return model.Feedback{}, apperrors.Permission("You must be registered for this session to give feedback")
	}
	if _, err := s.sessions.GetSession(ctx, req.SessionID); err != nil {
		return model.Feedback{}, storeError(err, "Session not found")
	}

	feedback := model.Feedback{
		ID:        s.newID(),
		UserID:    identity.UserID,
		SessionID: req.SessionID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: s.now(),
	}
	err = s.feedback.CreateFeedback(ctx, feedback)
	if errors.Is(err, database.ErrFeedbackExists) {
		return model.Feedback{}, apperrors.Conflict("You already gave feedback for this session")
	}
	if err != nil {
		return model.Feedback{}, storeError(err, "Session not found")
	}
	return s.get(ctx, feedback.ID)
}

// AverageRating is 0 for a session nobody has rated.
func (s *FeedbackService) AverageRating(ctx context.Context, sessionID string) (float64, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return 0, storeError(err, "Session not found")
	}
	average, err := s.feedback.AverageRating(ctx, sessionID)
	if err != nil {
		return 0, apperrors.Internal("average rating", err)
	}
	return average, nil
}

func (s *FeedbackService) Delete(ctx context.Context, identity model.Identity, id string) error {
	if err := requirePrivileged(identity); err != nil {
		return err
	}
	if err := s.feedback.DeleteFeedback(ctx, id); err != nil {
		return storeError(err, "Feedback not found")
	}
	return nil
}

func (s *FeedbackService) ListBySession(ctx context.Context, sessionID string) ([]model.Feedback, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, storeError(err, "Session not found")
	}
	items, err := s.feedback.ListFeedbackBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("list feedback", err)
	}
	return items, nil
}

func (s *FeedbackService) ListMine(ctx context.Context, identity model.Identity) ([]model.Feedback, error) {
	items, err := s.feedback.ListFeedbackByUser(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Internal("list feedback", err)
	}
	return items, nil
}

func (s *FeedbackService) get(ctx context.Context, id string) (model.Feedback, error) {
	feedback, err := s.feedback.GetFeedback(ctx, id)
	if err != nil {
		return model.Feedback{}, storeError(err, "Feedback not found")
	}
	return feedback, nil
}
