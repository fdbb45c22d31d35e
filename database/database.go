// Package database defines the persistence contract shared by the SQLite, PostgreSQL
// and MongoDB backends.
//
// Operations that must be atomic as a unit (joining a session, reviewing a proposal,
// deleting the last administrator) are exposed as single store calls so that each
// backend can enforce them with its own locking primitive.
package database

import (
	"context"
	"errors"
	"time"

	"conference-webapp/model"
)

var (
	ErrNotFound = errors.New("not found")

	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
	ErrLastAdmin     = errors.New("at least one administrator must remain active")
	ErrHasDependents = errors.New("user still owns proposals, sessions, registrations or feedback")

	ErrNotPending = errors.New("proposal already reviewed")

	ErrSessionExists     = errors.New("proposal already has a session")
	ErrTimeConflict      = errors.New("time slot conflicts with existing session")
	ErrBelowParticipants = errors.New("capacity is below the current number of participants")
	ErrHasParticipants   = errors.New("session has registered participants")

	ErrUnknownUser       = errors.New("user does not exist")
	ErrAlreadyRegistered = errors.New("already registered for this session")
	ErrSessionFull       = errors.New("session is full")
	ErrScheduleConflict  = errors.New("another session at this time")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrFeedbackExists    = errors.New("feedback already given for this session")
)

type UserStore interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	// GetUserByLogin matches either the username or the email.
	GetUserByLogin(ctx context.Context, login string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	// UpdateUserRole fails with ErrLastAdmin when it would demote the only administrator.
	UpdateUserRole(ctx context.Context, id string, role model.Role) (model.User, error)
	// DeleteUser fails with ErrLastAdmin for the only administrator and with
	// ErrHasDependents while other records still reference the user.
	DeleteUser(ctx context.Context, id string) (model.User, error)
}

type ProposalStore interface {
	CreateProposal(ctx context.Context, proposal model.Proposal) error
	GetProposal(ctx context.Context, id string) (model.Proposal, error)
	ListProposals(ctx context.Context) ([]model.Proposal, error)
	ListProposalsByUser(ctx context.Context, userID string) ([]model.Proposal, error)
	ListProposalsByStatus(ctx context.Context, status model.ProposalStatus) ([]model.Proposal, error)
	// ReviewProposal applies the review only while the proposal is still pending.
	ReviewProposal(ctx context.Context, review model.Review) (model.Proposal, error)
	DeletePendingProposal(ctx context.Context, id string) error
}

type SessionStore interface {
	// CreateSession rejects a second session for the same proposal and any
	// catalog-wide overlap of [SessionTime, SessionTime+DurationMinutes).
	CreateSession(ctx context.Context, session model.Session) error
	GetSession(ctx context.Context, id string) (model.Session, error)
	ListSessions(ctx context.Context) ([]model.Session, error)
	ListUpcomingSessions(ctx context.Context, now time.Time) ([]model.Session, error)
	ListSessionsBySpeaker(ctx context.Context, speakerID string) ([]model.Session, error)
	UpdateSession(ctx context.Context, update model.SessionUpdate) (model.Session, error)
	// DeleteSession removes an empty session together with its cancelled
	// registrations and feedback.
	DeleteSession(ctx context.Context, id string) error
}

type RegistrationStore interface {
	// JoinSession runs the duplicate, capacity and schedule checks and the
	// participant increment as one atomic unit per session. It fails with
	// ErrUnknownUser when the registering account no longer exists.
	JoinSession(ctx context.Context, registration model.Registration) (model.Registration, error)
	// CancelRegistration moves a confirmed registration to cancelled and
	// decrements the session counter, never below zero.
	CancelRegistration(ctx context.Context, id string) (model.Registration, error)
	MarkAttended(ctx context.Context, id string) (model.Registration, error)
	GetRegistration(ctx context.Context, id string) (model.Registration, error)
	ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error)
	ListRegistrationsBySession(ctx context.Context, sessionID string) ([]model.Registration, error)
	HasRegistration(ctx context.Context, userID, sessionID string) (bool, error)
}

type FeedbackStore interface {
	CreateFeedback(ctx context.Context, feedback model.Feedback) error
	GetFeedback(ctx context.Context, id string) (model.Feedback, error)
	HasFeedback(ctx context.Context, userID, sessionID string) (bool, error)
	ListFeedbackBySession(ctx context.Context, sessionID string) ([]model.Feedback, error)
	ListFeedbackByUser(ctx context.Context, userID string) ([]model.Feedback, error)
	AverageRating(ctx context.Context, sessionID string) (float64, error)
	DeleteFeedback(ctx context.Context, id string) error
}

// Store is implemented by every backend.
type Store interface {
	UserStore
	ProposalStore
	SessionStore
	RegistrationStore
	FeedbackStore
	Ping(ctx context.Context) error
	Close() error
}
