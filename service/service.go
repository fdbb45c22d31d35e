// Package service implements the conference workflows on top of a database.Store.
//
// Every operation receives the caller's model.Identity as an explicit argument.
// Store sentinels are translated here into classified errors from the errors package,
// so handlers never look at database errors directly.
package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"conference-webapp/auth"
	"conference-webapp/database"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

// Clock returns the current time. Services store every timestamp in UTC.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// deps is the state every service shares.
type deps struct {
	now    Clock
	newID  func() string
	logger *slog.Logger
}

// Services bundles one instance of each workflow over the same store.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Proposals     *ProposalService
	Sessions      *SessionService
	Registrations *RegistrationService
	Feedback      *FeedbackService
}

func New(store database.Store, issuer *auth.Issuer, logger *slog.Logger) *Services {
	return NewWithClock(store, issuer, logger, systemClock)
}

// NewWithClock is New with a caller-supplied clock.
func NewWithClock(store database.Store, issuer *auth.Issuer, logger *slog.Logger, now Clock) *Services {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := deps{now: now, newID: uuid.NewString, logger: logger}
	return &Services{
		Auth:          &AuthService{deps: d, users: store, issuer: issuer},
		Users:         &UserService{deps: d, users: store},
		Proposals:     &ProposalService{deps: d, proposals: store},
		Sessions:      &SessionService{deps: d, sessions: store, proposals: store},
		Registrations: &RegistrationService{deps: d, registrations: store, sessions: store},
		Feedback: &FeedbackService{
			deps:          d,
			feedback:      store,
			registrations: store,
			sessions:      store,
		},
	}
}

func requirePrivileged(identity model.Identity) error {
	if !identity.IsPrivileged() {
		return apperrors.Permission("Coordinator or administrator role required")
	}
	return nil
}

func requireAdmin(identity model.Identity) error {
	if !identity.IsAdmin() {
		return apperrors.Permission("Administrator role required")
	}
	return nil
}

// storeError classifies a store failure, reporting ErrNotFound with notFound.
func storeError(err error, notFound string) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.NotFound(notFound)
	}
	return apperrors.Internal("store failure", err)
}
