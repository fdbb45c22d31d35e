// Package storetest is the behavioural test suite shared by every database.Store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-webapp/database"
	"conference-webapp/model"
)

// Opener returns an empty store; it should register its own cleanup on t.
type Opener func(t *testing.T) database.Store

// Base is the fixed day every fixture session is scheduled on.
var Base = time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)

// At returns hour:minute on the Base day.
func At(hour, minute int) time.Time {
	return Base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Run executes the whole suite, opening a fresh store per subtest.
func Run(t *testing.T, open Opener) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("last admin", func(t *testing.T) { testLastAdmin(t, open(t)) })
	t.Run("user dependents", func(t *testing.T) { testUserDependents(t, open(t)) })
	t.Run("proposals", func(t *testing.T) { testProposals(t, open(t)) })
	t.Run("proposal review is one-shot", func(t *testing.T) { testReviewOnce(t, open(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, open(t)) })
	t.Run("session overlap", func(t *testing.T) { testSessionOverlap(t, open(t)) })
	t.Run("session update", func(t *testing.T) { testSessionUpdate(t, open(t)) })
	t.Run("session delete", func(t *testing.T) { testSessionDelete(t, open(t)) })
	t.Run("join", func(t *testing.T) { testJoin(t, open(t)) })
	t.Run("join schedule conflict", func(t *testing.T) { testJoinScheduleConflict(t, open(t)) })
	t.Run("concurrent join", func(t *testing.T) { testConcurrentJoin(t, open(t)) })
	t.Run("cancel", func(t *testing.T) { testCancel(t, open(t)) })
	t.Run("attend", func(t *testing.T) { testAttend(t, open(t)) })
	t.Run("feedback", func(t *testing.T) { testFeedback(t, open(t)) })
}

// NewUser stores a user with the given role and a unique name.
func NewUser(t *testing.T, store database.Store, role model.Role) model.User {
	t.Helper()
	id := uuid.NewString()
	user := model.User{
		ID:           id,
		Username:     "user-" + id[:8],
		Email:        "user-" + id[:8] + "@example.com",
		PasswordHash: "$2a$10$placeholderplaceholderplaceholderplaceholderpla",
		FullName:     "User " + id[:8],
		Role:         role,
		CreatedAt:    now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

// NewProposal stores a proposal owned by owner with the given status.
func NewProposal(t *testing.T, store database.Store, owner model.User, status model.ProposalStatus) model.Proposal {
	t.Helper()
	proposal := model.Proposal{
		ID:          uuid.NewString(),
		UserID:      owner.ID,
		Title:       "Go in production",
		Description: "Lessons learned running Go services at scale.",
		Status:      status,
		SubmittedAt: now(),
	}
	require.NoError(t, store.CreateProposal(context.Background(), proposal))
	return proposal
}

// NewSession stores a scheduled session for a fresh accepted proposal of speaker.
func NewSession(t *testing.T, store database.Store, speaker model.User, start time.Time, minutes, capacity int) model.Session {
	t.Helper()
	proposal := NewProposal(t, store, speaker, model.ProposalAccepted)
	session := model.Session{
		ID:              uuid.NewString(),
		ProposalID:      proposal.ID,
		SpeakerID:       speaker.ID,
		Title:           proposal.Title,
		Description:     proposal.Description,
		SessionTime:     start,
		DurationMinutes: minutes,
		Room:            "Main hall",
		MaxParticipants: capacity,
		Status:          model.SessionScheduled,
		CreatedAt:       now(),
	}
	require.NoError(t, store.CreateSession(context.Background(), session))
	return session
}

func join(store database.Store, user model.User, session model.Session) (model.Registration, error) {
	return store.JoinSession(context.Background(), model.Registration{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		SessionID:    session.ID,
		Status:       model.RegistrationConfirmed,
		RegisteredAt: now(),
	})
}

func participants(t *testing.T, store database.Store, sessionID string) int {
	t.Helper()
	session, err := store.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	return session.CurrentParticipants
}

func testUsers(t *testing.T, store database.Store) {
	ctx := context.Background()
	user := NewUser(t, store, model.RoleUser)

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, got.Username)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)
	assert.Equal(t, model.RoleUser, got.Role)
	assert.True(t, user.CreatedAt.Equal(got.CreatedAt))

	byName, err := store.GetUserByLogin(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	byEmail, err := store.GetUserByLogin(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = store.GetUserByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = store.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, database.ErrNotFound)

	duplicateName := user
	duplicateName.ID = uuid.NewString()
	duplicateName.Email = "other@example.com"
	assert.ErrorIs(t, store.CreateUser(ctx, duplicateName), database.ErrUsernameTaken)

	duplicateEmail := user
	duplicateEmail.ID = uuid.NewString()
	duplicateEmail.Username = "someone-else"
	assert.ErrorIs(t, store.CreateUser(ctx, duplicateEmail), database.ErrEmailTaken)

	NewUser(t, store, model.RoleCoordinator)
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	promoted, err := store.UpdateUserRole(ctx, user.ID, model.RoleCoordinator)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCoordinator, promoted.Role)

	_, err = store.UpdateUserRole(ctx, uuid.NewString(), model.RoleAdmin)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = store.DeleteUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testLastAdmin(t *testing.T, store database.Store) {
	ctx := context.Background()
	admin := NewUser(t, store, model.RoleAdmin)

	_, err := store.DeleteUser(ctx, admin.ID)
	assert.ErrorIs(t, err, database.ErrLastAdmin)
	_, err = store.UpdateUserRole(ctx, admin.ID, model.RoleUser)
	assert.ErrorIs(t, err, database.ErrLastAdmin)

	// Re-granting the same role is not a demotion.
	_, err = store.UpdateUserRole(ctx, admin.ID, model.RoleAdmin)
	assert.NoError(t, err)

	second := NewUser(t, store, model.RoleAdmin)
	deleted, err := store.DeleteUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, deleted.ID)

	_, err = store.DeleteUser(ctx, second.ID)
	assert.ErrorIs(t, err, database.ErrLastAdmin)
}

func testUserDependents(t *testing.T, store database.Store) {
	ctx := context.Background()
	owner := NewUser(t, store, model.RoleUser)
	NewProposal(t, store, owner, model.ProposalPending)

	_, err := store.DeleteUser(ctx, owner.ID)
	assert.ErrorIs(t, err, database.ErrHasDependents)

	idle := NewUser(t, store, model.RoleUser)
	_, err = store.DeleteUser(ctx, idle.ID)
	require.NoError(t, err)
	_, err = store.GetUser(ctx, idle.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testProposals(t *testing.T, store database.Store) {
	ctx := context.Background()
	owner := NewUser(t, store, model.RoleUser)
	other := NewUser(t, store, model.RoleUser)
	first := NewProposal(t, store, owner, model.ProposalPending)
	NewProposal(t, store, other, model.ProposalPending)

	got, err := store.GetProposal(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.Username, got.Username)
	assert.Equal(t, model.ProposalPending, got.Status)
	assert.Nil(t, got.ReviewedBy)
	assert.Nil(t, got.ReviewedAt)

	all, err := store.ListProposals(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := store.ListProposalsByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	accepted, err := store.ListProposalsByStatus(ctx, model.ProposalAccepted)
	require.NoError(t, err)
	assert.Empty(t, accepted)

	err = store.CreateProposal(ctx, model.Proposal{
		ID: uuid.NewString(), UserID: uuid.NewString(), Title: "Orphan", Description: "No owner at all here.",
		Status: model.ProposalPending, SubmittedAt: now(),
	})
	assert.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, store.DeletePendingProposal(ctx, first.ID))
	_, err = store.GetProposal(ctx, first.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, store.DeletePendingProposal(ctx, first.ID), database.ErrNotFound)

	reviewed := NewProposal(t, store, owner, model.ProposalAccepted)
	assert.ErrorIs(t, store.DeletePendingProposal(ctx, reviewed.ID), database.ErrNotPending)
}

func testReviewOnce(t *testing.T, store database.Store) {
	ctx := context.Background()
	owner := NewUser(t, store, model.RoleUser)
	reviewer := NewUser(t, store, model.RoleCoordinator)
	proposal := NewProposal(t, store, owner, model.ProposalPending)

	reviewedAt := now()
	got, err := store.ReviewProposal(ctx, model.Review{
		ProposalID: proposal.ID, ReviewerID: reviewer.ID, Status: model.ProposalRejected,
		RejectionReason: "Out of scope", ReviewedAt: reviewedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalRejected, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, reviewer.ID, *got.ReviewedBy)
	assert.Equal(t, reviewer.Username, got.ReviewerName)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, reviewedAt.Equal(*got.ReviewedAt))
	assert.Equal(t, "Out of scope", got.RejectionReason)

	_, err = store.ReviewProposal(ctx, model.Review{
		ProposalID: proposal.ID, ReviewerID: reviewer.ID, Status: model.ProposalAccepted, ReviewedAt: now(),
	})
	assert.ErrorIs(t, err, database.ErrNotPending)

	_, err = store.ReviewProposal(ctx, model.Review{
		ProposalID: uuid.NewString(), ReviewerID: reviewer.ID, Status: model.ProposalAccepted, ReviewedAt: now(),
	})
	assert.ErrorIs(t, err, database.ErrNotFound)

	rejected, err := store.ListProposalsByStatus(ctx, model.ProposalRejected)
	require.NoError(t, err)
	assert.Len(t, rejected, 1)
}

func testSessions(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	other := NewUser(t, store, model.RoleUser)
	late := NewSession(t, store, speaker, At(16, 0), 60, 10)
	early := NewSession(t, store, other, At(9, 0), 45, 10)
	past := NewSession(t, store, other, Base.AddDate(0, 0, -2), 30, 10)

	got, err := store.GetSession(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, speaker.FullName, got.SpeakerName)
	assert.Equal(t, 60, got.DurationMinutes)
	assert.Equal(t, 0, got.CurrentParticipants)
	assert.True(t, late.SessionTime.Equal(got.SessionTime))

	_, err = store.GetSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, database.ErrNotFound)

	all, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, past.ID, all[0].ID)
	assert.Equal(t, early.ID, all[1].ID)

	cancelled := model.SessionCancelled
	_, err = store.UpdateSession(ctx, model.SessionUpdate{
		ID: early.ID, Room: early.Room, SessionTime: early.SessionTime, DurationMinutes: early.DurationMinutes,
		Status: &cancelled,
	})
	require.NoError(t, err)

	upcoming, err := store.ListUpcomingSessions(ctx, Base.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, late.ID, upcoming[0].ID)

	bySpeaker, err := store.ListSessionsBySpeaker(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, bySpeaker, 2)

	duplicate := late
	duplicate.ID = uuid.NewString()
	duplicate.SessionTime = At(20, 0)
	assert.ErrorIs(t, store.CreateSession(ctx, duplicate), database.ErrSessionExists)
}

func testSessionOverlap(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	existing := NewSession(t, store, speaker, At(14, 0), 60, 10)

	proposal := NewProposal(t, store, speaker, model.ProposalAccepted)
	candidate := model.Session{
		ID: uuid.NewString(), ProposalID: proposal.ID, SpeakerID: speaker.ID,
		Title: proposal.Title, Description: proposal.Description,
		SessionTime: At(14, 30), DurationMinutes: 60, Room: "Other room",
		MaxParticipants: 10, Status: model.SessionScheduled, CreatedAt: now(),
	}
	assert.ErrorIs(t, store.CreateSession(ctx, candidate), database.ErrTimeConflict)

	candidate.SessionTime = At(13, 30)
	assert.ErrorIs(t, store.CreateSession(ctx, candidate), database.ErrTimeConflict)

	// Half-open intervals: ending exactly when another starts is fine.
	candidate.SessionTime = At(15, 0)
	require.NoError(t, store.CreateSession(ctx, candidate))

	cancelled := model.SessionCancelled
	_, err := store.UpdateSession(ctx, model.SessionUpdate{
		ID: existing.ID, Room: existing.Room, SessionTime: existing.SessionTime,
		DurationMinutes: existing.DurationMinutes, Status: &cancelled,
	})
	require.NoError(t, err)
	NewSession(t, store, speaker, At(14, 0), 30, 10)
}

func testSessionUpdate(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	attendee := NewUser(t, store, model.RoleUser)
	morning := NewSession(t, store, speaker, At(10, 0), 60, 10)
	NewSession(t, store, speaker, At(12, 0), 60, 10)

	longer, err := store.UpdateSession(ctx, model.SessionUpdate{
		ID: morning.ID, Room: "Room B", SessionTime: At(10, 0), DurationMinutes: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, "Room B", longer.Room)
	assert.Equal(t, 90, longer.DurationMinutes)
	assert.Equal(t, 10, longer.MaxParticipants)

	_, err = store.UpdateSession(ctx, model.SessionUpdate{
		ID: morning.ID, Room: "Room B", SessionTime: At(11, 30), DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, database.ErrTimeConflict)

	_, err = join(store, attendee, morning)
	require.NoError(t, err)
	zero := 0
	_, err = store.UpdateSession(ctx, model.SessionUpdate{
		ID: morning.ID, Room: "Room B", SessionTime: At(10, 0), DurationMinutes: 60, MaxParticipants: &zero,
	})
	assert.ErrorIs(t, err, database.ErrBelowParticipants)

	completed := model.SessionCompleted
	_, err = store.UpdateSession(ctx, model.SessionUpdate{
		ID: morning.ID, Room: "Room B", SessionTime: At(10, 0), DurationMinutes: 60, Status: &completed,
	})
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	ongoing := model.SessionOngoing
	updated, err := store.UpdateSession(ctx, model.SessionUpdate{
		ID: morning.ID, Room: "Room B", SessionTime: At(10, 0), DurationMinutes: 60, Status: &ongoing,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionOngoing, updated.Status)
	assert.Equal(t, 1, updated.CurrentParticipants)

	_, err = store.UpdateSession(ctx, model.SessionUpdate{ID: uuid.NewString(), SessionTime: At(1, 0), DurationMinutes: 15})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testSessionDelete(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	attendee := NewUser(t, store, model.RoleUser)
	session := NewSession(t, store, speaker, At(10, 0), 60, 10)

	registration, err := join(store, attendee, session)
	require.NoError(t, err)
	assert.ErrorIs(t, store.DeleteSession(ctx, session.ID), database.ErrHasParticipants)

	_, err = store.CancelRegistration(ctx, registration.ID)
	require.NoError(t, err)
	require.NoError(t, store.CreateFeedback(ctx, model.Feedback{
		ID: uuid.NewString(), UserID: attendee.ID, SessionID: session.ID, Rating: 4, CreatedAt: now(),
	}))

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	_, err = store.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = store.GetRegistration(ctx, registration.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	feedback, err := store.ListFeedbackByUser(ctx, attendee.ID)
	require.NoError(t, err)
	assert.Empty(t, feedback)

	assert.ErrorIs(t, store.DeleteSession(ctx, session.ID), database.ErrNotFound)
}

func testJoin(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	alice := NewUser(t, store, model.RoleUser)
	bob := NewUser(t, store, model.RoleUser)
	session := NewSession(t, store, speaker, At(10, 0), 60, 1)

	registration, err := join(store, alice, session)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationConfirmed, registration.Status)
	assert.Equal(t, alice.Username, registration.Username)
	assert.Equal(t, session.Title, registration.SessionTitle)
	assert.True(t, session.SessionTime.Equal(registration.SessionTime))
	assert.Equal(t, 1, participants(t, store, session.ID))

	_, err = join(store, alice, session)
	assert.ErrorIs(t, err, database.ErrAlreadyRegistered)

	_, err = join(store, bob, session)
	assert.ErrorIs(t, err, database.ErrSessionFull)
	assert.Equal(t, 1, participants(t, store, session.ID))

	_, err = join(store, bob, model.Session{ID: uuid.NewString()})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = join(store, model.User{ID: uuid.NewString()}, session)
	assert.ErrorIs(t, err, database.ErrUnknownUser)

	found, err := store.HasRegistration(ctx, alice.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, found)
	found, err = store.HasRegistration(ctx, bob.ID, session.ID)
	require.NoError(t, err)
	assert.False(t, found)

	mine, err := store.ListRegistrationsByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	bySession, err := store.ListRegistrationsBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, bySession, 1)

	// A cancelled registration still blocks re-joining.
	_, err = store.CancelRegistration(ctx, registration.ID)
	require.NoError(t, err)
	_, err = join(store, alice, session)
	assert.ErrorIs(t, err, database.ErrAlreadyRegistered)
}

func testJoinScheduleConflict(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	attendee := NewUser(t, store, model.RoleUser)
	first := NewSession(t, store, speaker, At(14, 0), 60, 10)

	_, err := join(store, attendee, first)
	require.NoError(t, err)

	// Cancelling the session frees the slot for the catalog but the attendee
	// still holds a confirmed seat from 14:00 to 15:00.
	cancelled := model.SessionCancelled
	_, err = store.UpdateSession(ctx, model.SessionUpdate{
		ID: first.ID, Room: first.Room, SessionTime: first.SessionTime,
		DurationMinutes: first.DurationMinutes, Status: &cancelled,
	})
	require.NoError(t, err)
	second := NewSession(t, store, speaker, At(14, 30), 60, 10)

	_, err = join(store, attendee, second)
	assert.ErrorIs(t, err, database.ErrScheduleConflict)
	assert.Equal(t, 0, participants(t, store, second.ID))

	back2back := NewSession(t, store, speaker, At(15, 30), 30, 10)
	_, err = join(store, attendee, back2back)
	assert.NoError(t, err)
}

func testConcurrentJoin(t *testing.T, store database.Store) {
	speaker := NewUser(t, store, model.RoleUser)
	session := NewSession(t, store, speaker, At(10, 0), 60, 1)

	const contenders = 8
	users := make([]model.User, contenders)
	for i := range users {
		users[i] = NewUser(t, store, model.RoleUser)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		full   int
		others []error
	)
	start := make(chan struct{})
	for _, user := range users {
		wg.Add(1)
		go func(user model.User) {
			defer wg.Done()
			<-start
			_, err := join(store, user, session)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, database.ErrSessionFull):
				full++
			default:
				others = append(others, fmt.Errorf("user %s: %w", user.Username, err))
			}
		}(user)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, full)
	assert.Equal(t, 1, participants(t, store, session.ID))

	registrations, err := store.ListRegistrationsBySession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, registrations, 1)
}

func testCancel(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	alice := NewUser(t, store, model.RoleUser)
	bob := NewUser(t, store, model.RoleUser)
	session := NewSession(t, store, speaker, At(10, 0), 60, 5)

	first, err := join(store, alice, session)
	require.NoError(t, err)
	_, err = join(store, bob, session)
	require.NoError(t, err)
	assert.Equal(t, 2, participants(t, store, session.ID))

	cancelled, err := store.CancelRegistration(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationCancelled, cancelled.Status)
	assert.Equal(t, 1, participants(t, store, session.ID))

	_, err = store.CancelRegistration(ctx, first.ID)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
	assert.Equal(t, 1, participants(t, store, session.ID))

	_, err = store.CancelRegistration(ctx, uuid.NewString())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testAttend(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	attendee := NewUser(t, store, model.RoleUser)
	session := NewSession(t, store, speaker, At(10, 0), 60, 5)

	registration, err := join(store, attendee, session)
	require.NoError(t, err)

	attended, err := store.MarkAttended(ctx, registration.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationAttended, attended.Status)
	assert.Equal(t, 1, participants(t, store, session.ID))

	_, err = store.MarkAttended(ctx, registration.ID)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
	_, err = store.CancelRegistration(ctx, registration.ID)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
}

func testFeedback(t *testing.T, store database.Store) {
	ctx := context.Background()
	speaker := NewUser(t, store, model.RoleUser)
	alice := NewUser(t, store, model.RoleUser)
	bob := NewUser(t, store, model.RoleUser)
	session := NewSession(t, store, speaker, At(10, 0), 60, 5)

	average, err := store.AverageRating(ctx, session.ID)
	require.NoError(t, err)
	assert.Zero(t, average)

	first := model.Feedback{
		ID: uuid.NewString(), UserID: alice.ID, SessionID: session.ID, Rating: 5, Comment: "Great talk", CreatedAt: now(),
	}
	require.NoError(t, store.CreateFeedback(ctx, first))
	require.NoError(t, store.CreateFeedback(ctx, model.Feedback{
		ID: uuid.NewString(), UserID: bob.ID, SessionID: session.ID, Rating: 2, CreatedAt: now(),
	}))

	duplicate := first
	duplicate.ID = uuid.NewString()
	assert.ErrorIs(t, store.CreateFeedback(ctx, duplicate), database.ErrFeedbackExists)

	missing := first
	missing.ID = uuid.NewString()
	missing.SessionID = uuid.NewString()
	assert.ErrorIs(t, store.CreateFeedback(ctx, missing), database.ErrNotFound)

	got, err := store.GetFeedback(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Username, got.Username)
	assert.Equal(t, session.Title, got.SessionTitle)
	assert.Equal(t, "Great talk", got.Comment)

	found, err := store.HasFeedback(ctx, alice.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, found)

	average, err = store.AverageRating(ctx, session.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, average, 0.0001)

	bySession, err := store.ListFeedbackBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, bySession, 2)
	mine, err := store.ListFeedbackByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, store.DeleteFeedback(ctx, first.ID))
	assert.ErrorIs(t, store.DeleteFeedback(ctx, first.ID), database.ErrNotFound)
	_, err = store.GetFeedback(ctx, first.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}
