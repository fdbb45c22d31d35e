package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-webapp/database/storetest"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

func TestCreateSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	speaker, speakerIdentity := h.user(t, model.RoleUser)
	_, coordinator := h.user(t, model.RoleCoordinator)

	accepted := storetest.NewProposal(t, h.store, speaker, model.ProposalAccepted)
	pending := storetest.NewProposal(t, h.store, speaker, model.ProposalPending)

	request := model.SessionRequest{
		ProposalID:      accepted.ID,
		Room:            "Main hall",
		SessionTime:     storetest.At(14, 0),
		DurationMinutes: 60,
	}

	_, err := h.services.Sessions.Create(ctx, speakerIdentity, request)
	assertKind(t, err, apperrors.KindPermission, "")

	session, err := h.services.Sessions.Create(ctx, coordinator, request)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMaxParticipants, session.MaxParticipants)
	assert.Equal(t, 0, session.CurrentParticipants)
	assert.Equal(t, model.SessionScheduled, session.Status)
	assert.Equal(t, speaker.ID, session.SpeakerID)
	assert.Equal(t, speaker.FullName, session.SpeakerName)
	assert.Equal(t, accepted.Title, session.Title)

	_, err = h.services.Sessions.Create(ctx, coordinator, request)
	assertKind(t, err, apperrors.KindConflict, "Session already exists for this proposal")

	tests := []struct {
		description string
		mutate      func(*model.SessionRequest)
		kind        apperrors.Kind
		message     string
	}{
		{"pending proposal", func(r *model.SessionRequest) { r.ProposalID = pending.ID; r.SessionTime = storetest.At(9, 0) },
			apperrors.KindValidation, "Only accepted proposals can be scheduled"},
		{"unknown proposal", func(r *model.SessionRequest) { r.ProposalID = "missing" },
			apperrors.KindNotFound, "Proposal not found"},
		{"missing room", func(r *model.SessionRequest) { r.Room = " " },
			apperrors.KindValidation, "Room is required"},
		{"past time", func(r *model.SessionRequest) { r.SessionTime = now.AddDate(0, 0, -1) },
			apperrors.KindValidation, "Session time must be in the future"},
		{"short duration", func(r *model.SessionRequest) { r.DurationMinutes = 10 },
			apperrors.KindValidation, "Duration must be at least 15 minutes"},
		{"zero capacity", func(r *model.SessionRequest) { r.MaxParticipants = intPtr(0) },
			apperrors.KindValidation, "Max participants must be at least 1"},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			r := request
			test.mutate(&r)
			_, err := h.services.Sessions.Create(ctx, coordinator, r)
			assertKind(t, err, test.kind, test.message)
		})
	}

	overlapping := storetest.NewProposal(t, h.store, speaker, model.ProposalAccepted)
	_, err = h.services.Sessions.Create(ctx, coordinator, model.SessionRequest{
		ProposalID:      overlapping.ID,
		Room:            "Side room",
		SessionTime:     storetest.At(14, 30),
		DurationMinutes: 60,
	})
	assertKind(t, err, apperrors.KindConflict, "Time slot conflicts with existing session")

	backToBack, err := h.services.Sessions.Create(ctx, coordinator, model.SessionRequest{
		ProposalID:      overlapping.ID,
		Room:            "Side room",
		SessionTime:     storetest.At(15, 0),
		DurationMinutes: 30,
		MaxParticipants: intPtr(20),
	})
	require.NoError(t, err)
	assert.Equal(t, 20, backToBack.MaxParticipants)

	mine, err := h.services.Sessions.ListBySpeaker(ctx, speakerIdentity)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestUpdateSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	speaker, _ := h.user(t, model.RoleUser)
	_, coordinator := h.user(t, model.RoleCoordinator)
	_, attendee := h.user(t, model.RoleUser)

	session := storetest.NewSession(t, h.store, speaker, storetest.At(10, 0), 60, 5)
	_, err := h.services.Registrations.Join(ctx, attendee, session.ID)
	require.NoError(t, err)

	updated, err := h.services.Sessions.Update(ctx, coordinator, session.ID, model.SessionRequest{
		Room:            "Room 2",
		MaxParticipants: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Room 2", updated.Room)
	assert.Equal(t, 1, updated.MaxParticipants)
	assert.True(t, session.SessionTime.Equal(updated.SessionTime))
	assert.Equal(t, 60, updated.DurationMinutes)

	_, err = h.services.Sessions.Update(ctx, coordinator, session.ID, model.SessionRequest{MaxParticipants: intPtr(2)})
	require.NoError(t, err)

	_, err = h.services.Sessions.Update(ctx, coordinator, session.ID, model.SessionRequest{Status: "COMPLETED"})
	assertKind(t, err, apperrors.KindConflict, "Cannot change session status from SCHEDULED to COMPLETED")

	_, err = h.services.Sessions.Update(ctx, coordinator, session.ID, model.SessionRequest{Status: "paused"})
	assertKind(t, err, apperrors.KindValidation, "Invalid session status: paused")

	ongoing, err := h.services.Sessions.Update(ctx, coordinator, session.ID, model.SessionRequest{Status: "ongoing"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionOngoing, ongoing.Status)

	_, err = h.services.Sessions.Update(ctx, coordinator, "missing", model.SessionRequest{Room: "Room 3"})
	assertKind(t, err, apperrors.KindNotFound, "Session not found")
}

func TestUpdateSessionBelowParticipants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	speaker, _ := h.user(t, model.RoleUser)
	_, coordinator := h.user(t, model.RoleCoordinator)

	session := storetest.NewSession(t, h.store, speaker, storetest.At(10, 0), 60, 5)
	for range 2 {
		_, attendee := h.user(t, model.RoleUser)
		_, err := h.services.Registrations.Join(ctx, attendee, session.ID)
		require.NoError(t, err)
	}

	_, err := h.services.Sessions.Update(ctx, coordinator, session.ID, model.SessionRequest{MaxParticipants: intPtr(1)})
	assertKind(t, err, apperrors.KindValidation, "Max participants cannot be below current participants (2)")
}

func TestDeleteSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	speaker, _ := h.user(t, model.RoleUser)
	_, coordinator := h.user(t, model.RoleCoordinator)
	_, attendee := h.user(t, model.RoleUser)

	session := storetest.NewSession(t, h.store, speaker, storetest.At(10, 0), 60, 5)
	registration, err := h.services.Registrations.Join(ctx, attendee, session.ID)
	require.NoError(t, err)

	assertKind(t, h.services.Sessions.Delete(ctx, coordinator, session.ID),
		apperrors.KindConflict, "Cannot delete session with registered participants")

	_, err = h.services.Registrations.Cancel(ctx, attendee, registration.ID)
	require.NoError(t, err)
	require.NoError(t, h.services.Sessions.Delete(ctx, coordinator, session.ID))

	_, err = h.services.Sessions.Get(ctx, session.ID)
	assertKind(t, err, apperrors.KindNotFound, "Session not found")
	assertKind(t, h.services.Sessions.Delete(ctx, coordinator, session.ID),
		apperrors.KindNotFound, "Session not found")
}

func TestListUpcomingSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	speaker, _ := h.user(t, model.RoleUser)
	_, coordinator := h.user(t, model.RoleCoordinator)

	late := storetest.NewSession(t, h.store, speaker, storetest.At(16, 0), 30, 5)
	early := storetest.NewSession(t, h.store, speaker, storetest.At(9, 0), 30, 5)
	cancelled := storetest.NewSession(t, h.store, speaker, storetest.At(12, 0), 30, 5)
	_, err := h.services.Sessions.Update(ctx, coordinator, cancelled.ID, model.SessionRequest{Status: "CANCELLED"})
	require.NoError(t, err)

	upcoming, err := h.services.Sessions.ListUpcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, early.ID, upcoming[0].ID)
	assert.Equal(t, late.ID, upcoming[1].ID)

	all, err := h.services.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
