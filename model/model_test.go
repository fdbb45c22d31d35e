package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" coordinator ")
	require.NoError(t, err)
	assert.Equal(t, RoleCoordinator, role)
	assert.True(t, role.IsPrivileged())
	assert.False(t, RoleUser.IsPrivileged())

	_, err = ParseRole("speaker")
	assert.Error(t, err)
}

func TestProposalTransitions(t *testing.T) {
	assert.True(t, ProposalPending.CanTransitionTo(ProposalAccepted))
	assert.True(t, ProposalPending.CanTransitionTo(ProposalRejected))
	assert.False(t, ProposalPending.CanTransitionTo(ProposalPending))
	for _, from := range []ProposalStatus{ProposalAccepted, ProposalRejected} {
		for _, to := range []ProposalStatus{ProposalPending, ProposalAccepted, ProposalRejected} {
			assert.Falsef(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestSessionTransitions(t *testing.T) {
	assert.True(t, SessionScheduled.CanTransitionTo(SessionOngoing))
	assert.True(t, SessionScheduled.CanTransitionTo(SessionCancelled))
	assert.False(t, SessionScheduled.CanTransitionTo(SessionCompleted))
	assert.True(t, SessionOngoing.CanTransitionTo(SessionCompleted))
	assert.False(t, SessionCompleted.CanTransitionTo(SessionScheduled))
	assert.False(t, SessionCancelled.CanTransitionTo(SessionOngoing))

	_, err := ParseSessionStatus("postponed")
	assert.Error(t, err)
}

func TestRegistrationTransitions(t *testing.T) {
	assert.True(t, RegistrationConfirmed.CanTransitionTo(RegistrationCancelled))
	assert.True(t, RegistrationConfirmed.CanTransitionTo(RegistrationAttended))
	assert.False(t, RegistrationCancelled.CanTransitionTo(RegistrationConfirmed))
	assert.False(t, RegistrationCancelled.CanTransitionTo(RegistrationCancelled))
	assert.False(t, RegistrationAttended.CanTransitionTo(RegistrationCancelled))
}

func TestSessionCapacityHelpers(t *testing.T) {
	session := Session{
		SessionTime:         time.Date(2030, 5, 1, 14, 0, 0, 0, time.UTC),
		DurationMinutes:     90,
		MaxParticipants:     2,
		CurrentParticipants: 1,
	}
	assert.Equal(t, time.Date(2030, 5, 1, 15, 30, 0, 0, time.UTC), session.EndTime())
	assert.False(t, session.IsFull())

	session.CurrentParticipants = 2
	assert.True(t, session.IsFull())
}

func TestSessionRequestTimeFormats(t *testing.T) {
	tests := []struct {
		description string
		body        string
		expected    time.Time
		expectedErr bool
	}{
		{"zone-less seconds read as UTC", `{"session_time":"2024-12-25T14:30:00"}`, time.Date(2024, 12, 25, 14, 30, 0, 0, time.UTC), false},
		{"zone-less minutes read as UTC", `{"session_time":"2024-12-25T14:30"}`, time.Date(2024, 12, 25, 14, 30, 0, 0, time.UTC), false},
		{"RFC 3339 with offset", `{"session_time":"2024-12-25T16:30:00+02:00"}`, time.Date(2024, 12, 25, 14, 30, 0, 0, time.UTC), false},
		{"absent", `{"room":"Main hall"}`, time.Time{}, false},
		{"not a time", `{"session_time":"tomorrow"}`, time.Time{}, true},
	}
	for _, test := range tests {
		var req SessionRequest
		err := json.Unmarshal([]byte(test.body), &req)
		if test.expectedErr {
			assert.Errorf(t, err, test.description)
			continue
		}
		require.NoErrorf(t, err, test.description)
		assert.Truef(t, test.expected.Equal(req.SessionTime), "%s: got %v", test.description, req.SessionTime)
	}

	var req SessionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"proposal_id":"p-1","room":"Main hall","duration_minutes":45,"max_participants":30}`), &req))
	assert.Equal(t, "p-1", req.ProposalID)
	assert.Equal(t, "Main hall", req.Room)
	assert.Equal(t, 45, req.DurationMinutes)
	require.NotNil(t, req.MaxParticipants)
	assert.Equal(t, 30, *req.MaxParticipants)
}
