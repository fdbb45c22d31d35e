package handlers_test

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-webapp/database/storetest"
	"conference-webapp/model"
)

// scheduled walks a proposal through submit, review and scheduling over HTTP.
func scheduled(t *testing.T, a testApp, speakerToken, coordinatorToken string, at time.Time, capacity int) model.Session {
	t.Helper()
	res, env := a.do(t, "POST", "/api/proposals", speakerToken, model.ProposalRequest{
		Title:       "Profiling Go services",
		Description: "A tour of pprof, execution traces and what they taught us.",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(env.Data))
	var proposal model.Proposal
	require.NoError(t, json.Unmarshal(env.Data, &proposal))

	res, env = a.do(t, "POST", "/api/proposals/"+proposal.ID+"/review", coordinatorToken, model.ReviewRequest{Status: "ACCEPTED"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(env.Data))

	res, env = a.do(t, "POST", "/api/sessions", coordinatorToken, map[string]any{
		"proposal_id":      proposal.ID,
		"room":             "Main hall",
		"session_time":     at.Format(time.RFC3339),
		"duration_minutes": 60,
		"max_participants": capacity,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(env.Data))
	var session model.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	return session
}

func TestSessionLifecycle(t *testing.T) {
	a := newTestApp(t)
	_, speaker := a.token(t, model.RoleUser)
	_, coordinator := a.token(t, model.RoleCoordinator)
	_, attendee := a.token(t, model.RoleUser)

	session := scheduled(t, a, speaker, coordinator, storetest.At(14, 0), 1)
	assert.Equal(t, 1, session.MaxParticipants)
	assert.Equal(t, model.SessionScheduled, session.Status)

	a.run(t, []Test{
		{description: "attendee cannot schedule", method: "POST", route: "/api/sessions", token: attendee,
			bodyinput: model.SessionRequest{ProposalID: "x"}, expectedCode: 403},
		{description: "list sessions", method: "GET", route: "/api/sessions", token: attendee, expectedCode: 200},
		{description: "upcoming sessions", method: "GET", route: "/api/sessions/upcoming", token: attendee, expectedCode: 200},
		{description: "speaker's sessions", method: "GET", route: "/api/sessions/my", token: speaker, expectedCode: 200},
		{description: "get session", method: "GET", route: "/api/sessions/" + session.ID, token: attendee, expectedCode: 200},
		{description: "unknown session", method: "GET", route: "/api/sessions/missing", token: attendee,
			expectedCode: 404, expectedData: "Session not found"},
		{description: "join", method: "POST", route: "/api/registrations/session/" + session.ID, token: attendee, expectedCode: 201},
		{description: "join twice", method: "POST", route: "/api/registrations/session/" + session.ID, token: attendee,
			expectedCode: 409, expectedData: "Already registered for this session"},
		{description: "join full session", method: "POST", route: "/api/registrations/session/" + session.ID, token: speaker,
			expectedCode: 400, expectedData: "Session is full"},
		{description: "delete occupied session", method: "DELETE", route: "/api/sessions/" + session.ID, token: coordinator,
			expectedCode: 409, expectedData: "Cannot delete session with registered participants"},
		{description: "session registrations", method: "GET", route: "/api/registrations/session/" + session.ID, token: coordinator, expectedCode: 200},
		{description: "update status", method: "PUT", route: "/api/sessions/" + session.ID, token: coordinator,
			bodyinput: map[string]any{"status": "ONGOING"}, expectedCode: 200},
		{description: "illegal status", method: "PUT", route: "/api/sessions/" + session.ID, token: coordinator,
			bodyinput: map[string]any{"status": "SCHEDULED"}, expectedCode: 409},
	})
}

func TestCreateSessionWithLocalTime(t *testing.T) {
	a := newTestApp(t)
	speaker, _ := a.token(t, model.RoleUser)
	_, coordinator := a.token(t, model.RoleCoordinator)
	proposal := storetest.NewProposal(t, a.store, speaker, model.ProposalAccepted)

	res, env := a.do(t, "POST", "/api/sessions", coordinator, map[string]any{
		"proposal_id":      proposal.ID,
		"room":             "Room B",
		"session_time":     "2030-05-01T14:30:00",
		"duration_minutes": 45,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(env.Data))
	var session model.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.True(t, storetest.At(14, 30).Equal(session.SessionTime), session.SessionTime.String())

	a.run(t, []Test{
		{description: "unparseable time", method: "POST", route: "/api/sessions", token: coordinator,
			bodyinput: map[string]any{"proposal_id": proposal.ID, "room": "Room B", "session_time": "half past two"},
			expectedCode: 400, expectedData: "Malformed request body"},
	})
}

func TestRegistrationAndFeedbackFlow(t *testing.T) {
	a := newTestApp(t)
	_, speaker := a.token(t, model.RoleUser)
	_, coordinator := a.token(t, model.RoleCoordinator)
	_, attendee := a.token(t, model.RoleUser)
	_, stranger := a.token(t, model.RoleUser)

	session := scheduled(t, a, speaker, coordinator, storetest.At(10, 0), 10)

	res, env := a.do(t, "POST", "/api/registrations/session/"+session.ID, attendee, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(env.Data))
	var registration model.Registration
	require.NoError(t, json.Unmarshal(env.Data, &registration))
	assert.Equal(t, model.RegistrationConfirmed, registration.Status)

	a.run(t, []Test{
		{description: "feedback without registration", method: "POST", route: "/api/feedback", token: stranger,
			bodyinput: model.FeedbackRequest{SessionID: session.ID, Rating: 5}, expectedCode: 403,
			expectedData: "You must be registered for this session to give feedback"},
		{description: "rating out of range", method: "POST", route: "/api/feedback", token: attendee,
			bodyinput: model.FeedbackRequest{SessionID: session.ID, Rating: 9}, expectedCode: 400},
		{description: "feedback", method: "POST", route: "/api/feedback", token: attendee,
			bodyinput: model.FeedbackRequest{SessionID: session.ID, Rating: 4, Comment: "Great talk"}, expectedCode: 201},
		{description: "second feedback", method: "POST", route: "/api/feedback", token: attendee,
			bodyinput: model.FeedbackRequest{SessionID: session.ID, Rating: 1}, expectedCode: 409,
			expectedData: "You already gave feedback for this session"},
		{description: "my feedback", method: "GET", route: "/api/feedback/my", token: attendee, expectedCode: 200},
		{description: "session feedback", method: "GET", route: "/api/feedback/session/" + session.ID, token: stranger, expectedCode: 200},
		{description: "cancel someone else's", method: "DELETE", route: "/api/registrations/" + registration.ID, token: stranger,
			expectedCode: 403, expectedData: "You can only cancel your own registrations"},
		{description: "cancel", method: "DELETE", route: "/api/registrations/" + registration.ID, token: attendee, expectedCode: 200},
		{description: "cancel twice", method: "DELETE", route: "/api/registrations/" + registration.ID, token: attendee,
			expectedCode: 409, expectedData: "Registration already cancelled"},
		{description: "my registrations", method: "GET", route: "/api/registrations/my", token: attendee, expectedCode: 200},
	})

	res, env = a.do(t, "GET", "/api/feedback/session/"+session.ID+"/average", stranger, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var average float64
	require.NoError(t, json.Unmarshal(env.Data, &average))
	assert.InDelta(t, 4.0, average, 1e-9)
}

func TestConcurrentJoinOverHTTP(t *testing.T) {
	a := newTestApp(t)
	_, speaker := a.token(t, model.RoleUser)
	_, coordinator := a.token(t, model.RoleCoordinator)
	session := scheduled(t, a, speaker, coordinator, storetest.At(9, 0), 1)

	const contenders = 6
	tokens := make([]string, contenders)
	for i := range tokens {
		_, tokens[i] = a.token(t, model.RoleUser)
	}

	codes := make(chan int, contenders)
	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			req, err := http.NewRequest("POST", "/api/registrations/session/"+session.ID, nil)
			if err != nil {
				codes <- 0
				return
			}
			req.Header.Set("Authorization", "Bearer "+token)
			res, err := a.app.Test(req, -1)
			if err != nil {
				codes <- 0
				return
			}
			res.Body.Close()
			codes <- res.StatusCode
		}(token)
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	assert.Equal(t, 1, counts[http.StatusCreated])
	assert.Equal(t, contenders-1, counts[http.StatusBadRequest])
}

func TestUserAdministrationRoutes(t *testing.T) {
	a := newTestApp(t)
	admin, adminToken := a.token(t, model.RoleAdmin)
	member, _ := a.token(t, model.RoleUser)

	a.run(t, []Test{
		{description: "list users", method: "GET", route: "/api/users", token: adminToken, expectedCode: 200},
		{description: "get user", method: "GET", route: "/api/users/" + member.ID, token: adminToken, expectedCode: 200},
		{description: "invalid role", method: "PUT", route: "/api/users/" + member.ID + "/role", token: adminToken,
			bodyinput: model.RoleRequest{Role: "speaker"}, expectedCode: 400, expectedData: "Invalid role: speaker"},
		{description: "promote", method: "PUT", route: "/api/users/" + member.ID + "/role", token: adminToken,
			bodyinput: model.RoleRequest{Role: "COORDINATOR"}, expectedCode: 200},
		{description: "delete last admin", method: "DELETE", route: "/api/users/" + admin.ID, token: adminToken,
			expectedCode: 403, expectedData: "At least one administrator must remain active."},
		{description: "delete member", method: "DELETE", route: "/api/users/" + member.ID, token: adminToken, expectedCode: 200},
		{description: "delete missing", method: "DELETE", route: "/api/users/" + member.ID, token: adminToken,
			expectedCode: 404, expectedData: "User not found"},
	})
}

func TestMalformedBody(t *testing.T) {
	a := newTestApp(t)
	_, token := a.token(t, model.RoleUser)

	req, err := http.NewRequest("POST", "/api/proposals", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Body = http.NoBody

	res, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
