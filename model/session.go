package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMaxParticipants = 100
	MinDurationMinutes     = 15
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "SCHEDULED"
	SessionOngoing   SessionStatus = "ONGOING"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionCancelled SessionStatus = "CANCELLED"
)

func ParseSessionStatus(raw string) (SessionStatus, error) {
	switch status := SessionStatus(strings.ToUpper(strings.TrimSpace(raw))); status {
	case SessionScheduled, SessionOngoing, SessionCompleted, SessionCancelled:
		return status, nil
	}
	return "", fmt.Errorf("invalid session status: %s", raw)
}

func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionScheduled:
		return next == SessionOngoing || next == SessionCancelled
	case SessionOngoing:
		return next == SessionCompleted || next == SessionCancelled
	case SessionCompleted, SessionCancelled:
		return false
	}
	return false
}

type Session struct {
	ID                  string        `json:"id" bson:"_id"`
	ProposalID          string        `json:"proposal_id" bson:"proposal_id"`
	SpeakerID           string        `json:"speaker_id" bson:"speaker_id"`
	SpeakerName         string        `json:"speaker_name" bson:"-"`
	Title               string        `json:"title" bson:"title"`
	Description         string        `json:"description" bson:"description"`
	SessionTime         time.Time     `json:"session_time" bson:"session_time"`
	DurationMinutes     int           `json:"duration_minutes" bson:"duration_minutes"`
	Room                string        `json:"room" bson:"room"`
	MaxParticipants     int           `json:"max_participants" bson:"max_participants"`
	CurrentParticipants int           `json:"current_participants" bson:"current_participants"`
	Status              SessionStatus `json:"status" bson:"status"`
	CreatedAt           time.Time     `json:"created_at" bson:"created_at"`
}

// EndTime is the exclusive end of the session interval.
func (s *Session) EndTime() time.Time {
	return s.SessionTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

func (s *Session) IsFull() bool {
	return s.CurrentParticipants >= s.MaxParticipants
}

type SessionRequest struct {
	ProposalID      string    `json:"proposal_id"`
	Room            string    `json:"room"`
	SessionTime     time.Time `json:"session_time"`
	DurationMinutes int       `json:"duration_minutes"`
	MaxParticipants *int      `json:"max_participants"`
	Status          string    `json:"status"`
}

// localTimeLayouts are accepted for session_time besides RFC 3339 and read as UTC.
var localTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// parseSessionTime reads an RFC 3339 timestamp or a zone-less local one, which is taken as UTC.
func parseSessionTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range localTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid session time: %q", raw)
}

func (r *SessionRequest) UnmarshalJSON(data []byte) error {
	type plain SessionRequest
	aux := struct {
		*plain
		SessionTime string `json:"session_time"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.SessionTime = time.Time{}
	if aux.SessionTime == "" {
		return nil
	}
	t, err := parseSessionTime(aux.SessionTime)
	if err != nil {
		return err
	}
	r.SessionTime = t
	return nil
}

// SessionUpdate carries validated changes for an existing session.
type SessionUpdate struct {
	ID              string
	Room            string
	SessionTime     time.Time
	DurationMinutes int
	MaxParticipants *int
	Status          *SessionStatus
}
