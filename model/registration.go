package model

import "time"

type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
	RegistrationAttended  RegistrationStatus = "ATTENDED"
)

// CanTransitionTo reports legal moves; a cancelled or attended registration is final.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	switch s {
	case RegistrationConfirmed:
		return next == RegistrationCancelled || next == RegistrationAttended
	case RegistrationCancelled, RegistrationAttended:
		return false
	}
	return false
}

type Registration struct {
	ID           string             `json:"id" bson:"_id"`
	UserID       string             `json:"user_id" bson:"user_id"`
	Username     string             `json:"username" bson:"-"`
	SessionID    string             `json:"session_id" bson:"session_id"`
	SessionTitle string             `json:"session_title" bson:"-"`
	SessionTime  time.Time          `json:"session_time" bson:"-"`
	Status       RegistrationStatus `json:"status" bson:"status"`
	RegisteredAt time.Time          `json:"registered_at" bson:"registered_at"`
}
