package model

import (
	"fmt"
	"strings"
	"time"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalAccepted ProposalStatus = "ACCEPTED"
	ProposalRejected ProposalStatus = "REJECTED"
)

func ParseProposalStatus(raw string) (ProposalStatus, error) {
	switch status := ProposalStatus(strings.ToUpper(strings.TrimSpace(raw))); status {
	case ProposalPending, ProposalAccepted, ProposalRejected:
		return status, nil
	}
	return "", fmt.Errorf("invalid proposal status: %s", raw)
}

// CanTransitionTo reports whether a review may move the proposal to next.
// Reviews are one-shot: only a pending proposal can change status.
func (s ProposalStatus) CanTransitionTo(next ProposalStatus) bool {
	switch s {
	case ProposalPending:
		return next == ProposalAccepted || next == ProposalRejected
	case ProposalAccepted, ProposalRejected:
		return false
	}
	return false
}

type Proposal struct {
	ID              string         `json:"id" bson:"_id"`
	UserID          string         `json:"user_id" bson:"user_id"`
	Username        string         `json:"username" bson:"-"`
	Title           string         `json:"title" bson:"title"`
	Description     string         `json:"description" bson:"description"`
	Status          ProposalStatus `json:"status" bson:"status"`
	SubmittedAt     time.Time      `json:"submitted_at" bson:"submitted_at"`
	ReviewedBy      *string        `json:"reviewed_by,omitempty" bson:"reviewed_by,omitempty"`
	ReviewerName    string         `json:"reviewer_name,omitempty" bson:"-"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty" bson:"reviewed_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
}

// Review is the outcome of a reviewer decision, applied only to a pending proposal.
type Review struct {
	ProposalID      string
	ReviewerID      string
	Status          ProposalStatus
	RejectionReason string
	ReviewedAt      time.Time
}

type ProposalRequest struct {
	Title       string `json:"title" validate:"required,min=5,max=200"`
	Description string `json:"description" validate:"required,min=20"`
}

type ReviewRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason"`
}
