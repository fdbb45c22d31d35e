package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

func TestValidateRequest(t *testing.T) {
	valid := model.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "lovelace", FullName: "Ada Lovelace"}

	tests := []struct {
		description string
		request     any
		expected    string
	}{
		{"valid registration", valid, ""},
		{"username over 50 runes", model.RegisterRequest{Username: strings.Repeat("é", 51), Email: valid.Email, Password: valid.Password, FullName: valid.FullName},
			"Username must be between 3 and 50 characters"},
		{"username of 3 multibyte runes", model.RegisterRequest{Username: "éèê", Email: valid.Email, Password: valid.Password, FullName: valid.FullName}, ""},
		{"missing email", model.RegisterRequest{Username: "ada", Password: valid.Password, FullName: valid.FullName}, "Email is required"},
		{"malformed email", model.RegisterRequest{Username: "ada", Email: "ada@", Password: valid.Password, FullName: valid.FullName}, "Email should be valid"},
		{"empty password", model.RegisterRequest{Username: "ada", Email: valid.Email, FullName: valid.FullName}, "Password must be at least 6 characters"},
		{"empty login", model.LoginRequest{Password: "secret"}, "Username and password are required"},
		{"missing title", model.ProposalRequest{Description: strings.Repeat("d", 20)}, "Title is required"},
		{"long title", model.ProposalRequest{Title: strings.Repeat("t", 201), Description: strings.Repeat("d", 20)},
			"Title must be between 5 and 200 characters"},
		{"missing description", model.ProposalRequest{Title: "Go at scale"}, "Description is required"},
		{"comment of 1000 runes", model.FeedbackRequest{SessionID: "s-1", Rating: 5, Comment: strings.Repeat("ü", 1000)}, ""},
		{"comment of 1001 runes", model.FeedbackRequest{SessionID: "s-1", Rating: 5, Comment: strings.Repeat("ü", 1001)},
			"Comment must not exceed 1000 characters"},
	}

	for _, test := range tests {
		err := validateRequest(test.request)
		if test.expected == "" {
			assert.NoErrorf(t, err, test.description)
			continue
		}
		assert.Equalf(t, apperrors.KindValidation, apperrors.KindOf(err), test.description)
		assert.EqualErrorf(t, err, test.expected, test.description)
	}
}
