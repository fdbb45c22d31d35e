package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	apperrors "conference-webapp/errors"
)

// validate checks the struct tags on the request types. It caches per type and is safe
// for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps "Struct.Field.tag", or "Struct.Field" for any tag, to the message
// returned to the caller.
var fieldMessages = map[string]string{
	"RegisterRequest.Username":       "Username must be between 3 and 50 characters",
	"RegisterRequest.Email.required": "Email is required",
	"RegisterRequest.Email":          "Email should be valid",
	"RegisterRequest.Password":       "Password must be at least 6 characters",
	"RegisterRequest.FullName":       "Full name is required",

	"LoginRequest.Login":    "Username and password are required",
	"LoginRequest.Password": "Username and password are required",

	"ProposalRequest.Title.required":       "Title is required",
	"ProposalRequest.Title":                "Title must be between 5 and 200 characters",
	"ProposalRequest.Description.required": "Description is required",
	"ProposalRequest.Description":          "Description must be at least 20 characters",

	"FeedbackRequest.SessionID": "Session ID is required",
	"FeedbackRequest.Rating":    "Rating must be between 1 and 5",
	"FeedbackRequest.Comment":   "Comment must not exceed 1000 characters",
}

// validateRequest reports the first failing field of req as a validation error.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return apperrors.Internal("validate request", err)
	}
	field := fields[0]
	if message, ok := fieldMessages[field.StructNamespace()+"."+field.Tag()]; ok {
		return apperrors.Validation(message)
	}
	if message, ok := fieldMessages[field.StructNamespace()]; ok {
		return apperrors.Validation(message)
	}
	return apperrors.Validation(field.Field() + " is invalid")
}

// normalizeUsername trims and NFC-normalizes so that visually equal names compare equal.
func normalizeUsername(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// normalizeLogin treats anything with an @ as an email address.
func normalizeLogin(raw string) string {
	if strings.Contains(raw, "@") {
		return normalizeEmail(raw)
	}
	return normalizeUsername(raw)
}
