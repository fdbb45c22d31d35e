// Package errors holds the API error taxonomy and the fiber helpers that render it.
package errors

import (
	stderrors "errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// GenericMessage replaces the details of every unexpected failure in responses.
const GenericMessage = "An unexpected error occurred. Please try again later."

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindPermission
	KindNotFound
	KindConflict
)

func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindPermission:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func (k Kind) title() string {
	switch k {
	case KindValidation:
		return "bad request"
	case KindUnauthorized:
		return "unauthorized"
	case KindPermission:
		return "lack of permissions"
	case KindNotFound:
		return "resource not found"
	case KindConflict:
		return "conflict"
	}
	return "internal error"
}

// Error is a classified failure. Message is safe to show to the caller unless Kind is KindInternal.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Kind == KindInternal {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error   { return New(KindValidation, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Permission(message string) *Error   { return New(KindPermission, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func RaiseError(context *fiber.Ctx, status int, message string, data any) error {
	return context.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    data})
}

func RaisePermissionsError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusForbidden, KindPermission.title(), data)
}

func RaiseUnauthorizedError(context *fiber.Ctx, data string) error {
	return RaiseError(context, fiber.StatusUnauthorized, KindUnauthorized.title(), data)
}

func RaiseInternalServerError(context *fiber.Ctx) error {
	return RaiseError(context, fiber.StatusInternalServerError, KindInternal.title(), GenericMessage)
}

// Handler is the fiber ErrorHandler. Classified errors keep their message, fiber errors keep
// their code, and anything else is logged and masked.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *Error
		if stderrors.As(err, &appErr) && appErr.Kind != KindInternal {
			return RaiseError(c, appErr.Kind.Status(), appErr.Kind.title(), appErr.Message)
		}

		var fiberErr *fiber.Error
		if stderrors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
			return RaiseError(c, fiberErr.Code, "error", fiberErr.Message)
		}

		logger.Error("unhandled request error",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err)
		return RaiseInternalServerError(c)
	}
}
