package middleware

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"

	"conference-webapp/auth"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

const (
	// TokenCookie is the HTTP-only cookie login and register set.
	TokenCookie = "token"
	identityKey = "identity"
	tokenKey    = "jwt"
)

// Authorize verifies an HS256 bearer token, falling back to the token cookie, and
// stores the caller's model.Identity for the handlers.
func Authorize(signingKey []byte) fiber.Handler {
	verify := jwtware.New(jwtware.Config{
		SigningKey:     signingKey,
		SigningMethod:  "HS256",
		ContextKey:     tokenKey,
		SuccessHandler: storeIdentity,
		ErrorHandler:   jwtError,
	})
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			if cookie := c.Cookies(TokenCookie); cookie != "" {
				c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+cookie)
			}
		}
		return verify(c)
	}
}

func storeIdentity(c *fiber.Ctx) error {
	token, ok := c.Locals(tokenKey).(*jwt.Token)
	if !ok {
		return apperrors.RaiseUnauthorizedError(c, "Invalid or expired JWT")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return apperrors.RaiseUnauthorizedError(c, "Invalid or expired JWT")
	}
	identity, err := auth.IdentityFromClaims(claims)
	if err != nil {
		return apperrors.RaiseUnauthorizedError(c, "Invalid or expired JWT")
	}
	c.Locals(identityKey, identity)
	return c.Next()
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return apperrors.RaiseUnauthorizedError(c, "Missing or malformed JWT")
	}
	return apperrors.RaiseUnauthorizedError(c, "Invalid or expired JWT")
}

// IdentityFrom returns the identity Authorize stored for this request.
func IdentityFrom(c *fiber.Ctx) (model.Identity, bool) {
	identity, ok := c.Locals(identityKey).(model.Identity)
	return identity, ok
}

// RequireRole lets the request through only for the listed roles. It must run after Authorize.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return apperrors.RaiseUnauthorizedError(c, "Missing or malformed JWT")
		}
		if !slices.Contains(roles, identity.Role) {
			return apperrors.RaisePermissionsError(c, "only "+joinRoles(roles)+" can perform this operation")
		}
		return c.Next()
	}
}

func RequirePrivileged() fiber.Handler {
	return RequireRole(model.RoleCoordinator, model.RoleAdmin)
}

func RequireAdmin() fiber.Handler {
	return RequireRole(model.RoleAdmin)
}

func joinRoles(roles []model.Role) string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return strings.Join(names, " or ")
}
