package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.services.Auth.Register(ctx, model.RegisterRequest{
		Username: "  ada  ",
		Email:    "Ada@Example.com",
		Password: "lovelace",
		FullName: "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", result.User.Username)
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, model.RoleUser, result.User.Role)
	assert.NotEqual(t, "lovelace", result.User.PasswordHash)

	assert.NotEmpty(t, result.Token)
	identity := identityOf(result.User)

	for _, login := range []string{"ada", "ADA@example.com"} {
		loggedIn, err := h.services.Auth.Login(ctx, model.LoginRequest{Login: login, Password: "lovelace"})
		require.NoErrorf(t, err, login)
		assert.Equalf(t, result.User.ID, loggedIn.User.ID, login)
	}

	_, err = h.services.Auth.Login(ctx, model.LoginRequest{Login: "ada", Password: "wrong-password"})
	assertKind(t, err, apperrors.KindUnauthorized, "Invalid username or password")
	_, err = h.services.Auth.Login(ctx, model.LoginRequest{Login: "nobody", Password: "lovelace"})
	assertKind(t, err, apperrors.KindUnauthorized, "Invalid username or password")

	me, err := h.services.Auth.Me(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", me.FullName)

	_, err = h.services.Auth.Me(ctx, model.Identity{UserID: "missing", Username: "ghost", Role: model.RoleUser})
	assertKind(t, err, apperrors.KindUnauthorized, "Current user not found")
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.services.Auth.Register(ctx, model.RegisterRequest{
		Username: "grace", Email: "grace@example.com", Password: "hopper", FullName: "Grace Hopper",
	})
	require.NoError(t, err)

	tests := []struct {
		description string
		request     model.RegisterRequest
		kind        apperrors.Kind
		message     string
	}{
		{"short username", model.RegisterRequest{Username: "ab", Email: "ab@example.com", Password: "secret", FullName: "A B"},
			apperrors.KindValidation, "Username must be between 3 and 50 characters"},
		{"bad email", model.RegisterRequest{Username: "alan", Email: "not-an-email", Password: "secret", FullName: "Alan"},
			apperrors.KindValidation, "Email should be valid"},
		{"short password", model.RegisterRequest{Username: "alan", Email: "alan@example.com", Password: "123", FullName: "Alan"},
			apperrors.KindValidation, "Password must be at least 6 characters"},
		{"missing full name", model.RegisterRequest{Username: "alan", Email: "alan@example.com", Password: "secret"},
			apperrors.KindValidation, "Full name is required"},
		{"duplicate username", model.RegisterRequest{Username: "grace", Email: "other@example.com", Password: "secret", FullName: "G"},
			apperrors.KindConflict, "Username already exists"},
		{"duplicate email in other case", model.RegisterRequest{Username: "grace2", Email: "GRACE@example.com", Password: "secret", FullName: "G"},
			apperrors.KindConflict, "Email already exists"},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			_, err := h.services.Auth.Register(ctx, test.request)
			assertKind(t, err, test.kind, test.message)
		})
	}
}

func TestUserAdministration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, admin := h.user(t, model.RoleAdmin)
	member, memberIdentity := h.user(t, model.RoleUser)

	_, err := h.services.Users.List(ctx, memberIdentity)
	assertKind(t, err, apperrors.KindPermission, "")

	users, err := h.services.Users.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = h.services.Users.Get(ctx, admin, "missing")
	assertKind(t, err, apperrors.KindNotFound, "User not found")

	_, err = h.services.Users.UpdateRole(ctx, admin, member.ID, "speaker")
	assertKind(t, err, apperrors.KindValidation, "Invalid role: speaker")

	promoted, err := h.services.Users.UpdateRole(ctx, admin, member.ID, "coordinator")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCoordinator, promoted.Role)

	deleted, err := h.services.Users.Delete(ctx, admin, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, deleted.ID)
}

func TestLastAdminIsProtected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin, adminIdentity := h.user(t, model.RoleAdmin)

	_, err := h.services.Users.UpdateRole(ctx, adminIdentity, admin.ID, "USER")
	assertKind(t, err, apperrors.KindPermission, "At least one administrator must remain active.")

	_, err = h.services.Users.Delete(ctx, adminIdentity, admin.ID)
	assertKind(t, err, apperrors.KindPermission, "At least one administrator must remain active.")

	second, _ := h.user(t, model.RoleAdmin)
	_, err = h.services.Users.Delete(ctx, adminIdentity, second.ID)
	require.NoError(t, err)
}

func TestDeleteUserWithDependents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, admin := h.user(t, model.RoleAdmin)
	_, speaker := h.user(t, model.RoleUser)

	_, err := h.services.Proposals.Submit(ctx, speaker, model.ProposalRequest{
		Title: "Go in production", Description: "Lessons learned running Go services at scale.",
	})
	require.NoError(t, err)

	_, err = h.services.Users.Delete(ctx, admin, speaker.UserID)
	assertKind(t, err, apperrors.KindConflict, "")
}

func TestProvisionAdmin(t *testing.T) {
	h := newHarness(t)
	user, err := h.services.Users.Provision(context.Background(), model.RegisterRequest{
		Username: "root", Email: "root@example.com", Password: "changeme", FullName: "Root",
	}, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)

	result, err := h.services.Auth.Login(context.Background(), model.LoginRequest{Login: "root", Password: "changeme"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, result.User.Role)
}
