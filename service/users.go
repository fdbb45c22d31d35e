package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"conference-webapp/auth"
	"conference-webapp/database"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
)

// AuthService registers accounts and exchanges credentials for signed tokens.
type AuthService struct {
	deps
	users  database.UserStore
	issuer *auth.Issuer
}

// Register creates a USER account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	user, err := createUser(ctx, s.deps, s.users, req, model.RoleUser)
	if err != nil {
		return model.AuthResult{}, err
	}
	return s.sign(user)
}

// Login accepts either the username or the email. Every failure looks the same to the caller.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	req.Login = normalizeLogin(req.Login)
	if err := validateRequest(req); err != nil {
		return model.AuthResult{}, err
	}
	user, err := s.users.GetUserByLogin(ctx, req.Login)
	if errors.Is(err, database.ErrNotFound) {
		return model.AuthResult{}, apperrors.Unauthorized("Invalid username or password")
	}
	if err != nil {
		return model.AuthResult{}, apperrors.Internal("load user", err)
	}
	if !auth.IsPasswordHashCorrect(user.PasswordHash, req.Password) {
		s.logger.Debug("rejected login", "user_id", user.ID)
		return model.AuthResult{}, apperrors.Unauthorized("Invalid username or password")
	}
	return s.sign(user)
}

// Me returns the caller's current profile.
func (s *AuthService) Me(ctx context.Context, identity model.Identity) (model.User, error) {
	user, err := s.users.GetUser(ctx, identity.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return model.User{}, apperrors.Unauthorized("Current user not found")
	}
	if err != nil {
		return model.User{}, apperrors.Internal("load user", err)
	}
	return user, nil
}

// TokenTTL is the lifetime of the tokens Register and Login return.
func (s *AuthService) TokenTTL() time.Duration {
	return s.issuer.TTL()
}

func (s *AuthService) sign(user model.User) (model.AuthResult, error) {
	token, err := s.issuer.Issue(user)
	if err != nil {
		return model.AuthResult{}, apperrors.Internal("issue token", err)
	}
	return model.AuthResult{Token: token, User: user}, nil
}

// UserService is the administrator's view of the user directory.
type UserService struct {
	deps
	users database.UserStore
}

// Provision creates an account with any role. It is meant for operator tooling,
// which runs without an authenticated caller.
func (s *UserService) Provision(ctx context.Context, req model.RegisterRequest, role model.Role) (model.User, error) {
	return createUser(ctx, s.deps, s.users, req, role)
}

func (s *UserService) List(ctx context.Context, identity model.Identity) ([]model.User, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.Internal("list users", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, identity model.Identity, id string) (model.User, error) {
	if err := requireAdmin(identity); err != nil {
		return model.User{}, err
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return model.User{}, storeError(err, "User not found")
	}
	return user, nil
}

func (s *UserService) UpdateRole(ctx context.Context, identity model.Identity, id, rawRole string) (model.User, error) {
	if err := requireAdmin(identity); err != nil {
		return model.User{}, err
	}
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return model.User{}, apperrors.Validation("Invalid role: " + rawRole)
	}
	user, err := s.users.UpdateUserRole(ctx, id, role)
	switch {
	case errors.Is(err, database.ErrLastAdmin):
		return model.User{}, apperrors.Permission("At least one administrator must remain active.")
	case err != nil:
		return model.User{}, storeError(err, "User not found")
	}
	s.logger.Info("user role changed", "user_id", id, "role", role, "by", identity.UserID)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, identity model.Identity, id string) (model.User, error) {
	if err := requireAdmin(identity); err != nil {
		return model.User{}, err
	}
	user, err := s.users.DeleteUser(ctx, id)
	switch {
	case errors.Is(err, database.ErrLastAdmin):
		return model.User{}, apperrors.Permission("At least one administrator must remain active.")
	case errors.Is(err, database.ErrHasDependents):
		return model.User{}, apperrors.Conflict("Cannot delete user with existing proposals, sessions, registrations or feedback")
	case err != nil:
		return model.User{}, storeError(err, "User not found")
	}
	s.logger.Info("user deleted", "user_id", id, "by", identity.UserID)
	return user, nil
}

func createUser(ctx context.Context, d deps, users database.UserStore, req model.RegisterRequest, role model.Role) (model.User, error) {
	req.Username = normalizeUsername(req.Username)
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validateRequest(req); err != nil {
		return model.User{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return model.User{}, apperrors.Internal("hash password", err)
	}
	user := model.User{
		ID:           d.newID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         role,
		CreatedAt:    d.now(),
	}
	switch err := users.CreateUser(ctx, user); {
	case errors.Is(err, database.ErrUsernameTaken):
		return model.User{}, apperrors.Conflict("Username already exists")
	case errors.Is(err, database.ErrEmailTaken):
		return model.User{}, apperrors.Conflict("Email already exists")
	case err != nil:
		return model.User{}, apperrors.Internal("create user", err)
	}
	return user, nil
}
