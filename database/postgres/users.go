package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"conference-webapp/database"
	"conference-webapp/model"
)

const userColumns = `id, username, email, password_hash, full_name, role, created_at`

func scanUser(row scanner) (model.User, error) {
	var (
		user model.User
		role string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.FullName, &role, &user.CreatedAt); err != nil {
		return model.User{}, err
	}
	user.Role = model.Role(role)
	user.CreatedAt = utc(user.CreatedAt)
	return user, nil
}

func getUser(ctx context.Context, q queryer, query string, args ...any) (model.User, error) {
	user, err := scanUser(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, database.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FullName, string(user.Role), user.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "users_username_key"):
		return database.ErrUsernameTaken
	case isUniqueViolation(err, "users_email_key"):
		return database.ErrEmailTaken
	}
	return fmt.Errorf("insert user: %w", err)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return getUser(ctx, s.pool, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	return getUser(ctx, s.pool, `SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1 LIMIT 1`, login)
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// lockUser loads the user row FOR UPDATE.
func lockUser(ctx context.Context, tx pgx.Tx, id string) (model.User, error) {
	return getUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

// guardLastAdmin locks every administrator row, so two concurrent demotions
// cannot both observe a second administrator.
func guardLastAdmin(ctx context.Context, tx pgx.Tx, user model.User) error {
	if user.Role != model.RoleAdmin {
		return nil
	}
	rows, err := tx.Query(ctx, `SELECT id FROM users WHERE role = $1 FOR UPDATE`, string(model.RoleAdmin))
	if err != nil {
		return fmt.Errorf("lock admins: %w", err)
	}
	admins := 0
	for rows.Next() {
		admins++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock admins: %w", err)
	}
	if admins <= 1 {
		return database.ErrLastAdmin
	}
	return nil
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	var updated model.User
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		user, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if role != model.RoleAdmin {
			if err := guardLastAdmin(ctx, tx, user); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, string(role), id); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		user.Role = role
		updated = user
		return nil
	})
	return updated, err
}

func (s *Store) DeleteUser(ctx context.Context, id string) (model.User, error) {
	var deleted model.User
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		user, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := guardLastAdmin(ctx, tx, user); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			if isForeignKeyViolation(err) {
				return database.ErrHasDependents
			}
			return fmt.Errorf("delete user: %w", err)
		}
		deleted = user
		return nil
	})
	return deleted, err
}
