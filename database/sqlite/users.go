package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"conference-webapp/database"
	"conference-webapp/model"
)

const userColumns = `id, username, email, password_hash, full_name, role, created_at`

func scanUser(row scanner) (model.User, error) {
	var (
		user      model.User
		role      string
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.FullName, &role, &createdAt); err != nil {
		return model.User{}, err
	}
	user.Role = model.Role(role)
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FullName, string(user.Role), toMillis(user.CreatedAt),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "users.username"):
		return database.ErrUsernameTaken
	case isUniqueViolation(err, "users.email"):
		return database.ErrEmailTaken
	}
	return fmt.Errorf("insert user: %w", err)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return getUser(ctx, s.sqlDB, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	return getUser(ctx, s.sqlDB, `SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1`, login, login)
}

func getUser(ctx context.Context, q queryer, query string, args ...any) (model.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, database.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, username`)
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

// guardLastAdmin fails with ErrLastAdmin when user is the only administrator left.
func guardLastAdmin(ctx context.Context, tx *sql.Tx, user model.User) error {
	if user.Role != model.RoleAdmin {
		return nil
	}
	var admins int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, string(model.RoleAdmin)).Scan(&admins); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins <= 1 {
		return database.ErrLastAdmin
	}
	return nil
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	var updated model.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		user, err := getUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if role != model.RoleAdmin {
			if err := guardLastAdmin(ctx, tx, user); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id); err != nil {
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
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		user, err := getUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if err := guardLastAdmin(ctx, tx, user); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
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
