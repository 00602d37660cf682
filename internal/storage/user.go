// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package storage // import "streamlance.app/internal/storage"

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"streamlance.app/internal/model"
)

const userColumns = `id, email, password_hash, is_active, registered_at`

// CountUsers returns the total number of users.
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	rows, _ := s.db.Query(ctx, `SELECT count(*) FROM users`)
	count, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int])
	if err != nil {
		return 0, fmt.Errorf("storage: unable count users: %w", err)
	}
	return count, nil
}

// UserExists checks if a user exists by using the given email.
func (s *Storage) UserExists(ctx context.Context, email string) (bool, error) {
	rows, _ := s.db.Query(ctx,
		`SELECT EXISTS(SELECT FROM users WHERE email=LOWER($1))`,
		strings.TrimSpace(email))

	result, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("storage: unable check user exists: %w", err)
	}
	return result, nil
}

// CreateUser creates a new active user with a bcrypt hash of the password.
func (s *Storage) CreateUser(ctx context.Context,
	r *model.UserCreationRequest,
) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password),
		bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("storage: unable hash password: %w", err)
	}

	rows, _ := s.db.Query(ctx, `
INSERT INTO users (email, password_hash)
VALUES (LOWER($1), $2)
RETURNING `+userColumns, strings.TrimSpace(r.Email), string(hash))

	user, err := pgx.CollectExactlyOneRow(rows,
		pgx.RowToAddrOfStructByName[model.User])
	if err != nil {
		return nil, fmt.Errorf("storage: unable to create user %q: %w",
			r.Email, err)
	}
	return user, nil
}

// SetUserActive enables or disables notifications of a user.
func (s *Storage) SetUserActive(ctx context.Context, userID int64,
	active bool,
) error {
	result, err := s.db.Exec(ctx,
		`UPDATE users SET is_active=$2 WHERE id=$1`, userID, active)
	if err != nil {
		return fmt.Errorf("storage: unable update user #%d: %w", userID, err)
	} else if result.RowsAffected() == 0 {
		return fmt.Errorf("storage: user #%d: %w", userID, ErrNotFound)
	}
	return nil
}

// UserByID finds a user by the ID. It returns nil if user not found.
func (s *Storage) UserByID(ctx context.Context, userID int64,
) (*model.User, error) {
	return s.fetchUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// UserByEmail finds a user by the email. It returns nil if user not found.
func (s *Storage) UserByEmail(ctx context.Context, email string,
) (*model.User, error) {
	return s.fetchUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`,
		strings.TrimSpace(email))
}

func (s *Storage) fetchUser(ctx context.Context, query string, args ...any,
) (*model.User, error) {
	rows, _ := s.db.Query(ctx, query, args...)
	user, err := pgx.CollectExactlyOneRow(rows,
		pgx.RowToAddrOfStructByName[model.User])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("storage: unable to fetch user: %w", err)
	}
	return user, nil
}

// Users returns all users.
func (s *Storage) Users(ctx context.Context) ([]*model.User, error) {
	rows, _ := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY email ASC`)
	users, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.User])
	if err != nil {
		return nil, fmt.Errorf("storage: unable to fetch users: %w", err)
	}
	return users, nil
}

// CheckPassword validates password against the stored hash.
func (s *Storage) CheckPassword(ctx context.Context, email, password string,
) error {
	rows, _ := s.db.Query(ctx,
		`SELECT password_hash FROM users WHERE email=LOWER($1)`,
		strings.TrimSpace(email))

	hash, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[string])
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("storage: unable to find user %q: %w", email,
			ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("storage: unable to fetch user: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		return fmt.Errorf("storage: invalid password for %q: %w", email, err)
	}
	return nil
}

// UpdatePassword replaces the password of the user.
func (s *Storage) UpdatePassword(ctx context.Context, userID int64,
	password string,
) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password),
		bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("storage: unable hash password: %w", err)
	}

	result, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash=$2 WHERE id=$1`, userID, string(hash))
	if err != nil {
		return fmt.Errorf("storage: unable update password of user #%d: %w",
			userID, err)
	} else if result.RowsAffected() == 0 {
		return fmt.Errorf("storage: user #%d: %w", userID, ErrNotFound)
	}
	return nil
}
