package validator // import "streamlance.app/internal/validator"

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streamlance.app/internal/config"
	"streamlance.app/internal/model"
)

const minPasswordLength = 6

var (
	ErrEmailRequired    = errors.New("email address is required")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrUserExists       = errors.New("user already exists")
	ErrPasswordTooShort = fmt.Errorf("password must have at least %d characters",
		minPasswordLength)
)

type UserStore interface {
	UserExists(ctx context.Context, email string) (bool, error)
}

// ValidateUserCreation validates user creation.
func ValidateUserCreation(ctx context.Context, store UserStore,
	r *model.UserCreationRequest,
) error {
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return ErrEmailRequired
	}

	if err := config.Validator().Var(email, "email"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	if err := ValidatePassword(r.Password); err != nil {
		return err
	}

	exists, err := store.UserExists(ctx, email)
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	} else if exists {
		return fmt.Errorf("%w: %q", ErrUserExists, email)
	}
	return nil
}

// ValidatePassword validates a new password of a user.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
