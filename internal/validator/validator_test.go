package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamlance.app/internal/model"
	"streamlance.app/internal/taxonomy"
)

type fakeUsers map[string]struct{}

func (self fakeUsers) UserExists(_ context.Context, email string,
) (bool, error) {
	if email == "broken@example.com" {
		return false, errors.New("connection refused")
	}
	_, ok := self[email]
	return ok, nil
}

func TestValidateUserCreation(t *testing.T) {
	users := fakeUsers{"taken@example.com": {}}
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "new@example.com", password: "secret1"},
		{name: "trimmed", email: "  new@example.com ", password: "secret1"},
		{name: "empty email", email: " ", password: "secret1", wantErr: ErrEmailRequired},
		{name: "invalid email", email: "not-an-email", password: "secret1", wantErr: ErrInvalidEmail},
		{name: "short password", email: "new@example.com", password: "12345", wantErr: ErrPasswordTooShort},
		{name: "exists", email: "taken@example.com", password: "secret1", wantErr: ErrUserExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserCreation(context.Background(), users,
				&model.UserCreationRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	err := ValidateUserCreation(context.Background(), users,
		&model.UserCreationRequest{Email: "broken@example.com", Password: "secret1"})
	require.ErrorContains(t, err, "connection refused")
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("123456"))
	require.ErrorIs(t, ValidatePassword(""), ErrPasswordTooShort)
	require.ErrorIs(t, ValidatePassword("12345"), ErrPasswordTooShort)
}

func TestValidatePreferences(t *testing.T) {
	tax := taxonomy.Default()
	tests := []struct {
		name       string
		categories []string
		want       []string
		wantErr    error
	}{
		{
			name:       "single",
			categories: []string{"Web Development"},
			want:       []string{"Web Development"},
		},
		{
			name: "three with duplicates",
			categories: []string{
				"Web Development", " Design & Creative", "Web Development",
				"Mobile Development",
			},
			want: []string{"Web Development", "Design & Creative", "Mobile Development"},
		},
		{name: "empty", categories: nil, wantErr: ErrNoPreferences},
		{name: "blank", categories: []string{" ", ""}, wantErr: ErrNoPreferences},
		{
			name: "too many",
			categories: []string{
				"Web Development", "Design & Creative", "Mobile Development",
				"Content & Writing",
			},
			wantErr: ErrTooManyPreferences,
		},
		{name: "unknown", categories: []string{"Cooking"}, wantErr: ErrUnknownCategory},
		{name: "fallback", categories: []string{"Other"}, wantErr: ErrCategoryNotSelectable},
		{name: "case sensitive", categories: []string{"web development"}, wantErr: ErrUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePreferences(tax, tt.categories, 3)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
