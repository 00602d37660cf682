package model // import "streamlance.app/internal/model"

import "time"

// User represents a subscriber of gig alerts.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// UserCreationRequest represents the request to create a user.
type UserCreationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Recipient is an active user together with the categories they subscribed
// to.
type Recipient struct {
	UserID     int64    `db:"id"`
	Email      string   `db:"email"`
	Categories []string `db:"categories"`
}
