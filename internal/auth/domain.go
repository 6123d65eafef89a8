// Package auth authenticates API users with bcrypt-hashed credentials
// and hands out opaque bearer tokens kept in Redis.
package auth

import (
	"errors"
	"time"
)

// User represents an API user account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token is what a successful login returns.
type Token struct {
	Value     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired or unknown")
	ErrNotFound           = errors.New("auth: not found")
)
