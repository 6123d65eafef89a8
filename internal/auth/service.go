package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const tokenPrefix = "voltlead:token:"

// UserFinder is the persistence surface Login needs.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (User, error)
}

type Service struct {
	logger *slog.Logger
	repo   UserFinder
	tokens *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewService(logger *slog.Logger, repo UserFinder, tokens *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{logger: logger, repo: repo, tokens: tokens, ttl: ttl, now: time.Now}
}

// WithNow overrides the clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Login verifies credentials and issues a bearer token. Lookup failures
// and password mismatches collapse into the same error so the endpoint
// leaks nothing about which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return Token{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return Token{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}

	token := Token{
		Value:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.tokens.Set(ctx, tokenPrefix+token.Value, strconv.FormatInt(user.ID, 10), s.ttl).Err(); err != nil {
		return Token{}, fmt.Errorf("auth: store token: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Verify resolves a bearer token to a user ID.
func (s *Service) Verify(ctx context.Context, token string) (int64, error) {
	raw, err := s.tokens.Get(ctx, tokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenExpired
	}
	if err != nil {
		return 0, fmt.Errorf("auth: verify token: %w", err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("auth: corrupt token payload: %w", err)
	}
	return userID, nil
}

// Logout revokes a token. Revoking an unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Del(ctx, tokenPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}
