// Package identity issues and resolves anonymous user sessions.
package identity

import (
	"context"
	"crypton/backend/internal/config"
	"crypton/backend/internal/models"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for missing, malformed, expired or forged tokens.
var ErrInvalidToken = fmt.Errorf("invalid session token: %w", models.ErrAccessDenied)

// UserStore is the subset of storage.Storage identity needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	RenameUser(ctx context.Context, userID, username string) error
}

// Caller identifies the user on whose behalf an operation runs.
type Caller struct {
	UserID   string
	Username string
}

// CallerOf returns the Caller for user.
func CallerOf(user *models.User) Caller {
	return Caller{UserID: user.ID, Username: user.Username}
}

type Service struct {
	store  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store UserStore, secret string) *Service {
	return &Service{
		store:  store,
		secret: []byte(secret),
		ttl:    config.TokenTTL,
		now:    time.Now,
	}
}

// AnonName returns a fresh display name like "Anon_1a2b3c4d".
func AnonName() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return config.AnonNamePrefix + id[:8]
}

// Bootstrap creates a new anonymous user and a signed session token for it.
func (s *Service) Bootstrap(ctx context.Context) (*models.User, string, error) {
	user := &models.User{Username: AnonName()}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	log.Printf("INFO: New anonymous user %s (%s)", user.ID, user.Username)
	return user, token, nil
}

func (s *Service) issue(userID string) (string, error) {
	claims := jwt.MapClaims{
		"anon_id": userID,
		"exp":     s.now().Add(s.ttl).Unix(),
		"iss":     config.TokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Authenticate resolves a session token to its caller.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (Caller, error) {
	if tokenString == "" {
		return Caller{}, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Caller{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Caller{}, ErrInvalidToken
	}
	userID, _ := claims["anon_id"].(string)
	if userID == "" {
		return Caller{}, ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return Caller{}, ErrInvalidToken
	}
	if err != nil {
		return Caller{}, err
	}
	return CallerOf(user), nil
}

// Rename changes the display name. Names are trimmed and must be 1 to
// MaxUsernameLength characters.
func (s *Service) Rename(ctx context.Context, caller Caller, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n == 0 || n > config.MaxUsernameLength {
		return nil, fmt.Errorf("username must be 1 to %d characters: %w", config.MaxUsernameLength, models.ErrInvalidInput)
	}

	if err := s.store.RenameUser(ctx, caller.UserID, username); err != nil {
		return nil, err
	}
	return s.store.GetUserByID(ctx, caller.UserID)
}
