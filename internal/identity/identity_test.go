package identity_test

import (
	"context"
	"crypton/backend/internal/identity"
	"crypton/backend/internal/models"
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) RenameUser(ctx context.Context, userID, username string) error {
	args := m.Called(ctx, userID, username)
	return args.Error(0)
}

const secret = "test-secret"

func TestAnonName(t *testing.T) {
	name := identity.AnonName()

	assert.True(t, strings.HasPrefix(name, "Anon_"))
	assert.Len(t, name, len("Anon_")+8)
	assert.NotEqual(t, name, identity.AnonName())
}

func TestBootstrapAndAuthenticate(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := new(MockUserStore)
	store.On("CreateUser", ctx, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = "user-1"
		}).
		Return(nil)
	svc := identity.NewService(store, secret)

	// Act
	user, token, err := svc.Bootstrap(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.True(t, strings.HasPrefix(user.Username, "Anon_"))
	assert.NotEmpty(t, token)

	store.On("GetUserByID", ctx, "user-1").Return(user, nil)
	caller, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, identity.Caller{UserID: "user-1", Username: user.Username}, caller)
	store.AssertExpectations(t)
}

func TestAuthenticate_Rejects(t *testing.T) {
	ctx := context.Background()
	store := new(MockUserStore)
	store.On("GetUserByID", ctx, "gone").Return(nil, models.ErrNotFound)
	svc := identity.NewService(store, secret)

	sign := func(claims jwt.MapClaims, key string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong key", sign(jwt.MapClaims{"anon_id": "u", "exp": future, "iss": "crypton-service"}, "other")},
		{"expired", sign(jwt.MapClaims{"anon_id": "u", "exp": time.Now().Add(-time.Hour).Unix(), "iss": "crypton-service"}, secret)},
		{"wrong issuer", sign(jwt.MapClaims{"anon_id": "u", "exp": future, "iss": "someone-else"}, secret)},
		{"missing subject", sign(jwt.MapClaims{"exp": future, "iss": "crypton-service"}, secret)},
		{"unknown user", sign(jwt.MapClaims{"anon_id": "gone", "exp": future, "iss": "crypton-service"}, secret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.token)
			assert.ErrorIs(t, err, identity.ErrInvalidToken)
			assert.ErrorIs(t, err, models.ErrAccessDenied)
		})
	}
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	store := new(MockUserStore)
	store.On("RenameUser", ctx, "u1", "alice").Return(nil)
	store.On("GetUserByID", ctx, "u1").Return(&models.User{ID: "u1", Username: "alice"}, nil)
	svc := identity.NewService(store, secret)

	user, err := svc.Rename(ctx, identity.Caller{UserID: "u1"}, "  alice  ")

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	store.AssertExpectations(t)
}

func TestRename_InvalidLength(t *testing.T) {
	store := new(MockUserStore)
	svc := identity.NewService(store, secret)

	for _, name := range []string{"", "   ", strings.Repeat("x", 21)} {
		_, err := svc.Rename(context.Background(), identity.Caller{UserID: "u1"}, name)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	}
	store.AssertNotCalled(t, "RenameUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestRename_StoreError(t *testing.T) {
	ctx := context.Background()
	store := new(MockUserStore)
	store.On("RenameUser", ctx, "u1", "bob").Return(errors.New("db down"))
	svc := identity.NewService(store, secret)

	_, err := svc.Rename(ctx, identity.Caller{UserID: "u1"}, "bob")

	assert.EqualError(t, err, "db down")
}
