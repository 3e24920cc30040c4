package service

import (
	"Jarvis_chat/backend/go/internal/chat_service/store"
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUsers 是内存版 UserStore。
type memUsers struct {
	byEmail map[string]*models.User
	nextID  uint
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return store.ErrEmailTaken
	}
	m.nextID++
	u.ID = m.nextID
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) TouchLastLogin(context.Context, uint, time.Time) error { return nil }

func TestRegisterAndLogin(t *testing.T) {
	users := &memUsers{byEmail: map[string]*models.User{}}
	svc := NewAuthService(users, config.AuthConfig{JwtSecret: "secret", TokenTTL: 60, Issuer: "chat"})
	ctx := context.Background()

	u, err := svc.Register(ctx, " Ana@Example.com ", "password123", "ana", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "password123", u.Password)

	_, err = svc.Register(ctx, "ana@example.com", "password123", "ana2", "")
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	_, err = svc.Login(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tokenString, err := svc.Login(ctx, "ANA@example.com", "password123")
	require.NoError(t, err)

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(u.ID), claims["sub"])
	assert.Equal(t, "chat", claims["iss"])
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	users := &memUsers{byEmail: map[string]*models.User{}}
	svc := NewAuthService(users, config.AuthConfig{JwtSecret: "secret"})
	ctx := context.Background()

	u, err := svc.Register(ctx, "b@example.com", "password123", "b", "")
	require.NoError(t, err)
	u.Status = models.StatusSuspended

	_, err = svc.Login(ctx, "b@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountInactive)
}
