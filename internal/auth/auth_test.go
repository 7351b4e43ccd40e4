package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/database"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := NewTokenMaker("test-secret", time.Hour)
	require.NoError(t, err)

	svc := NewService(db, tokens, access.DefaultPolicy(), WithBcryptCost(bcrypt.MinCost))
	return svc, db
}

func TestTokenRoundTrip(t *testing.T) {
	maker, err := NewTokenMaker("secret", time.Minute)
	require.NoError(t, err)

	token, expires, err := maker.Create(access.Identity{UserID: 7, Username: "anna", Role: "waiter"})
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	id, err := maker.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, access.Identity{UserID: 7, Username: "anna", Role: "waiter"}, id)
}

func TestTokenExpired(t *testing.T) {
	maker, err := NewTokenMaker("secret", time.Minute)
	require.NoError(t, err)
	maker.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := maker.Create(access.Identity{Username: "anna", Role: "waiter"})
	require.NoError(t, err)

	_, err = maker.Verify(token)
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	a, _ := NewTokenMaker("one", time.Minute)
	b, _ := NewTokenMaker("two", time.Minute)

	token, _, err := a.Create(access.Identity{Username: "anna"})
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "anna", "s3cret", "waiter")
	require.NoError(t, err)

	token, _, id, err := svc.Login(ctx, "anna", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "waiter", id.Role)

	verified, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, verified)

	_, _, _, err = svc.Login(ctx, "anna", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	_, _, _, err = svc.Login(ctx, "nobody", "s3cret")
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "anna", "s3cret", "sommelier")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.CreateUser(ctx, "anna", "s3cret", "waiter")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "anna", "other1", "waiter")
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestEnsureBootstrapUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.EnsureBootstrapUser(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureBootstrapUser(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.False(t, created)

	id, err := svc.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Role)
}
