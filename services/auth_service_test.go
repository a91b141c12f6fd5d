package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"feasto-api/apperr"
	"feasto-api/auth"
	"feasto-api/dbtest"
	"feasto-api/models"
	"feasto-api/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour, nil)
	return NewAuthService(db, tokens, policy.New(policy.Options{}), quietLogger()), db
}

func register(t *testing.T, svc *AuthService, username string, role models.UserRole) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Username: username, Email: username + "@example.com",
		Password: "secret1", ConfirmPassword: "secret1", Role: role,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterPasswordMismatchCreatesNothing(t *testing.T) {
	svc, db := newAuthService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "abc123", ConfirmPassword: "xyz789",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.As(err).Code)
	assert.Equal(t, "Passwords do not match", apperr.As(err).Message)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestRegisterDefaultsAndConflicts(t *testing.T) {
	svc, _ := newAuthService(t)

	u := register(t, svc, "alice", "")
	assert.Equal(t, models.RoleCustomer, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "secret1", ConfirmPassword: "secret1",
	})
	assert.ErrorIs(t, err, apperr.ErrUsernameTaken)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "bob", Password: "short", ConfirmPassword: "short", Role: "chef",
	})
	require.Error(t, err)
	fields := apperr.As(err).Fields
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "role")
}

func TestRegisterConcurrentDuplicateIsConflict(t *testing.T) {
	svc, db := newAuthService(t)

	// Another request inserts the same username between the count and the insert.
	inserted := false
	err := db.Callback().Create().Before("gorm:create").Register("test:concurrent_register", func(tx *gorm.DB) {
		if inserted {
			return
		}
		inserted = true
		now := time.Now()
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO users (username, email, password_hash, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			"alice", "first@example.com", "x", "customer", true, now, now)
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "secret1", ConfirmPassword: "secret1",
	})
	assert.ErrorIs(t, err, apperr.ErrUsernameTaken)
	assert.Equal(t, http.StatusConflict, apperr.As(err).Code)
	assert.True(t, inserted)
}

func TestLoginAndResolve(t *testing.T) {
	svc, db := newAuthService(t)
	ctx := context.Background()
	alice := register(t, svc, "alice", models.RoleDelivery)

	_, _, err := svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	user, token, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	require.NotEmpty(t, token)

	caller, claims := svc.Resolve(ctx, token)
	assert.Equal(t, policy.Caller{UserID: alice.ID, Role: models.RoleDelivery}, caller)
	require.NotNil(t, claims)

	// A role change takes effect without a new token.
	require.NoError(t, db.Model(alice).Update("role", models.RoleAdmin).Error)
	caller, _ = svc.Resolve(ctx, token)
	assert.True(t, caller.IsAdmin())

	require.NoError(t, db.Model(alice).Update("is_active", false).Error)
	caller, claims = svc.Resolve(ctx, token)
	assert.Equal(t, policy.Anonymous, caller)
	assert.Nil(t, claims)

	_, _, err = svc.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	register(t, svc, "alice", models.RoleCustomer)

	_, token, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	caller, claims := svc.Resolve(ctx, token)
	require.True(t, caller.Authenticated())

	require.NoError(t, svc.Logout(ctx, claims))
	caller, _ = svc.Resolve(ctx, token)
	assert.False(t, caller.Authenticated())

	assert.NoError(t, svc.Logout(ctx, nil))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	alice := register(t, svc, "alice", models.RoleCustomer)
	caller := callerFor(alice)

	err := svc.ChangePassword(ctx, policy.Anonymous, ChangePasswordInput{})
	assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired)

	err = svc.ChangePassword(ctx, caller, ChangePasswordInput{OldPassword: "nope00", NewPassword: "newpass", ConfirmPassword: "newpass"})
	assert.ErrorIs(t, err, apperr.ErrInvalidOldPassword)

	err = svc.ChangePassword(ctx, caller, ChangePasswordInput{OldPassword: "secret1", NewPassword: "newpass", ConfirmPassword: "other1"})
	assert.Equal(t, http.StatusBadRequest, apperr.As(err).Code)

	require.NoError(t, svc.ChangePassword(ctx, caller, ChangePasswordInput{
		OldPassword: "secret1", NewPassword: "newpass", ConfirmPassword: "newpass",
	}))
	_, _, err = svc.Login(ctx, "alice", "newpass")
	assert.NoError(t, err)
}
