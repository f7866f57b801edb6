package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brewfeed/internal/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	reg, err := env.auth.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", reg.User.Name)
	assert.NotEmpty(t, reg.Token)
	assert.Len(t, env.store.Tokens, 1)

	stored, err := env.users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored.PasswordHash)

	login, err := env.auth.Login(ctx, LoginInput{Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.Len(t, env.store.Tokens, 2)
}

func TestRegister_Rejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.auth.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, RegisterInput{Name: "Ann 2", Email: "ann@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.auth.Register(ctx, RegisterInput{Name: "Bob", Email: "not-an-email", Password: "secret"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "email")

	_, err = env.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "secret"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "name is required", err.Error())

	_, err = env.auth.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: strings.Repeat("x", 73)})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "password is too long", err.Error())
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.auth.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.auth.Login(ctx, LoginInput{Email: "ann@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateAndLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg, err := env.auth.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)

	user, claims, err := env.auth.Authenticate(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)

	require.NoError(t, env.auth.Logout(ctx, claims))
	assert.Empty(t, env.store.Tokens)

	_, _, err = env.auth.Authenticate(ctx, reg.Token)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg, err := env.auth.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)

	delete(env.store.Users, reg.User.ID)

	_, _, err = env.auth.Authenticate(ctx, reg.Token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPurgeExpiredTokens(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.authCfg.JWTExpiry = -1
	expiring := NewAuthService(env.users, env.tokens, nil, env.authCfg, nil)

	_, err := expiring.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)

	n, err := env.auth.PurgeExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
