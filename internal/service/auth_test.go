package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"panchayat-connect/internal/models"
)

const testSecret = "test-secret-with-enough-length"

func newTestAuth(t *testing.T) (*authService, *fakeAuthRepo) {
	t.Helper()
	repo := newFakeAuthRepo()
	svc := NewAuthService(repo, defaultTeams(), testSecret, time.Hour, zap.NewNop()).(*authService)
	return svc, repo
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))

	assert.True(t, verifyPassword(hash, "correct horse"))
	assert.False(t, verifyPassword(hash, "wrong horse"))
	assert.False(t, verifyPassword("plaintext", "plaintext"))

	again, err := hashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{Email: "Roads@Panchayat.local", Password: "roads-pass", Role: models.RoleTeam, TeamID: teamRef(1)})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "roads@panchayat.local", "roads-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeam, result.Role)
	require.NotNil(t, result.TeamID)
	assert.Equal(t, int64(1), *result.TeamID)

	session, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "roads@panchayat.local", session.Email)
	assert.Equal(t, models.RoleTeam, session.Role)
	assert.NotEmpty(t, session.TokenID)
	assert.True(t, session.InTeam(teamRef(1)))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "admin@panchayat.local", "admin-pass"))

	_, err := svc.Login(ctx, "admin@panchayat.local", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ghost@panchayat.local", "admin-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_Rejects(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "admin@panchayat.local", "admin-pass"))

	result, err := svc.Login(ctx, "admin@panchayat.local", "admin-pass")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(newFakeAuthRepo(), defaultTeams(), "another-secret", time.Hour, zap.NewNop())
	_, err = other.Authenticate(ctx, result.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, result.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, repo := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "admin@panchayat.local", "admin-pass"))

	result, err := svc.Login(ctx, "admin@panchayat.local", "admin-pass")
	require.NoError(t, err)
	session, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session))
	assert.Contains(t, repo.revoked, session.TokenID)

	_, err = svc.Authenticate(ctx, result.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	require.ErrorIs(t, svc.Logout(ctx, nil), ErrInvalidToken)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	svc, repo := newTestAuth(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "", ""))
	assert.Empty(t, repo.users)

	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "admin@panchayat.local", "admin-pass"))
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "second@panchayat.local", "admin-pass"))
	assert.Len(t, repo.users, 1)
	assert.Equal(t, models.RoleAdmin, repo.users["admin@panchayat.local"].Role)
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateUserRequest
		want error
	}{
		{"bad email", CreateUserRequest{Email: "nope", Password: "long-enough", Role: models.RoleAdmin}, ErrValidation},
		{"short password", CreateUserRequest{Email: "a@b.local", Password: "short", Role: models.RoleAdmin}, ErrValidation},
		{"unknown role", CreateUserRequest{Email: "a@b.local", Password: "long-enough", Role: "mayor"}, ErrValidation},
		{"team without id", CreateUserRequest{Email: "a@b.local", Password: "long-enough", Role: models.RoleTeam}, ErrValidation},
		{"unknown team", CreateUserRequest{Email: "a@b.local", Password: "long-enough", Role: models.RoleTeam, TeamID: teamRef(42)}, ErrTeamNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.CreateUser(ctx, CreateUserRequest{Email: "dup@b.local", Password: "long-enough", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, CreateUserRequest{Email: "DUP@b.local", Password: "long-enough", Role: models.RoleAdmin})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateUser_AdminIgnoresTeam(t *testing.T) {
	svc, _ := newTestAuth(t)
	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Email: "boss@panchayat.local", Password: "long-enough", Role: models.RoleAdmin, TeamID: teamRef(1),
	})
	require.NoError(t, err)
	assert.Nil(t, user.TeamID)
}
