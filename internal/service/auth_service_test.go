package service

import (
	"context"
	"testing"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuth(t *testing.T) (AuthService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	sessions := store.NewSessionStore(store.NewMemoryKV(), time.Hour)
	return NewAuthService(env.admins, sessions, env.access, zap.NewNop()), env
}

func TestAuth_LoginAuthenticateLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuth(t)

	require.NoError(t, svc.SeedAdmin(ctx, SeedAdminRequest{
		Email:           "Bendahara@RW05.id",
		Password:        "rahasia-123",
		Role:            access.RoleTreasurer,
		SubdivisionCode: strPtr("02"),
		DisplayName:     "Bu Sari",
	}))

	resp, err := svc.Login(ctx, LoginRequest{Email: "bendahara@rw05.id", Password: "rahasia-123"})
	require.NoError(t, err)
	assert.Len(t, resp.Token, 64)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, access.RoleTreasurer, resp.Role)
	assert.Equal(t, "rt:02", resp.Scope)
	assert.Contains(t, resp.Features, access.FeatureFinance)

	p, err := svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "Bu Sari", p.DisplayName)

	require.NoError(t, svc.Logout(ctx, resp.Token))
	_, err = svc.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuth_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuth(t)
	require.NoError(t, svc.SeedAdmin(ctx, SeedAdminRequest{Email: "rw@rw05.id", Password: "password-rw", Role: access.RoleTopLevelCoordinator}))

	_, err := svc.Login(ctx, LoginRequest{Email: "rw@rw05.id", Password: "salah"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@rw05.id", Password: "password-rw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	var verr *ValidationError
	_, err = svc.Login(ctx, LoginRequest{Email: "", Password: ""})
	assert.ErrorAs(t, err, &verr)
}

func TestAuth_RoleChangeTakesEffectOnNextRequest(t *testing.T) {
	ctx := context.Background()
	svc, env := newAuth(t)
	require.NoError(t, svc.SeedAdmin(ctx, SeedAdminRequest{Email: "rt@rw05.id", Password: "password-rt", Role: access.RoleSubdivisionCoordinator, SubdivisionCode: strPtr("01")}))

	resp, err := svc.Login(ctx, LoginRequest{Email: "rt@rw05.id", Password: "password-rt"})
	require.NoError(t, err)

	// role moved to another subdivision while the session is live
	require.NoError(t, svc.SeedAdmin(ctx, SeedAdminRequest{Email: "rt@rw05.id", Password: "password-rt", Role: access.RoleSubdivisionCoordinator, SubdivisionCode: strPtr("03")}))

	p, err := svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "rt:03", p.Scope.String())

	role, err := env.admins.GetAdminRole(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, "03", *role.SubdivisionCode)
}

func TestAuth_SeedAdminValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuth(t)
	var verr *ValidationError

	err := svc.SeedAdmin(ctx, SeedAdminRequest{Email: "a@b.c", Password: "password-x", Role: access.RoleSecretary})
	assert.ErrorAs(t, err, &verr, "secretary needs a subdivision")

	err = svc.SeedAdmin(ctx, SeedAdminRequest{Email: "a@b.c", Password: "short", Role: access.RoleTopLevelCoordinator})
	assert.ErrorAs(t, err, &verr)
}
