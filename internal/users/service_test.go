package users

import (
	"context"
	"testing"
	"time"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/db/dbtest"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testJWT      = config.JWTConfig{Secret: "secret", Issuer: "unitrade", ExpirationMinutes: 60}
	fastPassword = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(dbtest.Open(t)),
		JWT:         testJWT,
		Password:    fastPassword,
		Marketplace: config.MarketplaceConfig{AdminEmails: "dean@campus.edu"},
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Email: " Ana@Campus.edu ", Password: "correct-horse", College: "North"})
	require.NoError(t, err)
	assert.Equal(t, "ana@campus.edu", reg.User.Email)
	assert.Equal(t, DefaultDisplayName, reg.User.DisplayName)
	assert.Equal(t, enums.UserRoleStudent, reg.User.Role)

	claims, err := pkgauth.ParseAccessToken(testJWT, reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "North", claims.College)

	login, err := svc.Login(ctx, LoginRequest{Email: "ANA@campus.edu", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotNil(t, login.User.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *login.User.LastLoginAt, 5*time.Second)
}

func TestRegisterBootstrapsAdmins(t *testing.T) {
	svc := newTestService(t)
	reg, err := svc.Register(context.Background(), RegisterRequest{Email: "dean@campus.edu", Password: "long-enough", DisplayName: "Dean"})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, reg.User.Role)
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@campus.edu", Password: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@campus.edu", Password: "long-enough"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Email: "A@campus.edu", Password: "long-enough"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Email: "b@campus.edu", Password: "long-enough"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "b@campus.edu", Password: "wrong-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@campus.edu", Password: "long-enough"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestGetUnknownUser(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
