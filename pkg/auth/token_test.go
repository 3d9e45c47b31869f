package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "unitrade", ExpirationMinutes: 30}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	principal := Principal{
		UserID:      uuid.New(),
		Email:       "ana@campus.edu",
		DisplayName: "Ana",
		College:     "North Campus",
		Role:        enums.UserRoleStudent,
	}

	token, err := MintAccessToken(testJWT, now, principal)
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, principal, claims.Principal())
	assert.Equal(t, testJWT.Issuer, claims.Issuer)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now(), Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	other := testJWT
	other.Secret = "different"
	_, err = ParseAccessToken(other, token)
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), Principal{UserID: uuid.New(), Role: enums.UserRoleStudent})
	require.NoError(t, err)

	_, err = ParseAccessToken(testJWT, token)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "expired"))
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	_, err := MintAccessToken(testJWT, time.Now(), Principal{Role: enums.UserRoleStudent})
	assert.Error(t, err, "missing user id")

	_, err = MintAccessToken(testJWT, time.Now(), Principal{UserID: uuid.New(), Role: "root"})
	assert.Error(t, err, "invalid role")

	_, err = MintAccessToken(config.JWTConfig{Secret: "s", Issuer: "i"}, time.Now(), Principal{UserID: uuid.New(), Role: enums.UserRoleStudent})
	assert.Error(t, err, "non-positive ttl")
}

func TestPrincipalPermissions(t *testing.T) {
	owner := uuid.New()
	student := Principal{UserID: owner, Role: enums.UserRoleStudent}
	admin := Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	stranger := Principal{UserID: uuid.New(), Role: enums.UserRoleStudent}

	assert.True(t, student.CanManage(owner))
	assert.True(t, admin.CanManage(owner))
	assert.False(t, stranger.CanManage(owner))
	assert.False(t, Principal{Role: enums.UserRoleAdmin}.IsAdmin())
	assert.Equal(t, "Student", Principal{DisplayName: "  "}.NameOr("Student"))
}
