package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjudicator/internal/refund/models"
	dErrors "adjudicator/pkg/domain-errors"
)

var (
	service = NewService("test-signing-key", "test-issuer", "test-audience")
	subject = uuid.NewString()
)

func TestMint_RoundTrip(t *testing.T) {
	token, err := service.Mint(subject, models.RoleFinance, time.Hour)
	require.NoError(t, err)

	claims, err := service.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, "finance", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestMint_RejectsReservedAndUnknownRoles(t *testing.T) {
	_, err := service.Mint(subject, models.RoleSystem, time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = service.Mint(subject, models.Role("admin"), time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = service.Mint("", models.RoleReviewer, time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParse_Failures(t *testing.T) {
	expired, err := service.Mint(subject, models.RoleReviewer, -time.Hour)
	require.NoError(t, err)
	foreign, err := NewService("test-signing-key", "test-issuer", "other-audience").Mint(subject, models.RoleReviewer, time.Hour)
	require.NoError(t, err)
	forged, err := NewService("other-key", "test-issuer", "test-audience").Mint(subject, models.RoleReviewer, time.Hour)
	require.NoError(t, err)

	tests := map[string]struct {
		token string
		want  error
	}{
		"garbage":        {"invalid-token-string", dErrors.New(dErrors.CodeUnauthorized, "invalid token")},
		"expired":        {expired, dErrors.New(dErrors.CodeUnauthorized, "token has expired")},
		"wrong audience": {foreign, dErrors.New(dErrors.CodeUnauthorized, "invalid token")},
		"wrong key":      {forged, dErrors.New(dErrors.CodeUnauthorized, "invalid token")},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := service.Parse(tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

// Justification: a hand-signed token claiming the system role must not let an
// outsider act as the monitor.
func TestParse_SystemRoleIsNeverAccepted(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(models.RoleSystem),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "monitor",
			Issuer:    "test-issuer",
			Audience:  []string{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := raw.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = service.Parse(token)
	require.ErrorIs(t, err, errInvalidClaims)
}

func TestValidateToken_MapsToMiddlewareClaims(t *testing.T) {
	token, err := service.Mint(subject, models.RoleStakeholder, time.Hour)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, "stakeholder", claims.Role)
}
