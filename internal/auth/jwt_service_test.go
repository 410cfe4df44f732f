package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, "a@b.c")
	require.NoError(t, err)

	claims, err := svc.ValidatePurpose(token, PurposeAccess)
	require.NoError(t, err)
	sub, err := claims.Subject()
	require.NoError(t, err)
	assert.Equal(t, userID, sub)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), RemainingTTL(claims).Seconds(), 5)
}

func TestJWTService_PurposeIsEnforced(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, err := svc.GenerateResetToken(uuid.New(), "a@b.c")
	require.NoError(t, err)

	_, err = svc.ValidatePurpose(token, PurposeAccess)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	_, err = svc.ValidatePurpose(token, PurposeReset)
	assert.NoError(t, err)
}

func TestJWTService_RejectsBadTokens(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	other := NewJWTService("other", time.Hour)

	foreign, err := other.GenerateAccessToken(uuid.New(), "x@y.z")
	require.NoError(t, err)

	expired := NewJWTService("secret", -time.Minute)
	old, err := expired.GenerateAccessToken(uuid.New(), "x@y.z")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.NewString()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", old},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTService_RefreshTokenID(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	id, token, err := svc.GenerateRefreshToken(uuid.New(), "a@b.c")
	require.NoError(t, err)

	extracted, err := svc.ExtractTokenID(token)
	require.NoError(t, err)
	assert.Equal(t, id, extracted)
}

func TestTokenStore_NilCacheFailsSafe(t *testing.T) {
	store := NewTokenStore(nil)
	ctx := t.Context()

	require.NoError(t, store.StoreRefreshToken(ctx, "id", uuid.New(), "a@b.c", time.Minute))
	_, _, err := store.GetRefreshToken(ctx, "id")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	blacklisted, err := store.IsAccessTokenBlacklisted(ctx, "id")
	assert.NoError(t, err)
	assert.False(t, blacklisted)
}
