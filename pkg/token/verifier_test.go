package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACRoundTrip(t *testing.T) {
	issuer := NewHMACIssuer("dev-secret", time.Minute)
	raw, err := issuer.Issue("sub-1", "lea", "etudiant", "offline_access")
	require.NoError(t, err)

	id, err := NewHMACVerifier("dev-secret").Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id.UserID)
	assert.Equal(t, "lea", id.Username)
	assert.True(t, id.HasRole("etudiant"))
	assert.False(t, id.HasRole("prof"))
	assert.False(t, id.HasRole(""))
}

func TestVerifyRejects(t *testing.T) {
	v := NewHMACVerifier("dev-secret")
	ctx := context.Background()

	wrongKey, err := NewHMACIssuer("other", time.Minute).Issue("sub-1", "lea")
	require.NoError(t, err)
	expired, err := NewHMACIssuer("dev-secret", -time.Minute).Issue("sub-1", "lea")
	require.NoError(t, err)
	noSubject, err := NewHMACIssuer("dev-secret", time.Minute).Issue("", "lea")
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"wrong key":  wrongKey,
		"expired":    expired,
		"no subject": noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(ctx, raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRS256WithStaticKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := KeycloakClaims{
		PreferredUsername: "mme.durand",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "kc-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	claims.RealmAccess.Roles = []string{"prof"}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	v := NewJWTVerifier(func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.SigningMethodRS256.Alg())

	id, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "kc-123", id.UserID)
	assert.True(t, id.HasRole("prof"))

	// HS256 token 不能通过只接受 RS256 的校验器
	hs, err := NewHMACIssuer("secret", time.Minute).Issue("kc-123", "x")
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), hs)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
