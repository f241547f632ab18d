package internal

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lychee-technology/classifieds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTActorResolverRoundTrip(t *testing.T) {
	resolver, err := NewJWTActorResolver("test-secret")
	require.NoError(t, err)

	token, err := resolver.Issue(moderatorActor, time.Hour)
	require.NoError(t, err)

	actor, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, moderatorActor, actor)
}

func TestJWTActorResolverRejectsBadTokens(t *testing.T) {
	resolver, err := NewJWTActorResolver("test-secret")
	require.NoError(t, err)
	other, err := NewJWTActorResolver("other-secret")
	require.NoError(t, err)

	expired, err := resolver.Issue(authorActor, -time.Minute)
	require.NoError(t, err)
	foreign, err := other.Issue(authorActor, time.Hour)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": testAuthorID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": testAuthorID.String(), "role": "ROOT"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"alg none":     unsigned,
		"unknown role": badRole,
		"garbage":      "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), token)
			require.Error(t, err)
			assert.Equal(t, classifieds.ErrorTypeUnauthorized, classifieds.ErrorTypeOf(err))
		})
	}
}

func TestActorFromClaimsDefaultsToUser(t *testing.T) {
	actor, err := actorFromClaims(testAuthorID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, classifieds.RoleUser, actor.Role)

	_, err = actorFromClaims("42", "USER")
	assert.Error(t, err)
}

func TestNewJWTActorResolverRequiresSecret(t *testing.T) {
	_, err := NewJWTActorResolver("")
	assert.Error(t, err)
}
