package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
)

// actorClaims are the token claims naming the acting user and role.
type actorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTActorResolver accepts HMAC signed bearer tokens carrying the user id
// in "sub" and the role in "role".
type JWTActorResolver struct {
	secret []byte
}

var _ classifieds.ActorResolver = (*JWTActorResolver)(nil)

func NewJWTActorResolver(secret string) (*JWTActorResolver, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWTActorResolver{secret: []byte(secret)}, nil
}

func (r *JWTActorResolver) Resolve(_ context.Context, token string) (classifieds.Actor, error) {
	claims := &actorClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}))
	if err != nil || !parsed.Valid {
		return classifieds.Actor{}, classifieds.NewUnauthorizedError("invalid or expired token").WithCause(err)
	}
	return actorFromClaims(claims.Subject, claims.Role)
}

// Issue signs a token for actor valid for ttl.
func (r *JWTActorResolver) Issue(actor classifieds.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := actorClaims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func actorFromClaims(subject, role string) (classifieds.Actor, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return classifieds.Actor{}, classifieds.NewUnauthorizedError("token subject is not a user id")
	}
	r := classifieds.Role(role)
	switch r {
	case "":
		r = classifieds.RoleUser
	case classifieds.RoleUser, classifieds.RoleAdmin, classifieds.RoleModerator:
	default:
		return classifieds.Actor{}, classifieds.NewUnauthorizedError("unknown role").WithDetail("role", role)
	}
	return classifieds.Actor{UserID: userID, Role: r}, nil
}
