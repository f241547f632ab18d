package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lychee-technology/classifieds"
	"github.com/redis/go-redis/v9"
)

// RedisActorResolver looks bearer tokens up as session ids in redis. Each
// session holds the JSON encoded actor.
type RedisActorResolver struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ classifieds.ActorResolver = (*RedisActorResolver)(nil)

func NewRedisActorResolver(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisActorResolver {
	return &RedisActorResolver{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (r *RedisActorResolver) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

func (r *RedisActorResolver) Resolve(ctx context.Context, token string) (classifieds.Actor, error) {
	if token == "" {
		return classifieds.Actor{}, classifieds.NewUnauthorizedError("missing session")
	}
	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return classifieds.Actor{}, classifieds.NewUnauthorizedError("session not found or expired")
	}
	if err != nil {
		return classifieds.Actor{}, fmt.Errorf("read session: %w", err)
	}

	var stored struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return classifieds.Actor{}, classifieds.NewUnauthorizedError("malformed session").WithCause(err)
	}
	return actorFromClaims(stored.UserID, stored.Role)
}

// Save stores a session for actor under sessionID.
func (r *RedisActorResolver) Save(ctx context.Context, sessionID string, actor classifieds.Actor) error {
	data, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Revoke ends a session.
func (r *RedisActorResolver) Revoke(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
