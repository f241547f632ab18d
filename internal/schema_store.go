package internal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	gocache "github.com/patrickmn/go-cache"
)

// PostgresSchemaStore serves category attribute schemas from the
// attribute_definitions table, optionally through a TTL cache.
type PostgresSchemaStore struct {
	repo  *PostgresRepository
	cache *gocache.Cache
}

var (
	_ classifieds.AttributeSchemaStore = (*PostgresSchemaStore)(nil)
	_ classifieds.SchemaInvalidator    = (*PostgresSchemaStore)(nil)
)

// NewPostgresSchemaStore creates a schema store. A zero ttl disables caching
// so every lookup reads the live schema.
func NewPostgresSchemaStore(repo *PostgresRepository, ttl time.Duration) *PostgresSchemaStore {
	s := &PostgresSchemaStore{repo: repo}
	if ttl > 0 {
		s.cache = gocache.New(ttl, 2*ttl)
	}
	return s
}

func (s *PostgresSchemaStore) CategoryExists(ctx context.Context, categoryID uuid.UUID) (bool, error) {
	if s.cache != nil {
		if _, ok := s.cache.Get(categoryID.String()); ok {
			return true, nil
		}
	}
	return s.repo.categoryExists(ctx, s.repo.pool, categoryID)
}

// Definitions returns the schema of a category in ordinal, then key order.
// Callers must not modify the returned slice.
func (s *PostgresSchemaStore) Definitions(ctx context.Context, categoryID uuid.UUID) ([]classifieds.AttributeDefinition, error) {
	key := categoryID.String()
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached.([]classifieds.AttributeDefinition), nil
		}
	}

	defs, err := s.repo.findAttributeDefinitions(ctx, s.repo.pool, categoryID)
	if err != nil {
		return nil, err
	}
	classifieds.SortDefinitions(defs)

	if s.cache != nil {
		s.cache.SetDefault(key, defs)
	}
	return defs, nil
}

// Invalidate drops the cached schema of a category.
func (s *PostgresSchemaStore) Invalidate(categoryID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(categoryID.String())
}
