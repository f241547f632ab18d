package internal

import (
	"fmt"
	"strings"
)

// SchemaStatements returns the idempotent DDL creating every table and
// index the repository uses, in dependency order.
func SchemaStatements(tables StorageTables) []string {
	users := sanitizeIdentifier(tables.Users)
	categories := sanitizeIdentifier(tables.Categories)
	definitions := sanitizeIdentifier(tables.AttributeDefinitions)
	listings := sanitizeIdentifier(tables.Listings)
	values := sanitizeIdentifier(tables.AttributeValues)
	images := sanitizeIdentifier(tables.Images)
	comments := sanitizeIdentifier(tables.Comments)

	index := func(table, suffix string) string {
		name := strings.ReplaceAll(strings.Trim(table, "\""), "\".\"", "_")
		return sanitizeIdentifier(fmt.Sprintf("idx_%s_%s", name, suffix))
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id            UUID PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			role          TEXT NOT NULL DEFAULT 'USER' CHECK (role IN ('USER', 'ADMIN', 'MODERATOR')),
			phone_number  TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, users),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           UUID PRIMARY KEY,
			name         TEXT NOT NULL UNIQUE,
			description  TEXT,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`, categories),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           UUID PRIMARY KEY,
			category_id  UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
			key          TEXT NOT NULL,
			name         TEXT NOT NULL,
			type         TEXT NOT NULL CHECK (type IN ('STRING', 'INT', 'FLOAT', 'BOOLEAN', 'DATE', 'ENUM', 'JSON')),
			required     BOOLEAN NOT NULL DEFAULT false,
			options      JSONB,
			min_number   DOUBLE PRECISION,
			max_number   DOUBLE PRECISION,
			min_date     TIMESTAMPTZ,
			max_date     TIMESTAMPTZ,
			ordinal      INTEGER NOT NULL DEFAULT 0,
			UNIQUE (category_id, key)
		)`, definitions, categories),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           UUID PRIMARY KEY,
			author_id    UUID NOT NULL REFERENCES %s (id),
			category_id  UUID NOT NULL REFERENCES %s (id),
			title        TEXT NOT NULL,
			description  TEXT,
			price        DOUBLE PRECISION NOT NULL CHECK (price >= 0),
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`, listings, users, categories),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			listing_id     UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
			attribute_id   UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
			value_text     TEXT,
			value_numeric  DOUBLE PRECISION,
			value_bool     BOOLEAN,
			value_date     TIMESTAMPTZ,
			value_json     JSONB,
			PRIMARY KEY (listing_id, attribute_id)
		)`, values, listings, definitions),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          BIGSERIAL PRIMARY KEY,
			listing_id  UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
			url         TEXT NOT NULL,
			position    INTEGER NOT NULL DEFAULT 0
		)`, images, listings),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			listing_id  UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
			author_id   UUID NOT NULL REFERENCES %s (id),
			parent_id   UUID REFERENCES %s (id) ON DELETE CASCADE,
			content     TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`, comments, listings, users, comments),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (category_id, created_at DESC)`, index(listings, "category_created"), listings),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (author_id, created_at DESC)`, index(listings, "author_created"), listings),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (attribute_id, value_numeric, listing_id) WHERE value_numeric IS NOT NULL`, index(values, "numeric"), values),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (attribute_id, value_text, listing_id) WHERE value_text IS NOT NULL`, index(values, "text"), values),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (attribute_id, value_date, listing_id) WHERE value_date IS NOT NULL`, index(values, "date"), values),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (listing_id, position)`, index(images, "listing_position"), images),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (listing_id, created_at)`, index(comments, "listing_created"), comments),
	}
}
