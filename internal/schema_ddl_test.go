package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaStatementsAreIdempotentAndOrdered(t *testing.T) {
	stmts := SchemaStatements(DefaultStorageTables())
	require.NotEmpty(t, stmts)

	for _, stmt := range stmts {
		assert.True(t,
			strings.Contains(stmt, "IF NOT EXISTS"),
			"statement must be safe to re-run: %s", stmt)
	}

	position := func(fragment string) int {
		for i, stmt := range stmts {
			if strings.Contains(stmt, fragment) {
				return i
			}
		}
		t.Fatalf("no statement contains %q", fragment)
		return -1
	}
	assert.Less(t, position(`TABLE IF NOT EXISTS "categories"`), position(`TABLE IF NOT EXISTS "attribute_definitions"`))
	assert.Less(t, position(`TABLE IF NOT EXISTS "users"`), position(`TABLE IF NOT EXISTS "listings"`))
	assert.Less(t, position(`TABLE IF NOT EXISTS "listings"`), position(`TABLE IF NOT EXISTS "listing_attribute_values"`))
	assert.Less(t, position(`TABLE IF NOT EXISTS "listings"`), position(`TABLE IF NOT EXISTS "comments"`))
}

func TestSchemaStatementsQualifiedTables(t *testing.T) {
	tables := DefaultStorageTables()
	tables.Listings = "market.listings"
	stmts := SchemaStatements(tables)

	joined := strings.Join(stmts, "\n")
	assert.Contains(t, joined, `CREATE TABLE IF NOT EXISTS "market"."listings"`)
	assert.Contains(t, joined, `"idx_market_listings_category_created"`)
	assert.Contains(t, joined, `REFERENCES "market"."listings" (id)`)
}
