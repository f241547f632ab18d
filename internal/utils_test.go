package internal

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "listings", want: `"listings"`},
		{input: "market.listings", want: `"market"."listings"`},
		{input: `"market"."listings"`, want: `"market"."listings"`},
		{input: `bad"name`, want: `"bad""name"`},
		{input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeIdentifier(tt.input))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "($1, $2, $3)", placeholders(1, 3))
	assert.Equal(t, "($1, $2), ($3, $4), ($5, $6)", placeholders(3, 2))
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name                          string
		page, perPage                 int
		wantPage, wantPer, wantOffset int
	}{
		{name: "defaults", page: 0, perPage: 0, wantPage: 1, wantPer: 20, wantOffset: 0},
		{name: "third page", page: 3, perPage: 10, wantPage: 3, wantPer: 10, wantOffset: 20},
		{name: "clamped size", page: 2, perPage: 500, wantPage: 2, wantPer: 100, wantOffset: 100},
		{name: "negative page", page: -4, perPage: 5, wantPage: 1, wantPer: 5, wantOffset: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, perPage, limit, offset := pageBounds(tt.page, tt.perPage, 20, 100)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPer, perPage)
			assert.Equal(t, tt.wantPer, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestPgErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert category: %w", &pgconn.PgError{Code: "23505"})
	foreignKey := fmt.Errorf("delete category: %w", &pgconn.PgError{Code: "23503"})

	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isForeignKeyViolation(unique))
	assert.True(t, isForeignKeyViolation(foreignKey))
	assert.False(t, isUniqueViolation(fmt.Errorf("plain")))
}
