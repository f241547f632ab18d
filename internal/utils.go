package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, " \"")
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	if len(clean) == 0 {
		clean = []string{name}
	}
	return pgx.Identifier(clean).Sanitize()
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

// isForeignKeyViolationOn matches the default constraint name Postgres
// gives a column reference, <table>_<column>_fkey.
func isForeignKeyViolationOn(err error, column string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgForeignKeyViolation {
		return false
	}
	return strings.HasSuffix(pgErr.ConstraintName, "_"+column+"_fkey")
}

// placeholders renders "($n, $n+1, ...)" groups for a multi-row VALUES clause.
func placeholders(rows, columns int) string {
	groups := make([]string, rows)
	for r := 0; r < rows; r++ {
		cols := make([]string, columns)
		for c := 0; c < columns; c++ {
			cols[c] = fmt.Sprintf("$%d", r*columns+c+1)
		}
		groups[r] = "(" + strings.Join(cols, ", ") + ")"
	}
	return strings.Join(groups, ", ")
}

// pageBounds normalizes 1-based paging input to limit and offset.
func pageBounds(page, itemsPerPage, defaultSize, maxSize int) (int, int, int, int) {
	if page < 1 {
		page = 1
	}
	if itemsPerPage < 1 {
		itemsPerPage = defaultSize
	}
	if itemsPerPage > maxSize {
		itemsPerPage = maxSize
	}
	return page, itemsPerPage, itemsPerPage, (page - 1) * itemsPerPage
}
