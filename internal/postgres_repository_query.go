package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/lychee-technology/classifieds"
	"go.uber.org/zap"
)

// searchListings returns one page of listings, newest first, together with
// the total number of matching listings.
func (r *PostgresRepository) searchListings(ctx context.Context, q querier, search listingSearch) ([]classifieds.Listing, int, error) {
	var (
		conditions []string
		args       []any
	)
	if search.CategoryID != nil {
		args = append(args, *search.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if search.AuthorID != nil {
		args = append(args, *search.AuthorID)
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if len(search.Filters) > 0 {
		paramIndex := len(args)
		clause, filterArgs := search.Filters.ToSqlClause(r.table(r.tables.AttributeValues), &paramIndex)
		conditions = append(conditions, "id IN "+clause)
		args = append(args, filterArgs...)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, search.Limit, search.Offset)
	query := fmt.Sprintf(
		"SELECT %s, COUNT(*) OVER() AS total_count FROM %s%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		listingColumns,
		r.table(r.tables.Listings),
		where,
		len(args)-1,
		len(args),
	)
	zap.S().Debugw("search listings", "query", query, "args", args)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	listings := make([]classifieds.Listing, 0, search.Limit)
	total := 0
	for rows.Next() {
		var l classifieds.Listing
		var count int64
		if err := rows.Scan(
			&l.ID,
			&l.AuthorID,
			&l.CategoryID,
			&l.Title,
			&l.Description,
			&l.Price,
			&l.CreatedAt,
			&l.UpdatedAt,
			&count,
		); err != nil {
			return nil, 0, fmt.Errorf("scan listing: %w", err)
		}
		total = int(count)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate listings: %w", err)
	}

	// A page past the end returns no rows and so no window count.
	if len(listings) == 0 && search.Offset > 0 {
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.table(r.tables.Listings), where)
		var count int64
		if err := q.QueryRow(ctx, countQuery, args[:len(args)-2]...).Scan(&count); err != nil {
			return nil, 0, fmt.Errorf("count listings: %w", err)
		}
		total = int(count)
	}
	return listings, total, nil
}
