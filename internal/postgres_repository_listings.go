package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/classifieds"
)

const listingColumns = "id, author_id, category_id, title, description, price, created_at, updated_at"

func scanListing(row pgx.Row, l *classifieds.Listing) error {
	return row.Scan(
		&l.ID,
		&l.AuthorID,
		&l.CategoryID,
		&l.Title,
		&l.Description,
		&l.Price,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
}

// findListingByID returns nil when the listing does not exist. With
// forUpdate the row stays locked until the surrounding transaction ends.
func (r *PostgresRepository) findListingByID(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*classifieds.Listing, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", listingColumns, r.table(r.tables.Listings))
	if forUpdate {
		query += " FOR UPDATE"
	}

	var l classifieds.Listing
	err := scanListing(q.QueryRow(ctx, query, id), &l)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query listing: %w", err)
	}
	return &l, nil
}

func (r *PostgresRepository) listingExists(ctx context.Context, q querier, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", r.table(r.tables.Listings))
	var exists bool
	if err := q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check listing: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) insertListing(ctx context.Context, q querier, l *classifieds.Listing) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		r.table(r.tables.Listings),
		listingColumns,
	)
	if _, err := q.Exec(ctx, query,
		l.ID,
		l.AuthorID,
		l.CategoryID,
		l.Title,
		l.Description,
		l.Price,
		l.CreatedAt,
		l.UpdatedAt,
	); err != nil {
		switch {
		case isForeignKeyViolationOn(err, "author_id"):
			return classifieds.NewAuthorNotFoundError(l.AuthorID).WithCause(err)
		case isForeignKeyViolationOn(err, "category_id"):
			return classifieds.NewCategoryNotFoundError(l.CategoryID).WithCause(err)
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// updateListingFields writes the present scalar fields and always bumps
// updated_at.
func (r *PostgresRepository) updateListingFields(ctx context.Context, q querier, id uuid.UUID, update listingFieldUpdate) error {
	sets := []string{"updated_at = $2"}
	args := []any{id, update.UpdatedAt}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", descriptionValue(update.Description))
	}
	if update.Price != nil {
		add("price", *update.Price)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", r.table(r.tables.Listings), strings.Join(sets, ", "))
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return nil
}

// descriptionValue maps an empty description onto NULL.
func descriptionValue(d *string) *string {
	if d == nil || *d == "" {
		return nil
	}
	return d
}

// deleteListingCascade removes a listing with its comments, images and
// attribute values, returning the URLs of the removed images.
func (r *PostgresRepository) deleteListingCascade(ctx context.Context, q querier, id uuid.UUID) ([]string, error) {
	commentsQuery := fmt.Sprintf("DELETE FROM %s WHERE listing_id = $1", r.table(r.tables.Comments))
	if _, err := q.Exec(ctx, commentsQuery, id); err != nil {
		return nil, fmt.Errorf("delete comments: %w", err)
	}

	urls, err := r.deleteImages(ctx, q, id)
	if err != nil {
		return nil, err
	}

	if err := r.deleteAttributeValues(ctx, q, id); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table(r.tables.Listings))
	if _, err := q.Exec(ctx, query, id); err != nil {
		return nil, fmt.Errorf("delete listing: %w", err)
	}
	return urls, nil
}
