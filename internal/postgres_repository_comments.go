package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/classifieds"
)

const commentColumns = "id, listing_id, author_id, parent_id, content, created_at, updated_at"

func scanComment(row pgx.Row, c *classifieds.Comment) error {
	return row.Scan(&c.ID, &c.ListingID, &c.AuthorID, &c.ParentID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
}

func (r *PostgresRepository) findCommentByID(ctx context.Context, q querier, id uuid.UUID) (*classifieds.Comment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", commentColumns, r.table(r.tables.Comments))
	var c classifieds.Comment
	err := scanComment(q.QueryRow(ctx, query, id), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query comment: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) insertComment(ctx context.Context, q querier, c *classifieds.Comment) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		r.table(r.tables.Comments),
		commentColumns,
	)
	if _, err := q.Exec(ctx, query, c.ID, c.ListingID, c.AuthorID, c.ParentID, c.Content, c.CreatedAt, c.UpdatedAt); err != nil {
		switch {
		case isForeignKeyViolationOn(err, "author_id"):
			return classifieds.NewAuthorNotFoundError(c.AuthorID).WithCause(err)
		case isForeignKeyViolationOn(err, "listing_id"):
			return classifieds.NewListingNotFoundError(c.ListingID).WithCause(err)
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) updateCommentContent(ctx context.Context, q querier, c *classifieds.Comment) error {
	query := fmt.Sprintf("UPDATE %s SET content = $2, updated_at = $3 WHERE id = $1", r.table(r.tables.Comments))
	if _, err := q.Exec(ctx, query, c.ID, c.Content, c.UpdatedAt); err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// deleteComment removes a comment together with its replies.
func (r *PostgresRepository) deleteComment(ctx context.Context, q querier, id uuid.UUID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 OR parent_id = $1", r.table(r.tables.Comments))
	if _, err := q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// listComments returns every comment of a listing, oldest first.
func (r *PostgresRepository) listComments(ctx context.Context, q querier, listingID uuid.UUID) ([]*classifieds.Comment, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE listing_id = $1 ORDER BY created_at, id",
		commentColumns,
		r.table(r.tables.Comments),
	)
	rows, err := q.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*classifieds.Comment, 0)
	for rows.Next() {
		c := &classifieds.Comment{}
		if err := scanComment(rows, c); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}
