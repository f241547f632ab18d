package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/classifieds"
)

const userColumns = "id, name, email, role, phone_number, created_at"

func scanUser(row pgx.Row, u *classifieds.User) error {
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PhoneNumber, &u.CreatedAt); err != nil {
		return err
	}
	u.Role = classifieds.Role(role)
	return nil
}

// findUserByID returns nil when the user does not exist.
func (r *PostgresRepository) findUserByID(ctx context.Context, q querier, id uuid.UUID) (*classifieds.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", userColumns, r.table(r.tables.Users))
	var u classifieds.User
	err := scanUser(q.QueryRow(ctx, query, id), &u)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) listUsers(ctx context.Context, q querier) ([]classifieds.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY name, id", userColumns, r.table(r.tables.Users))
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]classifieds.User, 0)
	for rows.Next() {
		var u classifieds.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// updatePhoneNumber returns the stored row, or nil when no user has the id.
func (r *PostgresRepository) updatePhoneNumber(ctx context.Context, q querier, id uuid.UUID, phone *string) (*classifieds.User, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET phone_number = $2 WHERE id = $1 RETURNING %s",
		r.table(r.tables.Users),
		userColumns,
	)
	var u classifieds.User
	err := scanUser(q.QueryRow(ctx, query, id, phone), &u)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) deleteUser(ctx context.Context, q querier, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table(r.tables.Users))
	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// findAuthors loads the contact cards of the given users keyed by id.
func (r *PostgresRepository) findAuthors(ctx context.Context, q querier, ids []uuid.UUID) (map[uuid.UUID]*classifieds.Author, error) {
	authors := make(map[uuid.UUID]*classifieds.Author, len(ids))
	if len(ids) == 0 {
		return authors, nil
	}
	query := fmt.Sprintf("SELECT id, name, email, phone_number FROM %s WHERE id = ANY($1)", r.table(r.tables.Users))
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a classifieds.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.PhoneNumber); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors[a.ID] = &a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}
