package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/classifieds"
)

const definitionColumns = "id, category_id, key, name, type, required, options, min_number, max_number, min_date, max_date, ordinal"

func (r *PostgresRepository) findCategoryByID(ctx context.Context, q querier, id uuid.UUID) (*classifieds.Category, error) {
	query := fmt.Sprintf(
		"SELECT id, name, description, created_at, updated_at FROM %s WHERE id = $1",
		r.table(r.tables.Categories),
	)
	var c classifieds.Category
	err := q.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) categoryExists(ctx context.Context, q querier, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", r.table(r.tables.Categories))
	var exists bool
	if err := q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) listCategories(ctx context.Context, q querier) ([]classifieds.Category, error) {
	query := fmt.Sprintf(
		"SELECT id, name, description, created_at, updated_at FROM %s ORDER BY name",
		r.table(r.tables.Categories),
	)
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]classifieds.Category, 0)
	for rows.Next() {
		var c classifieds.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *PostgresRepository) insertCategory(ctx context.Context, q querier, c *classifieds.Category) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		r.table(r.tables.Categories),
	)
	if _, err := q.Exec(ctx, query, c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// updateCategory returns the stored row, or nil when no category has the
// id of c.
func (r *PostgresRepository) updateCategory(ctx context.Context, q querier, c *classifieds.Category) (*classifieds.Category, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET name = $2, description = $3, updated_at = $4 WHERE id = $1 RETURNING id, name, description, created_at, updated_at",
		r.table(r.tables.Categories),
	)
	var stored classifieds.Category
	err := q.QueryRow(ctx, query, c.ID, c.Name, c.Description, c.UpdatedAt).
		Scan(&stored.ID, &stored.Name, &stored.Description, &stored.CreatedAt, &stored.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) deleteCategory(ctx context.Context, q querier, id uuid.UUID) (bool, error) {
	defQuery := fmt.Sprintf("DELETE FROM %s WHERE category_id = $1", r.table(r.tables.AttributeDefinitions))
	if _, err := q.Exec(ctx, defQuery, id); err != nil {
		return false, fmt.Errorf("delete attribute definitions: %w", err)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table(r.tables.Categories))
	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// findAttributeDefinitions returns the schema of a category ordered by
// ordinal, then key.
func (r *PostgresRepository) findAttributeDefinitions(ctx context.Context, q querier, categoryID uuid.UUID) ([]classifieds.AttributeDefinition, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE category_id = $1 ORDER BY ordinal, key",
		definitionColumns,
		r.table(r.tables.AttributeDefinitions),
	)
	rows, err := q.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query attribute definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]classifieds.AttributeDefinition, 0)
	for rows.Next() {
		var (
			d       classifieds.AttributeDefinition
			typ     string
			options []byte
		)
		if err := rows.Scan(
			&d.ID,
			&d.CategoryID,
			&d.Key,
			&d.Name,
			&typ,
			&d.Required,
			&options,
			&d.MinNumber,
			&d.MaxNumber,
			&d.MinDate,
			&d.MaxDate,
			&d.Ordinal,
		); err != nil {
			return nil, fmt.Errorf("scan attribute definition: %w", err)
		}
		d.Type = classifieds.AttributeType(typ)
		if len(options) > 0 {
			d.Options = options
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute definitions: %w", err)
	}
	return defs, nil
}

// replaceAttributeDefinitions makes defs the complete schema of a category.
// Keys that disappear are deleted together with their stored values; keys
// that remain keep their id so stored values stay attached.
func (r *PostgresRepository) replaceAttributeDefinitions(ctx context.Context, q querier, categoryID uuid.UUID, defs []classifieds.AttributeDefinition) error {
	keys := make([]string, len(defs))
	for i, d := range defs {
		keys[i] = d.Key
	}

	valuesQuery := fmt.Sprintf(
		`DELETE FROM %s WHERE attribute_id IN (
			SELECT id FROM %s WHERE category_id = $1 AND NOT (key = ANY($2)))`,
		r.table(r.tables.AttributeValues),
		r.table(r.tables.AttributeDefinitions),
	)
	if _, err := q.Exec(ctx, valuesQuery, categoryID, keys); err != nil {
		return fmt.Errorf("delete values of removed attributes: %w", err)
	}

	deleteQuery := fmt.Sprintf(
		"DELETE FROM %s WHERE category_id = $1 AND NOT (key = ANY($2))",
		r.table(r.tables.AttributeDefinitions),
	)
	if _, err := q.Exec(ctx, deleteQuery, categoryID, keys); err != nil {
		return fmt.Errorf("delete removed attribute definitions: %w", err)
	}

	upsertQuery := fmt.Sprintf(
		`INSERT INTO %s (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (category_id, key) DO UPDATE SET
				name = EXCLUDED.name, type = EXCLUDED.type, required = EXCLUDED.required,
				options = EXCLUDED.options, min_number = EXCLUDED.min_number, max_number = EXCLUDED.max_number,
				min_date = EXCLUDED.min_date, max_date = EXCLUDED.max_date, ordinal = EXCLUDED.ordinal
			RETURNING id`,
		r.table(r.tables.AttributeDefinitions),
		definitionColumns,
	)
	for i := range defs {
		d := &defs[i]
		var options any
		if len(d.Options) > 0 {
			options = []byte(d.Options)
		}
		if err := q.QueryRow(ctx, upsertQuery,
			d.ID,
			categoryID,
			d.Key,
			d.Name,
			string(d.Type),
			d.Required,
			options,
			d.MinNumber,
			d.MaxNumber,
			d.MinDate,
			d.MaxDate,
			d.Ordinal,
		).Scan(&d.ID); err != nil {
			return fmt.Errorf("upsert attribute definition %s: %w", d.Key, err)
		}
		d.CategoryID = categoryID
	}
	return nil
}

func (r *PostgresRepository) findCategoryNames(ctx context.Context, q querier, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	query := fmt.Sprintf("SELECT id, name FROM %s WHERE id = ANY($1)", r.table(r.tables.Categories))
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query category names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   uuid.UUID
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category name: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category names: %w", err)
	}
	return names, nil
}
