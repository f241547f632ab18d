package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const attributeValueColumnCount = 7

func buildAttributeValuesClause(rows []attributeRow) (string, []any) {
	if len(rows) == 0 {
		return "", nil
	}
	args := make([]any, 0, len(rows)*attributeValueColumnCount)
	for _, row := range rows {
		args = append(args,
			row.ListingID,
			row.AttributeID,
			row.ValueText,
			row.ValueNumeric,
			row.ValueBool,
			row.ValueDate,
			row.ValueJSON,
		)
	}
	return placeholders(len(rows), attributeValueColumnCount), args
}

func (r *PostgresRepository) insertAttributeValues(ctx context.Context, q querier, rows []attributeRow) error {
	if len(rows) == 0 {
		return nil
	}

	const batchSize = 500
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		valuesClause, args := buildAttributeValuesClause(rows[i:end])
		query := fmt.Sprintf(
			"INSERT INTO %s (listing_id, attribute_id, value_text, value_numeric, value_bool, value_date, value_json) VALUES %s",
			r.table(r.tables.AttributeValues),
			valuesClause,
		)
		zap.S().Debugw("insert attribute values", "query", query, "count", end-i)
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert attribute values: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) deleteAttributeValues(ctx context.Context, q querier, listingID uuid.UUID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE listing_id = $1", r.table(r.tables.AttributeValues))
	if _, err := q.Exec(ctx, query, listingID); err != nil {
		return fmt.Errorf("delete attribute values: %w", err)
	}
	return nil
}

func (r *PostgresRepository) replaceAttributeValues(ctx context.Context, q querier, listingID uuid.UUID, rows []attributeRow) error {
	if err := r.deleteAttributeValues(ctx, q, listingID); err != nil {
		return err
	}
	return r.insertAttributeValues(ctx, q, rows)
}

// fetchAttributeValues loads the stored values of the given listings keyed
// by listing id.
func (r *PostgresRepository) fetchAttributeValues(ctx context.Context, q querier, listingIDs []uuid.UUID) (map[uuid.UUID][]attributeRow, error) {
	result := make(map[uuid.UUID][]attributeRow, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(
		"SELECT listing_id, attribute_id, value_text, value_numeric, value_bool, value_date, value_json FROM %s WHERE listing_id = ANY($1)",
		r.table(r.tables.AttributeValues),
	)
	rows, err := q.Query(ctx, query, listingIDs)
	if err != nil {
		return nil, fmt.Errorf("query attribute values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row attributeRow
		if err := rows.Scan(
			&row.ListingID,
			&row.AttributeID,
			&row.ValueText,
			&row.ValueNumeric,
			&row.ValueBool,
			&row.ValueDate,
			&row.ValueJSON,
		); err != nil {
			return nil, fmt.Errorf("scan attribute value: %w", err)
		}
		result[row.ListingID] = append(result[row.ListingID], row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute values: %w", err)
	}
	return result, nil
}
