package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"github.com/samber/lo"
)

// insertImages stores urls in order; the slice index becomes the position.
func (r *PostgresRepository) insertImages(ctx context.Context, q querier, listingID uuid.UUID, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	args := make([]any, 0, len(urls)*3)
	for i, url := range urls {
		args = append(args, listingID, url, i)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (listing_id, url, position) VALUES %s",
		r.table(r.tables.Images),
		placeholders(len(urls), 3),
	)
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert images: %w", err)
	}
	return nil
}

// deleteImages removes every image of a listing and returns their URLs.
func (r *PostgresRepository) deleteImages(ctx context.Context, q querier, listingID uuid.UUID) ([]string, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE listing_id = $1 RETURNING url", r.table(r.tables.Images))
	rows, err := q.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("delete images: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan deleted image: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted images: %w", err)
	}
	return urls, nil
}

// replaceImages swaps the image set of a listing and returns the URLs it
// previously held.
func (r *PostgresRepository) replaceImages(ctx context.Context, q querier, listingID uuid.UUID, urls []string) ([]string, error) {
	previous, err := r.deleteImages(ctx, q, listingID)
	if err != nil {
		return nil, err
	}
	if err := r.insertImages(ctx, q, listingID, urls); err != nil {
		return nil, err
	}
	return previous, nil
}

// fetchImages loads the images of the given listings ordered by position.
func (r *PostgresRepository) fetchImages(ctx context.Context, q querier, listingIDs []uuid.UUID) (map[uuid.UUID][]classifieds.Image, error) {
	result := make(map[uuid.UUID][]classifieds.Image, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(
		"SELECT id, listing_id, url, position FROM %s WHERE listing_id = ANY($1) ORDER BY listing_id, position, id",
		r.table(r.tables.Images),
	)
	rows, err := q.Query(ctx, query, listingIDs)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img classifieds.Image
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL, &img.Position); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		result[img.ListingID] = append(result[img.ListingID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return result, nil
}

// unreferencedImages returns the urls no image row points at anymore.
// Several listings may carry the same url.
func (r *PostgresRepository) unreferencedImages(ctx context.Context, q querier, urls []string) ([]string, error) {
	urls = lo.Uniq(urls)
	if len(urls) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT DISTINCT url FROM %s WHERE url = ANY($1)", r.table(r.tables.Images))
	rows, err := q.Query(ctx, query, urls)
	if err != nil {
		return nil, fmt.Errorf("query referenced images: %w", err)
	}
	defer rows.Close()

	inUse := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan referenced image: %w", err)
		}
		inUse[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate referenced images: %w", err)
	}
	return lo.Reject(urls, func(url string, _ int) bool { return inUse[url] }), nil
}
