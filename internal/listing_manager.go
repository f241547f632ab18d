package internal

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBlobDeleteConcurrency = 4

// ListingManagerOptions carries the optional collaborators of the listing
// manager. Zero values disable the corresponding feature.
type ListingManagerOptions struct {
	Blobs             classifieds.BlobStore
	Breaker           *CircuitBreaker
	Metrics           *Metrics
	Query             classifieds.QueryConfig
	DeleteConcurrency int
}

type listingManager struct {
	repo              *PostgresRepository
	schemas           classifieds.AttributeSchemaStore
	blobs             classifieds.BlobStore
	breaker           *CircuitBreaker
	metrics           *Metrics
	query             classifieds.QueryConfig
	deleteConcurrency int
}

// NewListingManager creates the listing mutation coordinator and read side.
func NewListingManager(repo *PostgresRepository, schemas classifieds.AttributeSchemaStore, opts ListingManagerOptions) classifieds.ListingManager {
	query := opts.Query
	if query.DefaultPageSize <= 0 {
		query.DefaultPageSize = 20
	}
	if query.MaxPageSize <= 0 {
		query.MaxPageSize = 100
	}
	concurrency := opts.DeleteConcurrency
	if concurrency <= 0 {
		concurrency = defaultBlobDeleteConcurrency
	}
	return &listingManager{
		repo:              repo,
		schemas:           schemas,
		blobs:             opts.Blobs,
		breaker:           opts.Breaker,
		metrics:           opts.Metrics,
		query:             query,
		deleteConcurrency: concurrency,
	}
}

// storageFailure passes structured errors through and wraps everything
// else as a storage failure.
func storageFailure(message string, err error) error {
	if err == nil {
		return nil
	}
	var ce *classifieds.ClassifiedsError
	if errors.As(err, &ce) {
		return err
	}
	return classifieds.NewStorageError(message, err)
}

func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return classifieds.NewValidationError("title", "title is required")
	}
	return nil
}

func checkPrice(price float64) error {
	if price < 0 {
		return classifieds.NewValidationError("price", "price must not be negative").WithDetail("price", price)
	}
	return nil
}

func checkImageURLs(urls []string) error {
	for i, url := range urls {
		if strings.TrimSpace(url) == "" {
			return classifieds.NewValidationError("images", "image url is empty").WithDetail("index", i)
		}
	}
	return nil
}

// loadViews projects listings read through q. Schemas already known to the
// caller are passed in defs; the rest are loaded from the schema store.
func (m *listingManager) loadViews(
	ctx context.Context,
	q querier,
	listings []classifieds.Listing,
	defs map[uuid.UUID][]classifieds.AttributeDefinition,
) ([]*classifieds.ListingView, error) {
	views := make([]*classifieds.ListingView, 0, len(listings))
	if len(listings) == 0 {
		return views, nil
	}

	ids := lo.Map(listings, func(l classifieds.Listing, _ int) uuid.UUID { return l.ID })
	categoryIDs := lo.Uniq(lo.Map(listings, func(l classifieds.Listing, _ int) uuid.UUID { return l.CategoryID }))
	authorIDs := lo.Uniq(lo.Map(listings, func(l classifieds.Listing, _ int) uuid.UUID { return l.AuthorID }))

	values, err := m.repo.fetchAttributeValues(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	images, err := m.repo.fetchImages(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	names, err := m.repo.findCategoryNames(ctx, q, categoryIDs)
	if err != nil {
		return nil, err
	}
	authors, err := m.repo.findAuthors(ctx, q, authorIDs)
	if err != nil {
		return nil, err
	}

	if defs == nil {
		defs = make(map[uuid.UUID][]classifieds.AttributeDefinition, len(categoryIDs))
	}
	for _, categoryID := range categoryIDs {
		if _, ok := defs[categoryID]; ok {
			continue
		}
		schema, err := m.schemas.Definitions(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		defs[categoryID] = schema
	}

	for _, l := range listings {
		view := projectListing(l, names[l.CategoryID], defs[l.CategoryID], values[l.ID], images[l.ID])
		view.Author = authors[l.AuthorID]
		views = append(views, view)
	}
	return views, nil
}

// deleteBlobs removes image objects after a committed mutation. Failures
// are logged and counted, never returned.
func (m *listingManager) deleteBlobs(ctx context.Context, listingID uuid.UUID, urls []string) {
	if m.blobs == nil || len(urls) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(m.deleteConcurrency)
	for _, url := range urls {
		g.Go(func() error {
			if m.breaker.IsOpen() {
				m.metrics.observeBlobDelete("skipped")
				zap.S().Warnw("blob store circuit open, skipping image delete", "listingID", listingID, "url", url)
				return nil
			}
			if err := m.blobs.Delete(ctx, url); err != nil {
				m.breaker.RecordFailure()
				m.metrics.observeBlobDelete("failed")
				zap.S().Warnw("failed to delete listing image", "listingID", listingID, "url", url, "error", err)
				return nil
			}
			m.breaker.RecordSuccess()
			m.metrics.observeBlobDelete("ok")
			return nil
		})
	}
	_ = g.Wait()
}
