package internal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/classifieds"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// CreateListing validates the submitted attributes against the live schema
// of the category and stores the listing, its attribute values and images
// in one transaction.
func (m *listingManager) CreateListing(ctx context.Context, actor classifieds.Actor, req *classifieds.CreateListingRequest) (view *classifieds.ListingView, err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("create_listing", start, err) }()

	if req == nil {
		return nil, classifieds.NewValidationError("request", "request cannot be nil")
	}

	exists, err := m.schemas.CategoryExists(ctx, req.CategoryID)
	if err != nil {
		return nil, storageFailure("load category", err)
	}
	if !exists {
		return nil, classifieds.NewCategoryNotFoundError(req.CategoryID)
	}

	defs, err := m.schemas.Definitions(ctx, req.CategoryID)
	if err != nil {
		return nil, storageFailure("load attribute schema", err)
	}

	validated, err := classifieds.ValidateAttributes(defs, req.Attributes)
	if err != nil {
		return nil, err
	}
	if err := checkTitle(req.Title); err != nil {
		return nil, err
	}
	if err := checkPrice(req.Price); err != nil {
		return nil, err
	}
	if err := checkImageURLs(req.Images); err != nil {
		return nil, err
	}

	now := m.repo.now()
	listing := classifieds.Listing{
		ID:          m.repo.newID(),
		AuthorID:    actor.UserID,
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rows, err := toAttributeRows(listing.ID, validated)
	if err != nil {
		return nil, storageFailure("convert attribute values", err)
	}

	zap.S().Debugw("creating listing", "listingID", listing.ID, "categoryID", listing.CategoryID, "attributes", len(rows))
	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		if err := m.repo.insertListing(ctx, tx, &listing); err != nil {
			return err
		}
		if err := m.repo.insertAttributeValues(ctx, tx, rows); err != nil {
			return err
		}
		if err := m.repo.insertImages(ctx, tx, listing.ID, req.Images); err != nil {
			return err
		}
		views, err := m.loadViews(ctx, tx, []classifieds.Listing{listing}, map[uuid.UUID][]classifieds.AttributeDefinition{listing.CategoryID: defs})
		if err != nil {
			return err
		}
		view = views[0]
		return nil
	})
	if err != nil {
		return nil, storageFailure("create listing", err)
	}
	return view, nil
}

// UpdateListing applies a patch under a row lock. Attributes and images,
// when present, replace the stored collections wholesale; attributes are
// validated against the listing's current category schema.
func (m *listingManager) UpdateListing(ctx context.Context, actor classifieds.Actor, listingID uuid.UUID, patch *classifieds.ListingPatch) (view *classifieds.ListingView, err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("update_listing", start, err) }()

	if patch == nil {
		patch = &classifieds.ListingPatch{}
	}

	var removedImages []string
	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		listing, err := m.repo.findListingByID(ctx, tx, listingID, true)
		if err != nil {
			return err
		}
		if listing == nil {
			return classifieds.NewListingNotFoundError(listingID)
		}
		if !actor.CanModify(listing.AuthorID) {
			return classifieds.NewForbiddenError("only the author or a moderator may modify this listing")
		}

		if patch.Title != nil {
			if err := checkTitle(*patch.Title); err != nil {
				return err
			}
		}
		if patch.Price != nil {
			if err := checkPrice(*patch.Price); err != nil {
				return err
			}
		}
		if patch.Images != nil {
			if err := checkImageURLs(*patch.Images); err != nil {
				return err
			}
		}

		defs, err := m.schemas.Definitions(ctx, listing.CategoryID)
		if err != nil {
			return err
		}

		var rows []attributeRow
		if patch.Attributes != nil {
			validated, err := classifieds.ValidateAttributes(defs, *patch.Attributes)
			if err != nil {
				return err
			}
			if rows, err = toAttributeRows(listing.ID, validated); err != nil {
				return err
			}
		}

		update := listingFieldUpdate{
			Title:       patch.Title,
			Description: patch.Description,
			Price:       patch.Price,
			UpdatedAt:   m.repo.now(),
		}
		if err := m.repo.updateListingFields(ctx, tx, listing.ID, update); err != nil {
			return err
		}
		applyFieldUpdate(listing, update)

		if patch.Attributes != nil {
			if err := m.repo.replaceAttributeValues(ctx, tx, listing.ID, rows); err != nil {
				return err
			}
		}
		if patch.Images != nil {
			previous, err := m.repo.replaceImages(ctx, tx, listing.ID, *patch.Images)
			if err != nil {
				return err
			}
			if removedImages, err = m.repo.unreferencedImages(ctx, tx, lo.Without(previous, *patch.Images...)); err != nil {
				return err
			}
		}

		views, err := m.loadViews(ctx, tx, []classifieds.Listing{*listing}, map[uuid.UUID][]classifieds.AttributeDefinition{listing.CategoryID: defs})
		if err != nil {
			return err
		}
		view = views[0]
		return nil
	})
	if err != nil {
		return nil, storageFailure("update listing", err)
	}

	m.deleteBlobs(ctx, listingID, removedImages)
	return view, nil
}

func applyFieldUpdate(listing *classifieds.Listing, update listingFieldUpdate) {
	if update.Title != nil {
		listing.Title = *update.Title
	}
	if update.Description != nil {
		listing.Description = descriptionValue(update.Description)
	}
	if update.Price != nil {
		listing.Price = *update.Price
	}
	listing.UpdatedAt = update.UpdatedAt
}

// DeleteListing removes a listing with its comments, images and attribute
// values. Image objects are deleted from the blob store afterwards on a
// best-effort basis.
func (m *listingManager) DeleteListing(ctx context.Context, actor classifieds.Actor, listingID uuid.UUID) (err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("delete_listing", start, err) }()

	var urls []string
	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		listing, err := m.repo.findListingByID(ctx, tx, listingID, true)
		if err != nil {
			return err
		}
		if listing == nil {
			return classifieds.NewListingNotFoundError(listingID)
		}
		if !actor.CanModify(listing.AuthorID) {
			return classifieds.NewForbiddenError("only the author or a moderator may delete this listing")
		}
		removed, err := m.repo.deleteListingCascade(ctx, tx, listingID)
		if err != nil {
			return err
		}
		urls, err = m.repo.unreferencedImages(ctx, tx, removed)
		return err
	})
	if err != nil {
		return storageFailure("delete listing", err)
	}

	zap.S().Infow("listing deleted", "listingID", listingID, "images", len(urls))
	m.deleteBlobs(ctx, listingID, urls)
	return nil
}

func (m *listingManager) GetListing(ctx context.Context, listingID uuid.UUID) (*classifieds.ListingView, error) {
	listing, err := m.repo.findListingByID(ctx, m.repo.pool, listingID, false)
	if err != nil {
		return nil, storageFailure("get listing", err)
	}
	if listing == nil {
		return nil, classifieds.NewListingNotFoundError(listingID)
	}
	views, err := m.loadViews(ctx, m.repo.pool, []classifieds.Listing{*listing}, nil)
	if err != nil {
		return nil, storageFailure("get listing", err)
	}
	return views[0], nil
}

// QueryListings returns a page of listings, newest first. Attribute filters
// are compiled against the schema of the selected category and ignored
// without one; filters that do not apply to the schema are dropped.
func (m *listingManager) QueryListings(ctx context.Context, query *classifieds.ListingQuery) (*classifieds.ListingQueryResult, error) {
	if query == nil {
		query = &classifieds.ListingQuery{}
	}
	page, perPage, limit, offset := pageBounds(query.Page, query.ItemsPerPage, m.query.DefaultPageSize, m.query.MaxPageSize)

	search := listingSearch{
		CategoryID: query.CategoryID,
		AuthorID:   query.AuthorID,
		Limit:      limit,
		Offset:     offset,
	}

	var known map[uuid.UUID][]classifieds.AttributeDefinition
	if query.CategoryID != nil {
		exists, err := m.schemas.CategoryExists(ctx, *query.CategoryID)
		if err != nil {
			return nil, storageFailure("load category", err)
		}
		if !exists {
			return nil, classifieds.NewCategoryNotFoundError(*query.CategoryID)
		}
		defs, err := m.schemas.Definitions(ctx, *query.CategoryID)
		if err != nil {
			return nil, storageFailure("load attribute schema", err)
		}
		known = map[uuid.UUID][]classifieds.AttributeDefinition{*query.CategoryID: defs}

		compiled, dropped := query.Filters.Compile(defs)
		if len(dropped) > 0 {
			zap.S().Debugw("dropped attribute filters", "categoryID", *query.CategoryID, "filters", dropped)
		}
		search.Filters = compiled
	} else if len(query.Filters) > 0 {
		zap.S().Debugw("attribute filters ignored without category", "filters", query.Filters)
	}

	listings, total, err := m.repo.searchListings(ctx, m.repo.pool, search)
	if err != nil {
		return nil, storageFailure("query listings", err)
	}
	views, err := m.loadViews(ctx, m.repo.pool, listings, known)
	if err != nil {
		return nil, storageFailure("query listings", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return &classifieds.ListingQueryResult{
		Data:         views,
		TotalRecords: total,
		TotalPages:   totalPages,
		CurrentPage:  page,
		ItemsPerPage: perPage,
		HasNext:      page < totalPages,
		HasPrevious:  page > 1,
	}, nil
}
