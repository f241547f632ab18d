package internal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/classifieds"
	"go.uber.org/zap"
)

type categoryManager struct {
	repo        *PostgresRepository
	invalidator classifieds.SchemaInvalidator
	metrics     *Metrics
}

// NewCategoryManager creates the category administration service.
// invalidator may be nil when schemas are not cached.
func NewCategoryManager(repo *PostgresRepository, invalidator classifieds.SchemaInvalidator, metrics *Metrics) classifieds.CategoryManager {
	return &categoryManager{repo: repo, invalidator: invalidator, metrics: metrics}
}

func requireElevated(actor classifieds.Actor) error {
	if !actor.Role.Elevated() {
		return classifieds.NewForbiddenError("category administration requires an elevated role")
	}
	return nil
}

func checkCategoryInput(input *classifieds.CategoryInput) error {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return classifieds.NewValidationError("name", "category name is required")
	}
	return nil
}

func (m *categoryManager) invalidate(categoryID uuid.UUID) {
	if m.invalidator != nil {
		m.invalidator.Invalidate(categoryID)
	}
}

// categoryWriteFailure maps constraint violations of category writes.
func categoryWriteFailure(message string, err error) error {
	switch {
	case isUniqueViolation(err):
		return classifieds.NewConflictError("name", "a category with this name already exists").WithCause(err)
	case isForeignKeyViolation(err):
		return classifieds.NewConflictError("id", "category still has listings").WithCause(err)
	}
	return storageFailure(message, err)
}

func (m *categoryManager) CreateCategory(ctx context.Context, actor classifieds.Actor, input *classifieds.CategoryInput) (category *classifieds.Category, err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("create_category", start, err) }()

	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	if err := checkCategoryInput(input); err != nil {
		return nil, err
	}

	now := m.repo.now()
	c := &classifieds.Category{
		ID:          m.repo.newID(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.repo.insertCategory(ctx, m.repo.pool, c); err != nil {
		return nil, categoryWriteFailure("create category", err)
	}
	zap.S().Infow("category created", "categoryID", c.ID, "name", c.Name)
	return c, nil
}

func (m *categoryManager) UpdateCategory(ctx context.Context, actor classifieds.Actor, categoryID uuid.UUID, input *classifieds.CategoryInput) (category *classifieds.Category, err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("update_category", start, err) }()

	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	if err := checkCategoryInput(input); err != nil {
		return nil, err
	}

	c := &classifieds.Category{
		ID:          categoryID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		UpdatedAt:   m.repo.now(),
	}
	stored, err := m.repo.updateCategory(ctx, m.repo.pool, c)
	if err != nil {
		return nil, categoryWriteFailure("update category", err)
	}
	if stored == nil {
		return nil, classifieds.NewCategoryNotFoundError(categoryID)
	}
	return stored, nil
}

// DeleteCategory removes a category and its attribute schema. A category
// that still has listings is a conflict.
func (m *categoryManager) DeleteCategory(ctx context.Context, actor classifieds.Actor, categoryID uuid.UUID) (err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("delete_category", start, err) }()

	if err := requireElevated(actor); err != nil {
		return err
	}

	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		found, err := m.repo.deleteCategory(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		if !found {
			return classifieds.NewCategoryNotFoundError(categoryID)
		}
		return nil
	})
	if err != nil {
		return categoryWriteFailure("delete category", err)
	}
	m.invalidate(categoryID)
	return nil
}

func (m *categoryManager) GetCategory(ctx context.Context, categoryID uuid.UUID) (*classifieds.CategoryDetail, error) {
	c, err := m.repo.findCategoryByID(ctx, m.repo.pool, categoryID)
	if err != nil {
		return nil, storageFailure("get category", err)
	}
	if c == nil {
		return nil, classifieds.NewCategoryNotFoundError(categoryID)
	}
	defs, err := m.repo.findAttributeDefinitions(ctx, m.repo.pool, categoryID)
	if err != nil {
		return nil, storageFailure("get category", err)
	}
	return &classifieds.CategoryDetail{Category: *c, Attributes: defs}, nil
}

func (m *categoryManager) ListCategories(ctx context.Context) ([]classifieds.Category, error) {
	categories, err := m.repo.listCategories(ctx, m.repo.pool)
	if err != nil {
		return nil, storageFailure("list categories", err)
	}
	return categories, nil
}

// ReplaceAttributeDefinitions makes definitions the complete attribute
// schema of a category. Stored listing values of kept keys are not
// re-validated.
func (m *categoryManager) ReplaceAttributeDefinitions(
	ctx context.Context,
	actor classifieds.Actor,
	categoryID uuid.UUID,
	definitions []classifieds.AttributeDefinition,
) (detail *classifieds.CategoryDetail, err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("replace_attribute_definitions", start, err) }()

	if err := requireElevated(actor); err != nil {
		return nil, err
	}

	defs := make([]classifieds.AttributeDefinition, 0, len(definitions))
	seen := make(map[string]struct{}, len(definitions))
	for i, d := range definitions {
		if err := d.Check(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.Key]; dup {
			return nil, classifieds.NewConflictError("key", "attribute key is defined twice").WithDetail("key", d.Key)
		}
		seen[d.Key] = struct{}{}

		d = d.Normalize()
		d.CategoryID = categoryID
		if d.ID == uuid.Nil {
			d.ID = m.repo.newID()
		}
		if d.Ordinal == 0 {
			d.Ordinal = i + 1
		}
		defs = append(defs, d)
	}

	var category *classifieds.Category
	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		c, err := m.repo.findCategoryByID(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		if c == nil {
			return classifieds.NewCategoryNotFoundError(categoryID)
		}
		category = c
		return m.repo.replaceAttributeDefinitions(ctx, tx, categoryID, defs)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, classifieds.NewConflictError("id", "attribute id belongs to another definition").WithCause(err)
		}
		return nil, storageFailure("replace attribute definitions", err)
	}
	m.invalidate(categoryID)

	classifieds.SortDefinitions(defs)
	zap.S().Infow("attribute schema replaced", "categoryID", categoryID, "attributes", len(defs))
	return &classifieds.CategoryDetail{Category: *category, Attributes: defs}, nil
}
