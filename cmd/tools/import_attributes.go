package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/classifieds"
	"github.com/lychee-technology/classifieds/internal"
	"go.uber.org/zap"
)

func runImportAttributes(args []string) error {
	flags := newFlagSet("import-attributes", "-category <name|id> -file <definitions.json> [options]")
	opts := registerDBFlags(flags)
	category := flags.String("category", "", "Category name or id whose attribute schema is replaced")
	file := flags.String("file", "", "JSON array of attribute definitions")
	if done, err := parseFlags(flags, args); done {
		return err
	}
	if *category == "" || *file == "" {
		return fmt.Errorf("both -category and -file must be provided")
	}

	definitions, err := loadDefinitions(*file)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, buildConnString(opts))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	repo := internal.NewPostgresRepository(pool, storageTables(opts.tableSchema))
	return importAttributes(ctx, internal.NewCategoryManager(repo, nil, nil), *category, definitions)
}

func loadDefinitions(path string) ([]classifieds.AttributeDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	var definitions []classifieds.AttributeDefinition
	if err := json.Unmarshal(data, &definitions); err != nil {
		return nil, fmt.Errorf("parse definitions %s: %w", path, err)
	}
	return definitions, nil
}

// resolveCategory accepts a category id or an exact category name.
func resolveCategory(ctx context.Context, categories classifieds.CategoryManager, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	list, err := categories.ListCategories(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, c := range list {
		if c.Name == ref {
			return c.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("category %q not found", ref)
}

func importAttributes(ctx context.Context, categories classifieds.CategoryManager, ref string, definitions []classifieds.AttributeDefinition) error {
	categoryID, err := resolveCategory(ctx, categories, ref)
	if err != nil {
		return err
	}
	detail, err := categories.ReplaceAttributeDefinitions(ctx, systemActor, categoryID, definitions)
	if err != nil {
		return err
	}
	zap.S().Infow("attribute schema imported", "category", detail.Name, "attributes", len(detail.Attributes))
	return nil
}
