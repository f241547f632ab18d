package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/classifieds"
	"github.com/lychee-technology/classifieds/internal"
	"go.uber.org/zap"
)

func runExportSchemas(args []string) error {
	flags := newFlagSet("export-schemas", "[options]")
	opts := registerDBFlags(flags)
	outDir := flags.String("out", "schemas", "Directory to write <category>.schema.json files to")
	if done, err := parseFlags(flags, args); done {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, buildConnString(opts))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	repo := internal.NewPostgresRepository(pool, storageTables(opts.tableSchema))
	return exportSchemas(ctx, internal.NewCategoryManager(repo, nil, nil), *outDir)
}

// exportSchemas writes the JSON Schema of every category's attributes.
func exportSchemas(ctx context.Context, categories classifieds.CategoryManager, outDir string) error {
	list, err := categories.ListCategories(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, c := range list {
		detail, err := categories.GetCategory(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("load category %s: %w", c.Name, err)
		}
		data, err := json.MarshalIndent(classifieds.CategoryJSONSchema(detail.Category, detail.Attributes), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal schema of %s: %w", c.Name, err)
		}
		path := filepath.Join(outDir, slugify(c.Name)+".schema.json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		zap.S().Infow("exported schema", "category", c.Name, "path", path, "attributes", len(detail.Attributes))
	}
	return nil
}

// slugify lowercases name and joins its letter and digit runs with dashes.
func slugify(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return "category"
	}
	return strings.Join(fields, "-")
}
