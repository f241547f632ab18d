package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/classifieds"
	"github.com/lychee-technology/classifieds/internal"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// systemActor performs administrative writes issued from the command line.
var systemActor = classifieds.Actor{Role: classifieds.RoleAdmin}

type seedCategory struct {
	Name        string
	Description string
	Attributes  []classifieds.AttributeDefinition
}

func float(v float64) *float64 { return &v }

func date(t time.Time) *time.Time { return &t }

func options(values ...string) json.RawMessage {
	raw, _ := json.Marshal(values)
	return raw
}

// seedCategories returns the vehicle marketplace categories. Upper bounds
// on model year and manufacture date follow now.
func seedCategories(now time.Time) []seedCategory {
	now = now.UTC()
	return []seedCategory{
		{
			Name:        "Automobiliai",
			Description: "Automobiliai",
			Attributes: []classifieds.AttributeDefinition{
				{Key: "year", Name: "Metai", Type: classifieds.AttributeTypeInt, Required: true, MinNumber: float(1900), MaxNumber: float(float64(now.Year() + 1))},
				{Key: "make", Name: "Gamintojas", Type: classifieds.AttributeTypeString, Required: true},
				{Key: "model", Name: "Modelis", Type: classifieds.AttributeTypeString, Required: true},
				{Key: "mileage", Name: "Rida", Type: classifieds.AttributeTypeInt, MinNumber: float(0)},
				{Key: "fuel_type", Name: "Kuro tipas", Type: classifieds.AttributeTypeEnum, Options: options("Benzinas", "Dyzelinas", "Elektrinis", "Hibridinis")},
				{Key: "transmission", Name: "Pavarų dėžė", Type: classifieds.AttributeTypeEnum, Options: options("Mechaninė", "Automatinė")},
				{Key: "color", Name: "Spalva", Type: classifieds.AttributeTypeString},
				{Key: "doors", Name: "Durys", Type: classifieds.AttributeTypeInt, MinNumber: float(2), MaxNumber: float(7)},
				{Key: "manufacture_date", Name: "Pagaminimo data", Type: classifieds.AttributeTypeDate, MinDate: date(time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)), MaxDate: date(now.Truncate(time.Second))},
			},
		},
		{
			Name:        "Dviračiai ir motociklai",
			Description: "Motociklai ir dviračiai",
			Attributes: []classifieds.AttributeDefinition{
				{Key: "year", Name: "Metai", Type: classifieds.AttributeTypeInt},
				{Key: "brand", Name: "Prekės ženklas", Type: classifieds.AttributeTypeString},
				{Key: "model", Name: "Modelis", Type: classifieds.AttributeTypeString},
				{Key: "type", Name: "Tipas", Type: classifieds.AttributeTypeEnum, Options: options("Plentas", "Kalnų", "Hibridinis", "Kruizeris")},
				{Key: "cc", Name: "Variklio tūris (cc)", Type: classifieds.AttributeTypeInt},
				{Key: "mileage", Name: "Rida", Type: classifieds.AttributeTypeInt},
			},
		},
		{
			Name:        "Dalys",
			Description: "Transporto priemonių dalys ir priedai",
			Attributes: []classifieds.AttributeDefinition{
				{Key: "part_type", Name: "Dalies tipas", Type: classifieds.AttributeTypeString},
				{Key: "compatible_with", Name: "Tinka", Type: classifieds.AttributeTypeString},
				{Key: "condition", Name: "Būklė", Type: classifieds.AttributeTypeEnum, Options: options("Naujas", "Naudotas", "Atnaujintas")},
				{Key: "manufacturer", Name: "Gamintojas", Type: classifieds.AttributeTypeString},
			},
		},
		{
			Name:        "Paslaugos",
			Description: "Paslaugos (remontas, techninė priežiūra ir kt.)",
			Attributes: []classifieds.AttributeDefinition{
				{Key: "duration_hours", Name: "Trukmė (valandomis)", Type: classifieds.AttributeTypeFloat},
			},
		},
	}
}

// mergeDefinitions appends the seed definitions whose keys are not defined
// yet. Existing definitions are kept untouched.
func mergeDefinitions(existing, seed []classifieds.AttributeDefinition) ([]classifieds.AttributeDefinition, int) {
	known := lo.SliceToMap(existing, func(d classifieds.AttributeDefinition) (string, struct{}) {
		return d.Key, struct{}{}
	})
	merged := append([]classifieds.AttributeDefinition{}, existing...)
	added := 0
	for _, d := range seed {
		if _, ok := known[d.Key]; ok {
			continue
		}
		d.Ordinal = len(merged) + 1
		merged = append(merged, d)
		added++
	}
	return merged, added
}

func runSeed(args []string) error {
	flags := newFlagSet("seed", "[options]")
	opts := registerDBFlags(flags)
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
	categories := internal.NewCategoryManager(repo, nil, nil)
	if err := seed(ctx, categories, seedCategories(time.Now())); err != nil {
		return err
	}
	fmt.Println("Seeding completed.")
	return nil
}

// seed creates missing categories and adds missing attribute definitions.
// Running it twice changes nothing.
func seed(ctx context.Context, categories classifieds.CategoryManager, data []seedCategory) error {
	existing, err := categories.ListCategories(ctx)
	if err != nil {
		return err
	}
	byName := lo.KeyBy(existing, func(c classifieds.Category) string { return c.Name })

	for _, sc := range data {
		category, ok := byName[sc.Name]
		if !ok {
			created, err := categories.CreateCategory(ctx, systemActor, &classifieds.CategoryInput{
				Name:        sc.Name,
				Description: lo.ToPtr(sc.Description),
			})
			if err != nil {
				return fmt.Errorf("create category %s: %w", sc.Name, err)
			}
			category = *created
		}

		detail, err := categories.GetCategory(ctx, category.ID)
		if err != nil {
			return fmt.Errorf("load category %s: %w", sc.Name, err)
		}
		merged, added := mergeDefinitions(detail.Attributes, sc.Attributes)
		if added > 0 {
			if _, err := categories.ReplaceAttributeDefinitions(ctx, systemActor, category.ID, merged); err != nil {
				return fmt.Errorf("seed attributes of %s: %w", sc.Name, err)
			}
		}
		zap.S().Infow("seeded category", "name", sc.Name, "categoryID", category.ID, "attributesAdded", added)
	}
	return nil
}
