package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/classifieds"
	"github.com/lychee-technology/classifieds/factory"
	"github.com/lychee-technology/classifieds/internal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	db           classifieds.DatabaseConfig
	listingCount int
	concurrency  int
	queryRounds  int
	keep         bool
	seed         int64
	seedProvided bool
}

var benchAuthor = classifieds.Actor{
	UserID: uuid.MustParse("6f1f3b0e-2d7a-4c55-9a0e-0b5c1de3a001"),
	Role:   classifieds.RoleUser,
}

var benchAdmin = classifieds.Actor{UserID: benchAuthor.UserID, Role: classifieds.RoleAdmin}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	opts := parseFlags()
	ctx := context.Background()

	pool, err := factory.NewPool(ctx, opts.db)
	if err != nil {
		sugar.Fatalf("failed to create connection pool: %v", err)
	}
	defer pool.Close()

	if err := ensureAuthor(ctx, pool); err != nil {
		sugar.Fatalf("failed to create benchmark user: %v", err)
	}

	repo := internal.NewPostgresRepository(pool, internal.DefaultStorageTables())
	schemas := internal.NewPostgresSchemaStore(repo, time.Minute)
	categories := internal.NewCategoryManager(repo, schemas, nil)
	listings := internal.NewListingManager(repo, schemas, internal.ListingManagerOptions{})

	if !opts.seedProvided {
		sugar.Infof("using random seed %d", opts.seed)
	}
	random := rand.New(rand.NewSource(opts.seed))

	category, err := categories.CreateCategory(ctx, benchAdmin, &classifieds.CategoryInput{
		Name: fmt.Sprintf("benchmark-%d", time.Now().UnixNano()),
	})
	if err != nil {
		sugar.Fatalf("failed to create benchmark category: %v", err)
	}
	if _, err := categories.ReplaceAttributeDefinitions(ctx, benchAdmin, category.ID, benchmarkDefinitions()); err != nil {
		sugar.Fatalf("failed to define benchmark attributes: %v", err)
	}

	requests := make([]*classifieds.CreateListingRequest, opts.listingCount)
	for i := range requests {
		requests[i] = randomListing(random, category.ID)
	}

	created, createStats, err := createListings(ctx, listings, requests, opts.concurrency)
	if err != nil {
		sugar.Fatalf("failed to create listings: %v", err)
	}
	sugar.Infow("create", createStats.fields()...)

	for _, scenario := range queryScenarios(category.ID) {
		stats, matched, err := runQueries(ctx, listings, benchmarkDefinitions(), scenario.query, opts.queryRounds)
		if err != nil {
			sugar.Fatalf("query %s failed: %v", scenario.name, err)
		}
		sugar.Infow("query "+scenario.name, append(stats.fields(), "matched", matched)...)
	}

	if opts.keep {
		sugar.Infow("benchmark data kept", "category", category.Name)
		return
	}
	deleteStats, err := deleteListings(ctx, listings, created, opts.concurrency)
	if err != nil {
		sugar.Fatalf("failed to delete listings: %v", err)
	}
	sugar.Infow("delete", deleteStats.fields()...)
	if err := categories.DeleteCategory(ctx, benchAdmin, category.ID); err != nil {
		sugar.Fatalf("failed to delete benchmark category: %v", err)
	}
}

func parseFlags() options {
	var opts options
	opts.db = classifieds.DefaultConfig().Database

	flag.StringVar(&opts.db.Host, "db-host", getenvDefault("DB_HOST", "localhost"), "database host")
	flag.IntVar(&opts.db.Port, "db-port", getenvDefaultInt("DB_PORT", 5432), "database port")
	flag.StringVar(&opts.db.Database, "db-name", getenvDefault("DB_NAME", "classifieds"), "database name")
	flag.StringVar(&opts.db.Username, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flag.StringVar(&opts.db.Password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flag.StringVar(&opts.db.SSLMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", "disable"), "database sslmode")
	flag.IntVar(&opts.listingCount, "listings", 1000, "number of listings to create")
	flag.IntVar(&opts.concurrency, "concurrency", 8, "concurrent create and delete calls")
	flag.IntVar(&opts.queryRounds, "query-rounds", 50, "repetitions of every query scenario")
	flag.BoolVar(&opts.keep, "keep", false, "keep the generated category and listings")
	seed := flag.Int64("seed", 0, "random seed (0 uses current time)")

	flag.Parse()

	if *seed == 0 {
		opts.seed = time.Now().UnixNano()
	} else {
		opts.seed = *seed
		opts.seedProvided = true
	}
	if opts.concurrency < 1 {
		opts.concurrency = 1
	}
	if opts.db.MaxConnections < opts.concurrency {
		opts.db.MaxConnections = opts.concurrency
	}
	return opts
}

func ensureAuthor(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
INSERT INTO users (id, name, email, role)
VALUES ($1, 'Benchmark', 'benchmark@example.com', 'USER')
ON CONFLICT (id) DO NOTHING`, benchAuthor.UserID)
	return err
}

func createListings(ctx context.Context, listings classifieds.ListingManager, requests []*classifieds.CreateListingRequest, concurrency int) ([]uuid.UUID, latencyStats, error) {
	ids := make([]uuid.UUID, len(requests))
	durations := make([]time.Duration, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range requests {
		g.Go(func() error {
			start := time.Now()
			view, err := listings.CreateListing(gctx, benchAuthor, req)
			if err != nil {
				return fmt.Errorf("listing %d: %w", i, err)
			}
			durations[i] = time.Since(start)
			ids[i] = view.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, latencyStats{}, err
	}
	return ids, summarize(durations), nil
}

// runQueries repeats query and checks every returned listing against the
// filters compiled from defs.
func runQueries(ctx context.Context, listings classifieds.ListingManager, defs []classifieds.AttributeDefinition, query classifieds.ListingQuery, rounds int) (latencyStats, int, error) {
	filters, _ := query.Filters.Compile(defs)
	durations := make([]time.Duration, 0, rounds)
	matched := 0
	for range rounds {
		q := query
		start := time.Now()
		result, err := listings.QueryListings(ctx, &q)
		if err != nil {
			return latencyStats{}, 0, err
		}
		durations = append(durations, time.Since(start))
		if err := checkPage(filters, result); err != nil {
			return latencyStats{}, 0, err
		}
		matched = result.TotalRecords
	}
	return summarize(durations), matched, nil
}

func checkPage(filters classifieds.CompiledFilters, result *classifieds.ListingQueryResult) error {
	for _, view := range result.Data {
		if !filters.MatchesView(view) {
			return fmt.Errorf("listing %s does not match the query filters", view.ID)
		}
	}
	return nil
}

func deleteListings(ctx context.Context, listings classifieds.ListingManager, ids []uuid.UUID, concurrency int) (latencyStats, error) {
	var mu sync.Mutex
	durations := make([]time.Duration, 0, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			start := time.Now()
			if err := listings.DeleteListing(gctx, benchAuthor, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			mu.Lock()
			durations = append(durations, time.Since(start))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return latencyStats{}, err
	}
	return summarize(durations), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
