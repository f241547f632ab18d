package factory

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/classifieds"
	"github.com/lychee-technology/classifieds/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services bundles the managers and collaborators built from one Config.
type Services struct {
	Listings   classifieds.ListingManager
	Categories classifieds.CategoryManager
	Comments   classifieds.CommentManager
	Users      classifieds.UserManager
	Schemas    *internal.PostgresSchemaStore
	Blobs      classifieds.BlobStore
	// LocalBlobs is set when images are kept on the local filesystem and
	// must be served by the process itself.
	LocalBlobs *internal.LocalBlobStore
	Actors     classifieds.ActorResolver

	closers []func() error
}

// Close releases connections opened by NewServicesWithConfig. The database
// pool belongs to the caller.
func (s *Services) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type queryPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// tableCollector is swapped out by tests.
var tableCollector = collectTablesFromPool

func collectTablesFromPool(pool queryPool) ([]string, error) {
	rows, err := pool.Query(context.Background(), `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'`)
	if err != nil {
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tables, nil
}

func missingTables(tables []string, want internal.StorageTables) []string {
	var missing []string
	for _, name := range []string{
		want.Users, want.Categories, want.AttributeDefinitions, want.Listings,
		want.AttributeValues, want.Images, want.Comments,
	} {
		if !slices.Contains(tables, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// ConnString builds a postgres URL from the database settings.
func ConnString(cfg classifieds.DatabaseConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// NewPool opens and pings a connection pool. With UseIAM every new
// connection authenticates with a freshly generated IAM token instead of the
// configured password.
func NewPool(ctx context.Context, cfg classifieds.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout

	if cfg.UseIAM {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		poolConfig.BeforeConnect = iamTokenHook(cfg, awsCfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func iamTokenHook(cfg classifieds.DatabaseConfig, awsCfg aws.Config) func(context.Context, *pgx.ConnConfig) error {
	endpoint := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return func(ctx context.Context, cc *pgx.ConnConfig) error {
		token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
		if err != nil {
			return fmt.Errorf("generate iam auth token: %w", err)
		}
		cc.Password = token
		return nil
	}
}

// NewServicesWithConfig wires the listing, category and comment managers
// over pool. It fails when the tables created by init-db are missing. A nil
// reg disables metrics.
func NewServicesWithConfig(ctx context.Context, config *classifieds.Config, pool *pgxpool.Pool, reg prometheus.Registerer) (*Services, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	tables := internal.DefaultStorageTables()
	existing, err := tableCollector(pool)
	if err != nil {
		return nil, err
	}
	if missing := missingTables(existing, tables); len(missing) > 0 {
		return nil, fmt.Errorf("required tables are missing in the database: %v", missing)
	}

	var metrics *internal.Metrics
	if reg != nil {
		if metrics, err = internal.NewMetrics(reg); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	svc := &Services{}
	if err := svc.buildBlobStore(ctx, config.Blob); err != nil {
		return nil, err
	}
	if err := svc.buildActorResolver(ctx, config.Session); err != nil {
		return nil, err
	}

	repo := internal.NewPostgresRepository(pool, tables)
	svc.Schemas = internal.NewPostgresSchemaStore(repo, config.Schema.CacheTTL)
	svc.Listings = internal.NewListingManager(repo, svc.Schemas, internal.ListingManagerOptions{
		Blobs:             svc.Blobs,
		Breaker:           internal.NewCircuitBreaker(config.Blob.BreakerThreshold, config.Blob.BreakerCooldown, config.Blob.BreakerCooldown),
		Metrics:           metrics,
		Query:             config.Query,
		DeleteConcurrency: config.Blob.DeleteConcurrency,
	})
	svc.Categories = internal.NewCategoryManager(repo, svc.Schemas, metrics)
	svc.Comments = internal.NewCommentManager(repo, metrics)
	svc.Users = internal.NewUserManager(repo, metrics)

	zap.S().Infow("services ready",
		"blobProvider", config.Blob.Provider,
		"sessionProvider", config.Session.Provider,
		"schemaCacheTTL", config.Schema.CacheTTL,
	)
	return svc, nil
}

func (s *Services) buildBlobStore(ctx context.Context, cfg classifieds.BlobConfig) error {
	switch cfg.Provider {
	case "s3":
		store, err := internal.NewS3BlobStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create s3 blob store: %w", err)
		}
		s.Blobs = store
	default:
		store, err := internal.NewLocalBlobStore(cfg)
		if err != nil {
			return fmt.Errorf("create local blob store: %w", err)
		}
		s.Blobs = store
		s.LocalBlobs = store
	}
	return nil
}

func (s *Services) buildActorResolver(ctx context.Context, cfg classifieds.SessionConfig) error {
	switch cfg.Provider {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("connect session store: %w", err)
		}
		s.Actors = internal.NewRedisActorResolver(client, cfg.KeyPrefix, cfg.TTL)
		s.closers = append(s.closers, client.Close)
	default:
		resolver, err := internal.NewJWTActorResolver(cfg.JWTSecret)
		if err != nil {
			return fmt.Errorf("create jwt resolver: %w", err)
		}
		s.Actors = resolver
	}
	return nil
}
