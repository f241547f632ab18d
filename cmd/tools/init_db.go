package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/classifieds/internal"
	"go.uber.org/zap"
)

// dbOptions are the connection flags shared by every command.
type dbOptions struct {
	host        string
	port        int
	database    string
	user        string
	password    string
	sslMode     string
	tableSchema string
}

func registerDBFlags(flags *flag.FlagSet) *dbOptions {
	opts := &dbOptions{}
	flags.StringVar(&opts.host, "db-host", getenvDefault("DB_HOST", "localhost"), "database host")
	flags.IntVar(&opts.port, "db-port", getenvDefaultInt("DB_PORT", 5432), "database port")
	flags.StringVar(&opts.database, "db-name", getenvDefault("DB_NAME", "classifieds"), "database name")
	flags.StringVar(&opts.user, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flags.StringVar(&opts.password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flags.StringVar(&opts.sslMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", "disable"), "database sslmode")
	flags.StringVar(&opts.tableSchema, "table-schema", getenvDefault("TABLE_SCHEMA", ""), "postgres schema holding the tables (optional)")
	return opts
}

func newFlagSet(name, usage string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Printf("Usage: classifieds-tools %s %s\n", name, usage)
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}
	return flags
}

// parseFlags reports done when -h was given.
func parseFlags(flags *flag.FlagSet, args []string) (done bool, err error) {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return true, err
	}
	return false, nil
}

func runInitDB(args []string) error {
	flags := newFlagSet("init-db", "[options]")
	opts := registerDBFlags(flags)
	if done, err := parseFlags(flags, args); done {
		return err
	}
	return initDatabase(context.Background(), opts)
}

func initDatabase(ctx context.Context, opts *dbOptions) error {
	pool, err := pgxpool.New(ctx, buildConnString(opts))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := withTx(ctx, conn, func(tx pgx.Tx) error {
		return ensureTables(ctx, tx, opts.tableSchema)
	}); err != nil {
		return err
	}

	fmt.Println("Database initialized successfully.")
	return nil
}

func ensureTables(ctx context.Context, tx pgx.Tx, tableSchema string) error {
	if tableSchema != "" {
		stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{tableSchema}.Sanitize())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema %s: %w", tableSchema, err)
		}
	}
	for _, stmt := range internal.SchemaStatements(storageTables(tableSchema)) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ddl %q: %w", firstLine(stmt), err)
		}
		zap.S().Debugw("applied ddl", "statement", firstLine(stmt))
	}
	return nil
}

// storageTables qualifies the default table names with tableSchema.
func storageTables(tableSchema string) internal.StorageTables {
	tables := internal.DefaultStorageTables()
	if tableSchema == "" {
		return tables
	}
	qualify := func(name string) string { return tableSchema + "." + name }
	return internal.StorageTables{
		Users:                qualify(tables.Users),
		Categories:           qualify(tables.Categories),
		AttributeDefinitions: qualify(tables.AttributeDefinitions),
		Listings:             qualify(tables.Listings),
		AttributeValues:      qualify(tables.AttributeValues),
		Images:               qualify(tables.Images),
		Comments:             qualify(tables.Comments),
	}
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return strings.TrimSpace(line)
}

func buildConnString(opts *dbOptions) string {
	hostPort := fmt.Sprintf("%s:%d", opts.host, opts.port)

	var userInfo *url.Userinfo
	if opts.password != "" {
		userInfo = url.UserPassword(opts.user, opts.password)
	} else {
		userInfo = url.User(opts.user)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   hostPort,
		Path:   "/" + opts.database,
	}

	q := url.Values{}
	if opts.sslMode != "" {
		q.Set("sslmode", opts.sslMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func withTx(ctx context.Context, conn *pgxpool.Conn, fn func(pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvDefaultInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
