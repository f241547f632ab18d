package internal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/classifieds"
)

// StorageTables names the tables the repository reads and writes.
type StorageTables struct {
	Users                string
	Categories           string
	AttributeDefinitions string
	Listings             string
	AttributeValues      string
	Images               string
	Comments             string
}

// DefaultStorageTables returns the table names created by init-db.
func DefaultStorageTables() StorageTables {
	return StorageTables{
		Users:                "users",
		Categories:           "categories",
		AttributeDefinitions: "attribute_definitions",
		Listings:             "listings",
		AttributeValues:      "listing_attribute_values",
		Images:               "images",
		Comments:             "comments",
	}
}

// querier is satisfied by both the pool and an open transaction, so every
// repository operation can run standalone or inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type dbPool interface {
	querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// attributeRow is one stored attribute value. Exactly one value column is
// set, chosen by the definition type.
type attributeRow struct {
	ListingID    uuid.UUID
	AttributeID  uuid.UUID
	ValueText    *string
	ValueNumeric *float64
	ValueBool    *bool
	ValueDate    *time.Time
	ValueJSON    []byte
}

// listingFieldUpdate carries the scalar fields present in a patch.
type listingFieldUpdate struct {
	Title       *string
	Description *string
	Price       *float64
	UpdatedAt   time.Time
}

// listingSearch is the storage-level form of a listing query.
type listingSearch struct {
	CategoryID *uuid.UUID
	AuthorID   *uuid.UUID
	Filters    classifieds.CompiledFilters
	Limit      int
	Offset     int
}
