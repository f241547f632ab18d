package internal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var (
	testCategoryID = uuid.MustParse("01900000-0000-7000-8000-000000000001")
	testAuthorID   = uuid.MustParse("01900000-0000-7000-8000-0000000000a1")
	testStrangerID = uuid.MustParse("01900000-0000-7000-8000-0000000000a2")
	testListingID  = uuid.MustParse("01900000-0000-7000-8000-000000000101")
	yearAttrID     = uuid.MustParse("01900000-0000-7000-8000-000000000201")
	makeAttrID     = uuid.MustParse("01900000-0000-7000-8000-000000000202")
	fuelAttrID     = uuid.MustParse("01900000-0000-7000-8000-000000000203")

	testNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	authorActor    = classifieds.Actor{UserID: testAuthorID, Role: classifieds.RoleUser}
	strangerActor  = classifieds.Actor{UserID: testStrangerID, Role: classifieds.RoleUser}
	moderatorActor = classifieds.Actor{UserID: testStrangerID, Role: classifieds.RoleModerator}
)

func newMockRepository(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	mock.MatchExpectationsInOrder(true)

	repo := NewPostgresRepository(mock, DefaultStorageTables())
	repo.withClock(func() time.Time { return testNow })
	return mock, repo
}

func sequentialIDs(ids ...uuid.UUID) func() uuid.UUID {
	next := 0
	return func() uuid.UUID {
		id := ids[next%len(ids)]
		next++
		return id
	}
}

func ptr[T any](v T) *T { return &v }

// carDefinitions is the schema of a small vehicles category.
func carDefinitions() []classifieds.AttributeDefinition {
	return []classifieds.AttributeDefinition{
		{
			ID: yearAttrID, CategoryID: testCategoryID, Key: "year", Name: "Year",
			Type: classifieds.AttributeTypeInt, Required: true,
			MinNumber: ptr(1950.0), MaxNumber: ptr(2030.0), Ordinal: 1,
		},
		{
			ID: makeAttrID, CategoryID: testCategoryID, Key: "make", Name: "Make",
			Type: classifieds.AttributeTypeString, Required: true, Ordinal: 2,
		},
		{
			ID: fuelAttrID, CategoryID: testCategoryID, Key: "fuel_type", Name: "Fuel type",
			Type: classifieds.AttributeTypeEnum, Options: json.RawMessage(`["petrol","diesel","electric"]`), Ordinal: 3,
		},
	}
}

func testListing() classifieds.Listing {
	return classifieds.Listing{
		ID:         testListingID,
		AuthorID:   testAuthorID,
		CategoryID: testCategoryID,
		Title:      "Audi A4 Avant",
		Price:      9500,
		CreatedAt:  testNow.Add(-time.Hour),
		UpdatedAt:  testNow.Add(-time.Hour),
	}
}

func definitionRows(defs []classifieds.AttributeDefinition) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "category_id", "key", "name", "type", "required", "options",
		"min_number", "max_number", "min_date", "max_date", "ordinal",
	})
	for _, d := range defs {
		rows.AddRow(d.ID, d.CategoryID, d.Key, d.Name, string(d.Type), d.Required, []byte(d.Options),
			d.MinNumber, d.MaxNumber, d.MinDate, d.MaxDate, d.Ordinal)
	}
	return rows
}

func listingRows(listings ...classifieds.Listing) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "author_id", "category_id", "title", "description", "price", "created_at", "updated_at"})
	for _, l := range listings {
		rows.AddRow(l.ID, l.AuthorID, l.CategoryID, l.Title, l.Description, l.Price, l.CreatedAt, l.UpdatedAt)
	}
	return rows
}

func attributeValueRows(values ...attributeRow) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"listing_id", "attribute_id", "value_text", "value_numeric", "value_bool", "value_date", "value_json"})
	for _, v := range values {
		rows.AddRow(v.ListingID, v.AttributeID, v.ValueText, v.ValueNumeric, v.ValueBool, v.ValueDate, v.ValueJSON)
	}
	return rows
}

func imageRows(images ...classifieds.Image) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "listing_id", "url", "position"})
	for _, img := range images {
		rows.AddRow(img.ID, img.ListingID, img.URL, img.Position)
	}
	return rows
}

func expectCategoryExists(mock pgxmock.PgxPoolIface, id uuid.UUID, exists bool) {
	mock.ExpectQuery(`^SELECT EXISTS \(SELECT 1 FROM "categories" WHERE id = \$1\)$`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectListingExists(mock pgxmock.PgxPoolIface, id uuid.UUID, exists bool) {
	mock.ExpectQuery(`^SELECT EXISTS \(SELECT 1 FROM "listings" WHERE id = \$1\)$`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectDefinitions(mock pgxmock.PgxPoolIface, categoryID uuid.UUID, defs []classifieds.AttributeDefinition) {
	mock.ExpectQuery(`FROM "attribute_definitions" WHERE category_id = \$1 ORDER BY ordinal, key$`).
		WithArgs(categoryID).
		WillReturnRows(definitionRows(defs))
}

func expectListingForUpdate(mock pgxmock.PgxPoolIface, id uuid.UUID, listings ...classifieds.Listing) {
	mock.ExpectQuery(`FROM "listings" WHERE id = \$1 FOR UPDATE$`).
		WithArgs(id).
		WillReturnRows(listingRows(listings...))
}

// expectViewLoad registers the reads that project one listing.
func expectViewLoad(mock pgxmock.PgxPoolIface, listing classifieds.Listing, categoryName string, values []attributeRow, images []classifieds.Image) {
	mock.ExpectQuery(`FROM "listing_attribute_values" WHERE listing_id = ANY\(\$1\)$`).
		WithArgs([]uuid.UUID{listing.ID}).
		WillReturnRows(attributeValueRows(values...))
	mock.ExpectQuery(`FROM "images" WHERE listing_id = ANY\(\$1\)`).
		WithArgs([]uuid.UUID{listing.ID}).
		WillReturnRows(imageRows(images...))
	mock.ExpectQuery(`^SELECT id, name FROM "categories" WHERE id = ANY\(\$1\)$`).
		WithArgs([]uuid.UUID{listing.CategoryID}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(listing.CategoryID, categoryName))
	expectAuthors(mock, []uuid.UUID{listing.AuthorID}, testAuthor())
}

func testAuthor() classifieds.Author {
	return classifieds.Author{ID: testAuthorID, Name: "Jonas Jonaitis", Email: "jonas@example.com", PhoneNumber: ptr("+37060000000")}
}

func expectAuthors(mock pgxmock.PgxPoolIface, ids []uuid.UUID, authors ...classifieds.Author) {
	rows := pgxmock.NewRows([]string{"id", "name", "email", "phone_number"})
	for _, a := range authors {
		rows.AddRow(a.ID, a.Name, a.Email, a.PhoneNumber)
	}
	mock.ExpectQuery(`^SELECT id, name, email, phone_number FROM "users" WHERE id = ANY\(\$1\)$`).
		WithArgs(ids).
		WillReturnRows(rows)
}

// expectReferencedImages registers the check for urls still used by other
// image rows; inUse lists the ones the store reports.
func expectReferencedImages(mock pgxmock.PgxPoolIface, urls []string, inUse ...string) {
	rows := pgxmock.NewRows([]string{"url"})
	for _, url := range inUse {
		rows.AddRow(url)
	}
	mock.ExpectQuery(`^SELECT DISTINCT url FROM "images" WHERE url = ANY\(\$1\)$`).
		WithArgs(urls).
		WillReturnRows(rows)
}

// recordingBlobStore remembers deleted URLs and fails the ones listed in
// failures.
type recordingBlobStore struct {
	mu       sync.Mutex
	deleted  []string
	failures map[string]bool
}

func (s *recordingBlobStore) Store(_ context.Context, name, _ string, _ []byte) (string, error) {
	return "https://cdn.example.com/" + name, nil
}

func (s *recordingBlobStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	if s.failures[url] {
		return errors.New("blob store unavailable")
	}
	return nil
}

func (s *recordingBlobStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}
