package internal

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxCommitsOnSuccess(t *testing.T) {
	mock, repo := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM "comments" WHERE id = \$1 OR parent_id = \$1$`).
		WithArgs(testListingID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := repo.withTx(context.Background(), func(tx pgx.Tx) error {
		return repo.deleteComment(context.Background(), tx, testListingID)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	mock, repo := newMockRepository(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.withTx(context.Background(), func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxReportsBeginFailure(t *testing.T) {
	mock, repo := newMockRepository(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := repo.withTx(context.Background(), func(pgx.Tx) error {
		t.Fatal("fn must not run without a transaction")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
}

func TestInsertAttributeValuesBatches(t *testing.T) {
	mock, repo := newMockRepository(t)

	rows := make([]attributeRow, 501)
	for i := range rows {
		rows[i] = attributeRow{ListingID: testListingID, AttributeID: uuid.New(), ValueNumeric: ptr(float64(i))}
	}
	_, firstArgs := buildAttributeValuesClause(rows[:500])
	_, secondArgs := buildAttributeValuesClause(rows[500:])

	mock.ExpectExec(`^INSERT INTO "listing_attribute_values"`).
		WithArgs(firstArgs...).
		WillReturnResult(pgxmock.NewResult("INSERT", 500))
	mock.ExpectExec(`^` + regexp.QuoteMeta(`INSERT INTO "listing_attribute_values" (listing_id, attribute_id, value_text, value_numeric, value_bool, value_date, value_json) VALUES ($1, $2, $3, $4, $5, $6, $7)`) + `$`).
		WithArgs(secondArgs...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.insertAttributeValues(context.Background(), mock, rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAttributeValuesSkipsEmpty(t *testing.T) {
	mock, repo := newMockRepository(t)
	require.NoError(t, repo.insertAttributeValues(context.Background(), mock, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildAttributeValuesClauseOrdersColumns(t *testing.T) {
	row := attributeRow{ListingID: testListingID, AttributeID: makeAttrID, ValueText: ptr("Audi")}
	clause, args := buildAttributeValuesClause([]attributeRow{row})

	assert.Equal(t, "($1, $2, $3, $4, $5, $6, $7)", clause)
	assert.Equal(t, []any{testListingID, makeAttrID, ptr("Audi"), (*float64)(nil), (*bool)(nil), (*time.Time)(nil), []byte(nil)}, args)
}

func TestFetchAttributeValuesGroupsByListing(t *testing.T) {
	mock, repo := newMockRepository(t)
	other := uuid.MustParse("01900000-0000-7000-8000-000000000102")

	mock.ExpectQuery(`FROM "listing_attribute_values" WHERE listing_id = ANY\(\$1\)$`).
		WithArgs([]uuid.UUID{testListingID, other}).
		WillReturnRows(attributeValueRows(
			attributeRow{ListingID: testListingID, AttributeID: yearAttrID, ValueNumeric: ptr(2018.0)},
			attributeRow{ListingID: other, AttributeID: makeAttrID, ValueText: ptr("Volvo")},
			attributeRow{ListingID: testListingID, AttributeID: makeAttrID, ValueText: ptr("Audi")},
		))

	values, err := repo.fetchAttributeValues(context.Background(), mock, []uuid.UUID{testListingID, other})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, values[testListingID], 2)
	require.Len(t, values[other], 1)
	assert.Equal(t, "Volvo", *values[other][0].ValueText)
	assert.Equal(t, 2018.0, *values[testListingID][0].ValueNumeric)
}

func TestFindAttributeDefinitionsScansOptionalColumns(t *testing.T) {
	mock, repo := newMockRepository(t)
	defs := carDefinitions()
	expectDefinitions(mock, testCategoryID, defs)

	loaded, err := repo.findAttributeDefinitions(context.Background(), mock, testCategoryID)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, defs, loaded)
}

func TestReplaceAttributeDefinitionsKeepsExistingIDs(t *testing.T) {
	mock, repo := newMockRepository(t)
	existingYearID := uuid.MustParse("01900000-0000-7000-8000-000000000299")
	defs := carDefinitions()[:2]

	mock.ExpectExec(`^DELETE FROM "listing_attribute_values" WHERE attribute_id IN`).
		WithArgs(testCategoryID, []string{"year", "make"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec(`^DELETE FROM "attribute_definitions" WHERE category_id = \$1 AND NOT \(key = ANY\(\$2\)\)$`).
		WithArgs(testCategoryID, []string{"year", "make"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(`^INSERT INTO "attribute_definitions" .* ON CONFLICT \(category_id, key\) DO UPDATE`).
		WithArgs(defs[0].ID, testCategoryID, "year", "Year", "INT", true, nil, defs[0].MinNumber, defs[0].MaxNumber, (*time.Time)(nil), (*time.Time)(nil), 1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(existingYearID))
	mock.ExpectQuery(`^INSERT INTO "attribute_definitions"`).
		WithArgs(defs[1].ID, testCategoryID, "make", "Make", "STRING", true, nil, (*float64)(nil), (*float64)(nil), (*time.Time)(nil), (*time.Time)(nil), 2).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(defs[1].ID))

	require.NoError(t, repo.replaceAttributeDefinitions(context.Background(), mock, testCategoryID, defs))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, existingYearID, defs[0].ID)
	assert.Equal(t, makeAttrID, defs[1].ID)
}

func TestUpdateListingFieldsWritesOnlyPresentFields(t *testing.T) {
	mock, repo := newMockRepository(t)
	desc := "Winter tyres included"

	mock.ExpectExec(`^`+regexp.QuoteMeta(`UPDATE "listings" SET updated_at = $2, description = $3, price = $4 WHERE id = $1`)+`$`).
		WithArgs(testListingID, testNow, desc, 8900.0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.updateListingFields(context.Background(), mock, testListingID, listingFieldUpdate{
		Description: &desc,
		Price:       ptr(8900.0),
		UpdatedAt:   testNow,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateListingFieldsEmptyDescriptionWritesNull(t *testing.T) {
	mock, repo := newMockRepository(t)

	mock.ExpectExec(`^`+regexp.QuoteMeta(`UPDATE "listings" SET updated_at = $2, description = $3 WHERE id = $1`)+`$`).
		WithArgs(testListingID, testNow, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.updateListingFields(context.Background(), mock, testListingID, listingFieldUpdate{
		Description: ptr(""),
		UpdatedAt:   testNow,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindListingByIDReturnsNilWhenMissing(t *testing.T) {
	mock, repo := newMockRepository(t)
	mock.ExpectQuery(`FROM "listings" WHERE id = \$1$`).
		WithArgs(testListingID).
		WillReturnRows(listingRows())

	listing, err := repo.findListingByID(context.Background(), mock, testListingID, false)
	require.NoError(t, err)
	assert.Nil(t, listing)
}

func TestListCommentsScansParent(t *testing.T) {
	mock, repo := newMockRepository(t)
	parentID := uuid.MustParse("01900000-0000-7000-8000-000000000301")
	replyID := uuid.MustParse("01900000-0000-7000-8000-000000000302")

	mock.ExpectQuery(`^SELECT id, listing_id, author_id, parent_id, content, created_at, updated_at FROM "comments" WHERE listing_id = \$1 ORDER BY created_at, id$`).
		WithArgs(testListingID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "listing_id", "author_id", "parent_id", "content", "created_at", "updated_at"}).
			AddRow(parentID, testListingID, testAuthorID, (*uuid.UUID)(nil), "Is it still available?", testNow, testNow).
			AddRow(replyID, testListingID, testStrangerID, &parentID, "Yes", testNow, testNow))

	comments, err := repo.listComments(context.Background(), mock, testListingID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Nil(t, comments[0].ParentID)
	require.NotNil(t, comments[1].ParentID)
	assert.Equal(t, parentID, *comments[1].ParentID)
}

func TestFindCategoryNamesSkipsEmptyInput(t *testing.T) {
	mock, repo := newMockRepository(t)
	names, err := repo.findCategoryNames(context.Background(), mock, nil)
	require.NoError(t, err)
	assert.Empty(t, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomTablesAreQuoted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tables := DefaultStorageTables()
	tables.Categories = "market.categories"
	repo := NewPostgresRepository(mock, tables)

	mock.ExpectQuery(`^SELECT EXISTS \(SELECT 1 FROM "market"\."categories" WHERE id = \$1\)$`).
		WithArgs(testCategoryID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.categoryExists(context.Background(), mock, testCategoryID)
	require.NoError(t, err)
	assert.False(t, exists)
}
