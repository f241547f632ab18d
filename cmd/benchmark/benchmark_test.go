package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmarkDefinitionsAreValid(t *testing.T) {
	for _, d := range benchmarkDefinitions() {
		assert.NoError(t, d.Check(), d.Key)
	}
}

func TestRandomListingPassesValidation(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	categoryID := uuid.New()
	for range 200 {
		req := randomListing(r, categoryID)
		assert.Equal(t, categoryID, req.CategoryID)
		_, err := classifieds.ValidateAttributes(benchmarkDefinitions(), req.Attributes)
		require.NoError(t, err, req.Title)
	}
}

func TestRandomListingIsDeterministic(t *testing.T) {
	categoryID := uuid.New()
	a := randomListing(rand.New(rand.NewSource(7)), categoryID)
	b := randomListing(rand.New(rand.NewSource(7)), categoryID)
	assert.Equal(t, a, b)
}

func TestSummarize(t *testing.T) {
	durations := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		durations = append(durations, time.Duration(i)*time.Millisecond)
	}

	stats := summarize(durations)

	assert.Equal(t, 100, stats.count)
	assert.Equal(t, 5050*time.Millisecond, stats.total)
	assert.Equal(t, 50*time.Millisecond, stats.p50)
	assert.Equal(t, 95*time.Millisecond, stats.p95)
	assert.Equal(t, 100*time.Millisecond, stats.max)
	assert.Equal(t, 100*time.Millisecond, durations[0], "input left unsorted")
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, latencyStats{}, summarize(nil))
}

type pageListings struct {
	classifieds.ListingManager
	page *classifieds.ListingQueryResult
}

func (p pageListings) QueryListings(context.Context, *classifieds.ListingQuery) (*classifieds.ListingQueryResult, error) {
	return p.page, nil
}

func TestRunQueriesRejectsNonMatchingListing(t *testing.T) {
	categoryID := uuid.New()
	query := queryScenarios(categoryID)[1].query
	inRange := &classifieds.ListingView{Listing: classifieds.Listing{ID: uuid.New()}, Attributes: map[string]any{"year": int64(2014)}}
	tooOld := &classifieds.ListingView{Listing: classifieds.Listing{ID: uuid.New()}, Attributes: map[string]any{"year": int64(2001)}}

	stats, matched, err := runQueries(context.Background(), pageListings{page: &classifieds.ListingQueryResult{
		Data:         []*classifieds.ListingView{inRange},
		TotalRecords: 1,
	}}, benchmarkDefinitions(), query, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)
	assert.Equal(t, 3, stats.count)

	_, _, err = runQueries(context.Background(), pageListings{page: &classifieds.ListingQueryResult{
		Data:         []*classifieds.ListingView{inRange, tooOld},
		TotalRecords: 2,
	}}, benchmarkDefinitions(), query, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), tooOld.ID.String())
}
