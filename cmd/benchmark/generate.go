package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"github.com/samber/lo"
)

var (
	benchMakes = []string{"Audi", "BMW", "Opel", "Toyota", "Volkswagen", "Volvo"}
	benchFuels = []string{"benzinas", "dyzelinas", "elektra", "hibridas"}
)

func benchmarkDefinitions() []classifieds.AttributeDefinition {
	fuels, _ := json.Marshal(benchFuels)
	return []classifieds.AttributeDefinition{
		{Key: "year", Name: "Metai", Type: classifieds.AttributeTypeInt, Required: true, MinNumber: lo.ToPtr(1950.0), MaxNumber: lo.ToPtr(2030.0), Ordinal: 1},
		{Key: "make", Name: "Markė", Type: classifieds.AttributeTypeString, Required: true, Ordinal: 2},
		{Key: "fuel_type", Name: "Kuro tipas", Type: classifieds.AttributeTypeEnum, Options: fuels, Ordinal: 3},
		{Key: "mileage", Name: "Rida", Type: classifieds.AttributeTypeInt, MinNumber: lo.ToPtr(0.0), Ordinal: 4},
		{Key: "engine_size", Name: "Variklio tūris", Type: classifieds.AttributeTypeFloat, Ordinal: 5},
		{Key: "damaged", Name: "Daužta", Type: classifieds.AttributeTypeBoolean, Ordinal: 6},
		{Key: "first_registration", Name: "Pirma registracija", Type: classifieds.AttributeTypeDate, Ordinal: 7},
	}
}

func randomListing(r *rand.Rand, categoryID uuid.UUID) *classifieds.CreateListingRequest {
	year := 1995 + r.Intn(31)
	brand := benchMakes[r.Intn(len(benchMakes))]
	req := &classifieds.CreateListingRequest{
		CategoryID: categoryID,
		Title:      fmt.Sprintf("%s %d", brand, year),
		Price:      float64(500 + r.Intn(60000)),
	}
	req.Attributes.Set("year", year)
	req.Attributes.Set("make", brand)
	if r.Intn(4) > 0 {
		req.Attributes.Set("fuel_type", benchFuels[r.Intn(len(benchFuels))])
	}
	req.Attributes.Set("mileage", r.Intn(400000))
	req.Attributes.Set("engine_size", float64(10+r.Intn(40))/10)
	req.Attributes.Set("damaged", r.Intn(10) == 0)
	registered := time.Date(year, time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC)
	req.Attributes.Set("first_registration", registered.Format(time.DateOnly))
	return req
}

type queryScenario struct {
	name  string
	query classifieds.ListingQuery
}

func queryScenarios(categoryID uuid.UUID) []queryScenario {
	return []queryScenario{
		{name: "category", query: classifieds.ListingQuery{CategoryID: &categoryID}},
		{name: "year range", query: classifieds.ListingQuery{CategoryID: &categoryID, Filters: classifieds.FilterSet{
			{Key: "year", Operator: classifieds.FilterGte, Value: "2010"},
			{Key: "year", Operator: classifieds.FilterLte, Value: "2018"},
		}}},
		{name: "fuel alternatives", query: classifieds.ListingQuery{CategoryID: &categoryID, Filters: classifieds.FilterSet{
			{Key: "fuel_type", Operator: classifieds.FilterEq, Value: "elektra"},
			{Key: "fuel_type", Operator: classifieds.FilterEq, Value: "hibridas"},
		}}},
		{name: "combined", query: classifieds.ListingQuery{CategoryID: &categoryID, ItemsPerPage: 50, Filters: classifieds.FilterSet{
			{Key: "make", Operator: classifieds.FilterEq, Value: "Audi"},
			{Key: "mileage", Operator: classifieds.FilterLte, Value: "150000"},
			{Key: "damaged", Operator: classifieds.FilterEq, Value: "false"},
		}}},
	}
}
