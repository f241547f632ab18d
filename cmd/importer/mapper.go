package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
)

// Reserved CSV columns. Every other column names an attribute key.
const (
	columnTitle       = "title"
	columnDescription = "description"
	columnPrice       = "price"
	columnImages      = "images"
)

// MappingError describes a CSV cell that could not be mapped.
type MappingError struct {
	CSVColumn string
	RawValue  string
	Reason    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("column %q: value %q - %s", e.CSVColumn, e.RawValue, e.Reason)
}

// ListingMapper turns CSV records into listing requests for one category.
// Cells are typed by the category's attribute definitions; empty cells are
// omitted so required attributes surface as validation errors.
type ListingMapper struct {
	categoryID  uuid.UUID
	definitions map[string]classifieds.AttributeDefinition
}

func NewListingMapper(categoryID uuid.UUID, definitions []classifieds.AttributeDefinition) *ListingMapper {
	byKey := make(map[string]classifieds.AttributeDefinition, len(definitions))
	for _, d := range definitions {
		byKey[d.Key] = d
	}
	return &ListingMapper{categoryID: categoryID, definitions: byKey}
}

// MapRecord builds a request from one record. header fixes the attribute
// order.
func (m *ListingMapper) MapRecord(header []string, record map[string]string) (*classifieds.CreateListingRequest, error) {
	req := &classifieds.CreateListingRequest{
		CategoryID: m.categoryID,
		Title:      strings.TrimSpace(record[columnTitle]),
	}

	if desc := strings.TrimSpace(record[columnDescription]); desc != "" {
		req.Description = &desc
	}

	if raw := strings.TrimSpace(record[columnPrice]); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &MappingError{CSVColumn: columnPrice, RawValue: raw, Reason: "not a number"}
		}
		req.Price = price
	}

	if raw := strings.TrimSpace(record[columnImages]); raw != "" {
		for _, url := range strings.Split(raw, ";") {
			if url = strings.TrimSpace(url); url != "" {
				req.Images = append(req.Images, url)
			}
		}
	}

	for _, column := range header {
		switch column {
		case columnTitle, columnDescription, columnPrice, columnImages:
			continue
		}
		raw := strings.TrimSpace(record[column])
		if raw == "" {
			continue
		}
		value, err := m.cellValue(column, raw)
		if err != nil {
			return nil, err
		}
		req.Attributes.Set(column, value)
	}
	return req, nil
}

// cellValue converts raw to the form attribute validation expects for the
// column's type. Unknown columns pass through as text.
func (m *ListingMapper) cellValue(column, raw string) (any, error) {
	def, ok := m.definitions[column]
	if !ok {
		return raw, nil
	}
	switch def.Type {
	case classifieds.AttributeTypeInt, classifieds.AttributeTypeFloat:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return nil, &MappingError{CSVColumn: column, RawValue: raw, Reason: "not a number"}
		}
		return json.Number(raw), nil
	case classifieds.AttributeTypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &MappingError{CSVColumn: column, RawValue: raw, Reason: "not a boolean"}
		}
		return b, nil
	case classifieds.AttributeTypeJSON:
		if !json.Valid([]byte(raw)) {
			return nil, &MappingError{CSVColumn: column, RawValue: raw, Reason: "not valid JSON"}
		}
		return json.RawMessage(raw), nil
	}
	return raw, nil
}
