package internal

import (
	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"github.com/samber/lo"
)

// projectListing flattens a listing into its read view. Every definition
// key is present in Attributes, nil when no value is stored. Stored values
// whose definition no longer exists are left out.
func projectListing(
	listing classifieds.Listing,
	categoryName string,
	definitions []classifieds.AttributeDefinition,
	rows []attributeRow,
	images []classifieds.Image,
) *classifieds.ListingView {
	values := attributeValuesByKey(definitions, rows)

	attributes := make(map[string]any, len(definitions))
	for _, def := range definitions {
		if v, ok := values[def.Key]; ok {
			attributes[def.Key] = v.Interface()
			continue
		}
		attributes[def.Key] = nil
	}

	view := &classifieds.ListingView{
		Listing:      listing,
		CategoryName: categoryName,
		Attributes:   attributes,
		Images:       images,
	}
	if primary, ok := primaryImage(images); ok {
		view.PrimaryImage = &primary.URL
	}
	return view
}

// attributeValuesByKey reads stored rows as typed values keyed by
// definition key.
func attributeValuesByKey(definitions []classifieds.AttributeDefinition, rows []attributeRow) map[string]classifieds.Value {
	byID := lo.KeyBy(definitions, func(d classifieds.AttributeDefinition) uuid.UUID { return d.ID })
	values := make(map[string]classifieds.Value, len(rows))
	for _, row := range rows {
		def, ok := byID[row.AttributeID]
		if !ok {
			continue
		}
		if v, ok := fromAttributeRow(def, row); ok {
			values[def.Key] = v
		}
	}
	return values
}

// primaryImage is the image with the lowest position; ties go to the
// earliest stored image.
func primaryImage(images []classifieds.Image) (classifieds.Image, bool) {
	if len(images) == 0 {
		return classifieds.Image{}, false
	}
	return lo.MinBy(images, func(a, b classifieds.Image) bool {
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	}), true
}
