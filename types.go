package classifieds

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttributeType is the declared type of a category attribute.
type AttributeType string

const (
	AttributeTypeString  AttributeType = "STRING"
	AttributeTypeInt     AttributeType = "INT"
	AttributeTypeFloat   AttributeType = "FLOAT"
	AttributeTypeBoolean AttributeType = "BOOLEAN"
	AttributeTypeDate    AttributeType = "DATE"
	AttributeTypeEnum    AttributeType = "ENUM"
	AttributeTypeJSON    AttributeType = "JSON"
)

// Valid reports whether t is one of the known attribute types.
func (t AttributeType) Valid() bool {
	switch t {
	case AttributeTypeString, AttributeTypeInt, AttributeTypeFloat, AttributeTypeBoolean,
		AttributeTypeDate, AttributeTypeEnum, AttributeTypeJSON:
		return true
	}
	return false
}

// Numeric reports whether values of this type carry numeric bounds.
func (t AttributeType) Numeric() bool {
	return t == AttributeTypeInt || t == AttributeTypeFloat
}

// Role is the authorization role of an actor.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// Elevated reports whether the role may bypass ownership checks.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleModerator
}

// Actor is the authenticated caller of a mutation.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// CanModify reports whether the actor may mutate a resource owned by authorID.
func (a Actor) CanModify(authorID uuid.UUID) bool {
	return a.UserID == authorID || a.Role.Elevated()
}

// User is a marketplace account. Registration and credentials live elsewhere.
type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserProfilePatch carries the self-service fields of an account. A nil
// PhoneNumber is left untouched; an empty one clears it.
type UserProfilePatch struct {
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=32"`
}

// Author is the contact card of a listing's author shown on read views.
type Author struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
}

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AttributeDefinition describes one typed, optionally constrained field a
// listing in the owning category may carry.
type AttributeDefinition struct {
	ID         uuid.UUID       `json:"id"`
	CategoryID uuid.UUID       `json:"category_id"`
	Key        string          `json:"key" validate:"required,max=64"`
	Name       string          `json:"name" validate:"required"`
	Type       AttributeType   `json:"type" validate:"required"`
	Required   bool            `json:"required"`
	Options    json.RawMessage `json:"options,omitempty"`
	MinNumber  *float64        `json:"min_number,omitempty"`
	MaxNumber  *float64        `json:"max_number,omitempty"`
	MinDate    *time.Time      `json:"min_date,omitempty"`
	MaxDate    *time.Time      `json:"max_date,omitempty"`
	Ordinal    int             `json:"ordinal"`
}

// Listing is the stored scalar part of a classified ad.
type Listing struct {
	ID          uuid.UUID `json:"id"`
	AuthorID    uuid.UUID `json:"author_id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AttributeValue is one stored value of a listing attribute.
type AttributeValue struct {
	ListingID   uuid.UUID `json:"listing_id"`
	AttributeID uuid.UUID `json:"attribute_id"`
	Value       Value     `json:"value"`
}

// Image belongs to a listing; the lowest position is the primary image.
type Image struct {
	ID        int64     `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	URL       string    `json:"url"`
	Position  int       `json:"position"`
}

type Comment struct {
	ID        uuid.UUID  `json:"id"`
	ListingID uuid.UUID  `json:"listing_id"`
	AuthorID  uuid.UUID  `json:"author_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Replies   []*Comment `json:"replies,omitempty"`
}

// CreateListingRequest is the input of listing creation.
type CreateListingRequest struct {
	CategoryID  uuid.UUID  `json:"category_id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description,omitempty"`
	Price       float64    `json:"price" validate:"gte=0"`
	Attributes  Attributes `json:"attributes,omitempty"`
	Images      []string   `json:"images,omitempty" validate:"omitempty,dive,required"`
}

// ListingPatch carries the fields of a listing update. Nil fields are left
// untouched; a non-nil Attributes or Images replaces the whole collection.
// An empty Description clears the stored one.
type ListingPatch struct {
	Title       *string     `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string     `json:"description,omitempty"`
	Price       *float64    `json:"price,omitempty" validate:"omitempty,gte=0"`
	Attributes  *Attributes `json:"attributes,omitempty"`
	Images      *[]string   `json:"images,omitempty"`
}

// ListingView is the flattened read model of a listing.
type ListingView struct {
	Listing
	CategoryName string         `json:"category_name,omitempty"`
	Author       *Author        `json:"author,omitempty"`
	Attributes   map[string]any `json:"attributes"`
	Images       []Image        `json:"images,omitempty"`
	PrimaryImage *string        `json:"primary_image,omitempty"`
}

// ListingQuery selects listings for the read endpoints.
type ListingQuery struct {
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	AuthorID     *uuid.UUID `json:"author_id,omitempty"`
	Filters      FilterSet  `json:"filters,omitempty"`
	Page         int        `json:"page" validate:"min=1"`
	ItemsPerPage int        `json:"items_per_page" validate:"min=1,max=100"`
}

// ListingQueryResult is a page of projected listings.
type ListingQueryResult struct {
	Data         []*ListingView `json:"data"`
	TotalRecords int            `json:"total_records"`
	TotalPages   int            `json:"total_pages"`
	CurrentPage  int            `json:"current_page"`
	ItemsPerPage int            `json:"items_per_page"`
	HasNext      bool           `json:"has_next"`
	HasPrevious  bool           `json:"has_previous"`
}

// CategoryInput creates or renames a category.
type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
}

// CategoryDetail is a category together with its attribute schema.
type CategoryDetail struct {
	Category
	Attributes []AttributeDefinition `json:"attributes"`
}
