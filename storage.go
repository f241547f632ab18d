package classifieds

import (
	"context"

	"github.com/google/uuid"
)

// ListingManager coordinates listing mutations and reads.
type ListingManager interface {
	// Mutations. Each runs in a single transaction.
	CreateListing(ctx context.Context, actor Actor, req *CreateListingRequest) (*ListingView, error)
	UpdateListing(ctx context.Context, actor Actor, listingID uuid.UUID, patch *ListingPatch) (*ListingView, error)
	DeleteListing(ctx context.Context, actor Actor, listingID uuid.UUID) error

	// Reads
	GetListing(ctx context.Context, listingID uuid.UUID) (*ListingView, error)
	QueryListings(ctx context.Context, query *ListingQuery) (*ListingQueryResult, error)
}

// CategoryManager administers categories and their attribute schemas.
type CategoryManager interface {
	CreateCategory(ctx context.Context, actor Actor, input *CategoryInput) (*Category, error)
	UpdateCategory(ctx context.Context, actor Actor, categoryID uuid.UUID, input *CategoryInput) (*Category, error)
	DeleteCategory(ctx context.Context, actor Actor, categoryID uuid.UUID) error
	GetCategory(ctx context.Context, categoryID uuid.UUID) (*CategoryDetail, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ReplaceAttributeDefinitions(ctx context.Context, actor Actor, categoryID uuid.UUID, definitions []AttributeDefinition) (*CategoryDetail, error)
}

// CommentManager manages listing comments and their replies.
type CommentManager interface {
	CreateComment(ctx context.Context, actor Actor, listingID uuid.UUID, content string, parentID *uuid.UUID) (*Comment, error)
	UpdateComment(ctx context.Context, actor Actor, commentID uuid.UUID, content string) (*Comment, error)
	DeleteComment(ctx context.Context, actor Actor, commentID uuid.UUID) error
	ListComments(ctx context.Context, listingID uuid.UUID) ([]*Comment, error)
}

// UserManager administers marketplace accounts. Accounts are created by
// the identity provider; this side lists, edits and removes them.
type UserManager interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, actor Actor) ([]User, error)
	UpdateProfile(ctx context.Context, actor Actor, patch *UserProfilePatch) (*User, error)
	DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) error
}

// BlobStore keeps uploaded listing images.
type BlobStore interface {
	// Store saves data under name and returns the URL clients use to fetch it.
	Store(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Delete removes the object a URL returned by Store points at. Deleting
	// an object that no longer exists succeeds.
	Delete(ctx context.Context, url string) error
}

// ActorResolver turns a bearer credential into the acting user.
type ActorResolver interface {
	Resolve(ctx context.Context, token string) (Actor, error)
}
