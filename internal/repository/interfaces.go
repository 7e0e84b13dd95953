package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"vilatur/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// SetImage repoints the user's image and returns the previous image id.
	SetImage(ctx context.Context, tx *sqlx.Tx, userID int64, imageID string) (*string, error)
}

// ListingRepository scopes every read and write of a single listing to its owner.
// A listing owned by someone else is reported as model.ErrListingNotFound.
type ListingRepository interface {
	Create(ctx context.Context, ownerID int64, fields model.ListingFields) (*model.Listing, error)
	GetByID(ctx context.Context, id, ownerID int64) (*model.Listing, error)
	ListSummaries(ctx context.Context, ownerID int64) ([]model.ListingSummary, error)
	ListAll(ctx context.Context) ([]model.Listing, error)
	Update(ctx context.Context, id, ownerID int64, patch model.ListingPatch) (*model.Listing, error)
	// Delete removes the listing and its image row in one transaction.
	Delete(ctx context.Context, id, ownerID int64) (*model.DeleteResult, error)
	// SetImage repoints the listing's image and returns the previous image id.
	SetImage(ctx context.Context, tx *sqlx.Tx, id, ownerID int64, imageID string) (*string, error)
}

type ImageRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, image *model.Image) error
	GetByID(ctx context.Context, id string) (*model.Image, error)
	// Delete removes the image row and returns its object key.
	Delete(ctx context.Context, id string) (string, error)
}
