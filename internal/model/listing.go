package model

import (
	"errors"
	"time"
)

// Delivery flag values as persisted.
const (
	DeliveryYes = "Sim"
	DeliveryNo  = "Não"
)

// Listing is a business or service entry in the directory.
// OwnerID is set at creation and never changes.
type Listing struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Phone     string    `db:"phone" json:"phone"`
	Site      string    `db:"site" json:"site"`
	Open      *string   `db:"open_time" json:"open"`
	Close     *string   `db:"close_time" json:"close"`
	Delivery  string    `db:"delivery" json:"delivery"`
	Latitude  string    `db:"latitude" json:"latitude"`
	Longitude string    `db:"longitude" json:"longitude"`
	Keywords  *string   `db:"keywords" json:"keywords"`
	ImageID   *string   `db:"image_id" json:"image_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ListingSummary is the {id, title} pair used for owner sidebars.
type ListingSummary struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ListingFields are the validated, transformed values written on create.
// Empty optional strings are stored as NULL.
type ListingFields struct {
	Title     string
	Content   string
	Phone     string
	Site      string
	Open      string
	Close     string
	Delivery  string
	Latitude  string
	Longitude string
	Keywords  string
}

// ListingPatch is a partial update. Only non-nil fields are written.
// A pointer to "" clears an optional column.
type ListingPatch struct {
	Title     *string
	Content   *string
	Phone     *string
	Site      *string
	Open      *string
	Close     *string
	Delivery  *string
	Latitude  *string
	Longitude *string
	Keywords  *string
}

// PatchFromFields builds a patch that overwrites every editable field.
func PatchFromFields(f ListingFields) ListingPatch {
	return ListingPatch{
		Title:     &f.Title,
		Content:   &f.Content,
		Phone:     &f.Phone,
		Site:      &f.Site,
		Open:      &f.Open,
		Close:     &f.Close,
		Delivery:  &f.Delivery,
		Latitude:  &f.Latitude,
		Longitude: &f.Longitude,
		Keywords:  &f.Keywords,
	}
}

// IsEmpty reports whether the patch carries no field.
func (p ListingPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Phone == nil && p.Site == nil &&
		p.Open == nil && p.Close == nil && p.Delivery == nil &&
		p.Latitude == nil && p.Longitude == nil && p.Keywords == nil
}

// ListingForm is the raw note-editor submission, parsed from form values.
type ListingForm struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Phone     string `json:"phone"`
	Site      string `json:"site"`
	Open      string `json:"open"`
	Close     string `json:"close"`
	Delivery  string `json:"delivery"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Keywords  string `json:"keywords"`
}

// SubmitResult is returned by a successful note-editor submission.
type SubmitResult struct {
	Listing    *Listing `json:"listing"`
	Created    bool     `json:"created"`
	RedirectTo string   `json:"redirect_to"`
}

// DeleteResult describes what a conditional delete removed.
type DeleteResult struct {
	Deleted        int64
	ImageObjectKey *string
}

// ErrListingNotFound covers both a missing listing and one owned by someone else.
var ErrListingNotFound = errors.New("listing not found")

// DeleteListingResult is returned by a successful delete.
type DeleteListingResult struct {
	Deleted    int64  `json:"deleted"`
	RedirectTo string `json:"redirect_to"`
}
