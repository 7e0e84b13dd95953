package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"vilatur/internal/model"
)

const listingColumns = `id, owner_id, title, content, phone, site, open_time, close_time, delivery,
		latitude, longitude, keywords, image_id, created_at, updated_at`

type listingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) ListingRepository {
	return &listingRepository{db: db}
}

// Create inserts a listing owned by ownerID.
func (r *listingRepository) Create(ctx context.Context, ownerID int64, f model.ListingFields) (*model.Listing, error) {
	query := `
		INSERT INTO listings (owner_id, title, content, phone, site, open_time, close_time, delivery,
		                      latitude, longitude, keywords, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING ` + listingColumns

	var l model.Listing
	err := r.db.GetContext(ctx, &l, query,
		ownerID,
		f.Title,
		f.Content,
		f.Phone,
		f.Site,
		nullIfEmpty(f.Open),
		nullIfEmpty(f.Close),
		f.Delivery,
		f.Latitude,
		f.Longitude,
		nullIfEmpty(f.Keywords),
	)
	if err != nil {
		return nil, storageErr("insert listing", err)
	}

	return &l, nil
}

// GetByID returns the listing only when it belongs to ownerID.
func (r *listingRepository) GetByID(ctx context.Context, id, ownerID int64) (*model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 AND owner_id = $2`

	var l model.Listing
	err := r.db.GetContext(ctx, &l, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrListingNotFound
		}
		return nil, storageErr("get listing", err)
	}

	return &l, nil
}

// ListSummaries returns {id, title} of the owner's listings, most recently updated first.
func (r *listingRepository) ListSummaries(ctx context.Context, ownerID int64) ([]model.ListingSummary, error) {
	query := `
		SELECT id, title, updated_at
		FROM listings
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id DESC
	`

	summaries := []model.ListingSummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, ownerID); err != nil {
		return nil, storageErr("list listing summaries", err)
	}

	return summaries, nil
}

// ListAll returns every listing in creation order.
func (r *listingRepository) ListAll(ctx context.Context) ([]model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY created_at, id`

	listings := []model.Listing{}
	if err := r.db.SelectContext(ctx, &listings, query); err != nil {
		return nil, storageErr("list listings", err)
	}

	return listings, nil
}

// Update writes the supplied fields in a single conditional statement.
// Zero affected rows means the listing is missing or not owned by ownerID.
func (r *listingRepository) Update(ctx context.Context, id, ownerID int64, patch model.ListingPatch) (*model.Listing, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id, ownerID)
	}

	sets, args := patchAssignments(patch)
	args = append(args, id, ownerID)
	query := fmt.Sprintf(`
		UPDATE listings SET %s, updated_at = NOW()
		WHERE id = $%d AND owner_id = $%d
		RETURNING %s`, strings.Join(sets, ", "), len(args)-1, len(args), listingColumns)

	var l model.Listing
	err := r.db.GetContext(ctx, &l, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrListingNotFound
		}
		return nil, storageErr("update listing", err)
	}

	return &l, nil
}

// patchAssignments returns "column = $n" clauses for the non-nil fields of p, in column order.
func patchAssignments(p model.ListingPatch) ([]string, []interface{}) {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Content != nil {
		add("content", *p.Content)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Site != nil {
		add("site", *p.Site)
	}
	if p.Open != nil {
		add("open_time", nullIfEmpty(*p.Open))
	}
	if p.Close != nil {
		add("close_time", nullIfEmpty(*p.Close))
	}
	if p.Delivery != nil {
		add("delivery", *p.Delivery)
	}
	if p.Latitude != nil {
		add("latitude", *p.Latitude)
	}
	if p.Longitude != nil {
		add("longitude", *p.Longitude)
	}
	if p.Keywords != nil {
		add("keywords", nullIfEmpty(*p.Keywords))
	}
	return sets, args
}

// Delete removes the listing if owned by ownerID, together with its image row.
// The returned object key, if any, still has to be removed from blob storage.
func (r *listingRepository) Delete(ctx context.Context, id, ownerID int64) (*model.DeleteResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	var imageID *string
	err = tx.GetContext(ctx, &imageID, `
		DELETE FROM listings
		WHERE id = $1 AND owner_id = $2
		RETURNING image_id
	`, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.DeleteResult{Deleted: 0}, nil
		}
		return nil, storageErr("delete listing", err)
	}

	result := &model.DeleteResult{Deleted: 1}
	if imageID != nil {
		var objectKey string
		err = tx.GetContext(ctx, &objectKey, `DELETE FROM images WHERE id = $1 RETURNING object_key`, *imageID)
		switch {
		case err == nil:
			result.ImageObjectKey = &objectKey
		case errors.Is(err, sql.ErrNoRows):
			// image row already gone
		default:
			return nil, storageErr("delete listing image", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit transaction", err)
	}

	return result, nil
}

// SetImage points the listing at imageID within tx and returns the image it replaced.
func (r *listingRepository) SetImage(ctx context.Context, tx *sqlx.Tx, id, ownerID int64, imageID string) (*string, error) {
	query := `
		UPDATE listings l
		SET image_id = $1, updated_at = NOW()
		FROM (SELECT id, image_id FROM listings WHERE id = $2 AND owner_id = $3 FOR UPDATE) prev
		WHERE l.id = prev.id
		RETURNING prev.image_id
	`

	var previous *string
	err := tx.GetContext(ctx, &previous, query, imageID, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrListingNotFound
		}
		return nil, storageErr("set listing image", err)
	}

	return previous, nil
}
