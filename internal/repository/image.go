package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vilatur/internal/model"
)

type imageRepository struct {
	db *sqlx.DB
}

func NewImageRepository(db *sqlx.DB) ImageRepository {
	return &imageRepository{db: db}
}

// Create inserts the image row inside tx and fills CreatedAt.
func (r *imageRepository) Create(ctx context.Context, tx *sqlx.Tx, img *model.Image) error {
	query := `
		INSERT INTO images (id, content_type, object_key, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	if err := tx.GetContext(ctx, &img.CreatedAt, query, img.ID, img.ContentType, img.ObjectKey, img.SizeBytes); err != nil {
		return storageErr("insert image", err)
	}
	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id string) (*model.Image, error) {
	query := `SELECT id, content_type, object_key, size_bytes, created_at FROM images WHERE id = $1`

	var img model.Image
	err := r.db.GetContext(ctx, &img, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrImageNotFound
		}
		return nil, storageErr("get image", err)
	}
	return &img, nil
}

func (r *imageRepository) Delete(ctx context.Context, id string) (string, error) {
	var objectKey string
	err := r.db.GetContext(ctx, &objectKey, `DELETE FROM images WHERE id = $1 RETURNING object_key`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrImageNotFound
		}
		return "", storageErr("delete image", err)
	}
	return objectKey, nil
}
