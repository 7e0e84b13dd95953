package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"vilatur/internal/cache"
	"vilatur/internal/model"
	"vilatur/internal/queue"
	"vilatur/internal/repository"
	"vilatur/internal/storage"
)

// ImageService attaches photos to listings and users and serves them back.
type ImageService struct {
	db       *sqlx.DB
	images   repository.ImageRepository
	listings repository.ListingRepository
	users    repository.UserRepository
	blobs    storage.BlobStore
	janitor  *ImageJanitor
	cache    cache.DirectoryCache
	maxBytes int64
	log      *zap.Logger
}

func NewImageService(
	db *sqlx.DB,
	images repository.ImageRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	blobs storage.BlobStore,
	janitor *ImageJanitor,
	directory cache.DirectoryCache,
	maxBytes int64,
	log *zap.Logger,
) *ImageService {
	if maxBytes <= 0 {
		maxBytes = model.DefaultMaxImageBytes
	}
	return &ImageService{
		db:       db,
		images:   images,
		listings: listings,
		users:    users,
		blobs:    blobs,
		janitor:  janitor,
		cache:    directory,
		maxBytes: maxBytes,
		log:      log.Named("image_service"),
	}
}

// MaxBytes is the largest accepted upload.
func (s *ImageService) MaxBytes() int64 {
	return s.maxBytes
}

// AttachListingImage replaces the photo of a listing owned by ownerID.
// A listing the owner does not have yields model.ErrListingNotFound.
func (s *ImageService) AttachListingImage(ctx context.Context, ownerID, listingID int64, upload model.ImageUpload) (*model.Image, error) {
	img, err := s.attach(ctx, upload, queue.OwnerListing, listingID, func(tx *sqlx.Tx, imageID string) (*string, error) {
		return s.listings.SetImage(ctx, tx, listingID, ownerID, imageID)
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("directory cache invalidation failed", zap.Error(err))
	}
	return img, nil
}

// AttachUserImage replaces the profile photo of userID.
func (s *ImageService) AttachUserImage(ctx context.Context, userID int64, upload model.ImageUpload) (*model.Image, error) {
	return s.attach(ctx, upload, queue.OwnerUser, userID, func(tx *sqlx.Tx, imageID string) (*string, error) {
		return s.users.SetImage(ctx, tx, userID, imageID)
	})
}

// Open returns the image metadata and a reader over its bytes. The caller closes the reader.
func (s *ImageService) Open(ctx context.Context, imageID string) (*model.Image, io.ReadCloser, error) {
	if _, err := uuid.Parse(imageID); err != nil {
		return nil, nil, model.ErrImageNotFound
	}

	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.blobs.Get(ctx, img.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, model.ErrImageNotFound
		}
		return nil, nil, &model.StorageError{Op: "get image blob", Err: err}
	}
	return img, body, nil
}

// attach runs validate, normalize, upload, then a transaction that inserts the
// image row and repoints the owner. The previous image is discarded after commit.
func (s *ImageService) attach(
	ctx context.Context,
	upload model.ImageUpload,
	ownerKind string,
	ownerID int64,
	repoint func(tx *sqlx.Tx, imageID string) (*string, error),
) (*model.Image, error) {
	if err := s.validate(upload); err != nil {
		return nil, err
	}

	jpegBytes, err := normalizeToJPEG(upload.Data)
	if err != nil {
		s.log.Debug("image decode failed", zap.String("filename", upload.Filename), zap.Error(err))
		return nil, model.NewFieldError(model.FieldPhotoFile, model.MsgImageUnsupported)
	}

	id := uuid.NewString()
	img := &model.Image{
		ID:          id,
		ContentType: model.ContentTypeJPEG,
		ObjectKey:   fmt.Sprintf("%s/%s%s", model.ImageFolder, id, model.ImageExt),
		SizeBytes:   int64(len(jpegBytes)),
	}

	if err := s.blobs.Put(ctx, img.ObjectKey, jpegBytes, img.ContentType); err != nil {
		return nil, &model.StorageError{Op: "put image blob", Err: err}
	}

	previous, err := s.commitImage(ctx, img, repoint)
	if err != nil {
		// the row never committed, so only the fresh blob is left behind
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), img.ObjectKey); delErr != nil {
			s.log.Warn("failed to remove uncommitted image blob",
				zap.String("object_key", img.ObjectKey),
				zap.Error(delErr))
		}
		return nil, err
	}

	if previous != nil && *previous != "" && *previous != img.ID {
		s.janitor.Discard(ctx, *previous, "", ownerKind, ownerID)
	}

	s.log.Info("image attached",
		zap.String("image_id", img.ID),
		zap.String("owner_kind", ownerKind),
		zap.Int64("owner_id", ownerID))
	return img, nil
}

func (s *ImageService) commitImage(ctx context.Context, img *model.Image, repoint func(tx *sqlx.Tx, imageID string) (*string, error)) (*string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &model.StorageError{Op: "begin image transaction", Err: err}
	}
	defer tx.Rollback()

	if err := s.images.Create(ctx, tx, img); err != nil {
		return nil, err
	}

	previous, err := repoint(tx, img.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &model.StorageError{Op: "commit image transaction", Err: err}
	}
	return previous, nil
}

func (s *ImageService) validate(upload model.ImageUpload) error {
	switch {
	case len(upload.Data) == 0:
		return model.NewFieldError(model.FieldPhotoFile, model.MsgImageRequired)
	case int64(len(upload.Data)) > s.maxBytes:
		return model.NewFieldError(model.FieldPhotoFile, model.ImageTooLargeMessage(s.maxBytes))
	}

	// the declared content type is ignored; the bytes decide
	if !model.IsAllowedImageType(mimetype.Detect(upload.Data).String()) {
		return model.NewFieldError(model.FieldPhotoFile, model.MsgImageUnsupported)
	}
	return nil
}

// normalizeToJPEG fits the image within the maximum dimensions and re-encodes it as JPEG.
func normalizeToJPEG(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > model.ImageMaxWidth || bounds.Dy() > model.ImageMaxHeight {
		src = imaging.Fit(src, model.ImageMaxWidth, model.ImageMaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(model.ImageJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
