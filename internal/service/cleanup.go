package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vilatur/internal/model"
	"vilatur/internal/observability/metrics"
	"vilatur/internal/queue"
	"vilatur/internal/repository"
	"vilatur/internal/storage"
)

// ImageJanitor removes images that are no longer referenced by a listing or user.
// A failed removal never fails the caller; it is retried through the cleanup stream.
type ImageJanitor struct {
	images    repository.ImageRepository
	blobs     storage.BlobStore
	publisher queue.Publisher
	log       *zap.Logger
}

func NewImageJanitor(images repository.ImageRepository, blobs storage.BlobStore, publisher queue.Publisher, log *zap.Logger) *ImageJanitor {
	return &ImageJanitor{
		images:    images,
		blobs:     blobs,
		publisher: publisher,
		log:       log.Named("image_janitor"),
	}
}

// RemoveImage deletes the blob, then the image row. An empty objectKey is resolved
// from the row. Rows or blobs that are already gone count as removed.
func (j *ImageJanitor) RemoveImage(ctx context.Context, imageID, objectKey string) error {
	if objectKey == "" {
		if imageID == "" {
			return nil
		}
		img, err := j.images.GetByID(ctx, imageID)
		if errors.Is(err, model.ErrImageNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve image %s: %w", imageID, err)
		}
		objectKey = img.ObjectKey
	}

	if err := j.blobs.Delete(ctx, objectKey); err != nil {
		return fmt.Errorf("delete blob %s: %w", objectKey, err)
	}

	if imageID == "" {
		return nil
	}
	if _, err := j.images.Delete(ctx, imageID); err != nil && !errors.Is(err, model.ErrImageNotFound) {
		return fmt.Errorf("delete image row %s: %w", imageID, err)
	}
	return nil
}

// Discard tries to remove an orphaned image inline. On failure it logs a warning
// and enqueues an image_orphaned event for the cleanup workers.
func (j *ImageJanitor) Discard(ctx context.Context, imageID, objectKey, ownerKind string, ownerID int64) {
	if imageID == "" && objectKey == "" {
		return
	}

	err := j.RemoveImage(ctx, imageID, objectKey)
	if err == nil {
		metrics.ObserveImageCleanup("inline", "ok")
		return
	}

	j.log.Warn("image cleanup failed, scheduling retry",
		zap.String("image_id", imageID),
		zap.String("object_key", objectKey),
		zap.String("owner_kind", ownerKind),
		zap.Int64("owner_id", ownerID),
		zap.Error(err))
	metrics.ObserveImageCleanup("inline", "failed")

	event := queue.NewImageOrphanedEvent(imageID, objectKey, ownerKind, ownerID)
	if _, err := j.publisher.Publish(context.WithoutCancel(ctx), queue.StreamImageCleanup, event); err != nil {
		j.log.Warn("enqueue image cleanup failed",
			zap.String("image_id", imageID),
			zap.String("object_key", objectKey),
			zap.Error(err))
		metrics.ObserveImageCleanup("inline", "enqueue_failed")
		return
	}
	metrics.ObserveImageCleanup("inline", "enqueued")
}
