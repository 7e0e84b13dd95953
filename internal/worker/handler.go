package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vilatur/internal/observability/metrics"
	"vilatur/internal/queue"
)

// DefaultMaxAttempts bounds how many times an orphaned image is retried.
const DefaultMaxAttempts = 5

// ImageRemover deletes an image row (if imageID is set) and its blob.
// Implementations must treat already-missing rows and blobs as success.
type ImageRemover interface {
	RemoveImage(ctx context.Context, imageID, objectKey string) error
}

// Handler processes image cleanup events from the queue.
type Handler struct {
	remover     ImageRemover
	publisher   queue.Publisher
	maxAttempts int
	log         *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHandler creates a new event handler. Failed events are re-published
// until maxAttempts is reached.
func NewHandler(remover ImageRemover, publisher queue.Publisher, maxAttempts int, log *zap.Logger) *Handler {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Handler{
		remover:     remover,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		log:         log.Named("cleanup_handler"),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ImageEvent) error {
	startTime := time.Now()

	var err error
	switch event.Type {
	case queue.EventImageOrphaned:
		err = h.handleImageOrphaned(ctx, event)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		return err
	}

	h.log.Debug("event handled",
		zap.String("type", event.Type),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// handleImageOrphaned holds a retried event until its NotBefore time, so the
// worker running it is blocked for at most queue.RetryMaxDelay.
func (h *Handler) handleImageOrphaned(ctx context.Context, event queue.ImageEvent) error {
	if wait := event.Wait(h.now()); wait > 0 {
		h.log.Debug("waiting for retry backoff",
			zap.String("object_key", event.ObjectKey),
			zap.Int("attempt", event.Attempt),
			zap.Duration("wait", wait))
		if err := h.sleep(ctx, wait); err != nil {
			return err
		}
	}

	err := h.remover.RemoveImage(ctx, event.ImageID, event.ObjectKey)
	if err == nil {
		metrics.ObserveImageCleanup("worker", "ok")
		h.log.Info("orphaned image removed",
			zap.String("image_id", event.ImageID),
			zap.String("object_key", event.ObjectKey),
			zap.Int("attempt", event.Attempt))
		return nil
	}

	if event.Attempt >= h.maxAttempts {
		metrics.ObserveImageCleanup("worker", "abandoned")
		h.log.Error("giving up on orphaned image",
			zap.String("image_id", event.ImageID),
			zap.String("object_key", event.ObjectKey),
			zap.Int("attempt", event.Attempt),
			zap.Error(err))
		return fmt.Errorf("remove image after %d attempts: %w", event.Attempt, err)
	}

	metrics.ObserveImageCleanup("worker", "retried")
	if _, pubErr := h.publisher.Publish(ctx, queue.StreamImageCleanup, event.RetryAt(h.now())); pubErr != nil {
		h.log.Error("re-enqueue failed", zap.String("image_id", event.ImageID), zap.Error(pubErr))
	}
	return fmt.Errorf("remove image: %w", err)
}
