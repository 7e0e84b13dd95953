package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the image cleanup stream
const (
	EventImageOrphaned = "image_orphaned"
)

// Stream names
const (
	StreamImageCleanup = "stream:image_cleanup"
)

// Consumer group name for cleanup workers
const (
	ConsumerGroupImageCleanup = "image_cleanup_workers"
)

// Owner kinds recorded on image events.
const (
	OwnerListing = "listing"
	OwnerUser    = "user"
)

// ImageEvent describes a replaced or removed image whose row or blob still has to be deleted.
type ImageEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	// ImageID is empty when only the blob remains.
	ImageID   string `json:"image_id,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`

	OwnerKind string `json:"owner_kind,omitempty"`
	OwnerID   int64  `json:"owner_id,omitempty"`

	// Attempt counts deliveries; the first publish is attempt 1.
	Attempt int `json:"attempt"`

	// NotBefore is the earliest time (unix milliseconds) a retry may run. Zero means now.
	NotBefore int64 `json:"not_before,omitempty"`
}

// Retry backoff: the delay after attempt n is RetryBaseDelay * 2^(n-1), capped at RetryMaxDelay.
const (
	RetryBaseDelay = 30 * time.Second
	RetryMaxDelay  = 10 * time.Minute
)

// RetryDelay returns how long to wait after the given failed attempt.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := RetryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= RetryMaxDelay {
			return RetryMaxDelay
		}
	}
	return delay
}

// NewImageOrphanedEvent creates the first-attempt event for an image left behind by a replacement or delete.
func NewImageOrphanedEvent(imageID, objectKey, ownerKind string, ownerID int64) ImageEvent {
	return ImageEvent{
		Type:      EventImageOrphaned,
		Timestamp: time.Now().Unix(),
		ImageID:   imageID,
		ObjectKey: objectKey,
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
		Attempt:   1,
	}
}

// Retry returns a copy of e for the next delivery attempt, due after the backoff delay.
func (e ImageEvent) Retry() ImageEvent {
	return e.RetryAt(time.Now())
}

// RetryAt is Retry with an explicit failure time.
func (e ImageEvent) RetryAt(now time.Time) ImageEvent {
	next := e
	next.Attempt++
	next.Timestamp = now.Unix()
	next.NotBefore = now.Add(RetryDelay(e.Attempt)).UnixMilli()
	return next
}

// Wait returns how long until the event is due, or 0 if it already is.
func (e ImageEvent) Wait(now time.Time) time.Duration {
	if e.NotBefore == 0 {
		return 0
	}
	if d := time.UnixMilli(e.NotBefore).Sub(now); d > 0 {
		return d
	}
	return 0
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e ImageEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseImageEvent parses an ImageEvent from Redis stream message values.
func ParseImageEvent(values map[string]interface{}) (ImageEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ImageEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ImageEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ImageEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
