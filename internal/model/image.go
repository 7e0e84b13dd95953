package model

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxImageBytes = 3 * 1024 * 1024
	ImageMaxWidth        = 1024
	ImageMaxHeight       = 1024
	ImageJPEGQuality     = 85
	ImageFolder          = "images"
	ImageExt             = ".jpg"
	ImageCacheControl    = "public, max-age=31536000" // 1 year
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
}

// Upload field name and messages shown next to it.
const (
	FieldPhotoFile = "photoFile"

	MsgImageRequired    = "Precisa de uma imagem"
	MsgImageUnsupported = "Formato de imagem não suportado"
)

// ImageTooLargeMessage is the size error for the configured limit, e.g.
// "Imagem tem que ser menor que 3MB" for 3*1024*1024.
func ImageTooLargeMessage(maxBytes int64) string {
	const kb, mb = 1024, 1024 * 1024
	var size string
	switch {
	case maxBytes >= mb && maxBytes%mb == 0:
		size = fmt.Sprintf("%dMB", maxBytes/mb)
	case maxBytes >= mb:
		size = fmt.Sprintf("%.1fMB", float64(maxBytes)/mb)
	case maxBytes >= kb && maxBytes%kb == 0:
		size = fmt.Sprintf("%dKB", maxBytes/kb)
	default:
		size = fmt.Sprintf("%d bytes", maxBytes)
	}
	return "Imagem tem que ser menor que " + size
}

// Image is a stored photo. Exactly one listing or user references it.
type Image struct {
	ID          string    `db:"id" json:"id"`
	ContentType string    `db:"content_type" json:"content_type"`
	ObjectKey   string    `db:"object_key" json:"-"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// URL is the public path serving the image bytes.
func (i *Image) URL() string {
	return "/images/" + i.ID
}

// ImageUpload is an incoming photo before validation.
type ImageUpload struct {
	Data        []byte
	ContentType string // declared by the client, may be empty
	Filename    string
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// ErrImageNotFound is returned when no image row has the requested id.
var ErrImageNotFound = errors.New("image not found")
