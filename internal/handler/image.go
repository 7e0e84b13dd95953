package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vilatur/internal/httputil"
	"vilatur/internal/model"
	"vilatur/internal/service"
)

// multipartOverhead allows for boundaries and other form fields around the photo.
const multipartOverhead = 1 << 20

type ImageHandler struct {
	imageService *service.ImageService
	log          *zap.Logger
}

func NewImageHandler(imageService *service.ImageService, log *zap.Logger) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		log:          log.Named("image_handler"),
	}
}

// photoResponse tells the client where the new photo is served.
type photoResponse struct {
	Image *model.Image `json:"image"`
	URL   string       `json:"url"`
}

// UploadListingPhoto replaces a listing's photo from the photoFile multipart field.
// POST /users/{username}/services/{id}/photo
func (h *ImageHandler) UploadListingPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	listingID, ok := listingIDParam(w, r)
	if !ok {
		return
	}

	upload, err := h.readPhoto(w, r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	img, err := h.imageService.AttachListingImage(r.Context(), userID, listingID, upload)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, photoResponse{Image: img, URL: img.URL()})
}

// UploadUserPhoto replaces the current user's profile photo.
// POST /settings/profile/photo
func (h *ImageHandler) UploadUserPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	upload, err := h.readPhoto(w, r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	img, err := h.imageService.AttachUserImage(r.Context(), userID, upload)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, photoResponse{Image: img, URL: img.URL()})
}

// Serve streams the bytes of an image.
// GET /images/{id}
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	img, body, err := h.imageService.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", model.ImageCacheControl)
	if img.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn("image stream interrupted", zap.String("image_id", img.ID), zap.Error(err))
	}
}

// readPhoto loads the photoFile part into memory. Size and presence problems are
// reported as field errors so the client can show them next to the input.
func (h *ImageHandler) readPhoto(w http.ResponseWriter, r *http.Request) (model.ImageUpload, error) {
	maxBytes := h.imageService.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.ImageUpload{}, model.NewFieldError(model.FieldPhotoFile, model.ImageTooLargeMessage(maxBytes))
		}
		return model.ImageUpload{}, model.NewFieldError(model.FieldPhotoFile, model.MsgImageRequired)
	}

	file, header, err := r.FormFile(model.FieldPhotoFile)
	if err != nil {
		return model.ImageUpload{}, model.NewFieldError(model.FieldPhotoFile, model.MsgImageRequired)
	}
	defer file.Close()

	if header.Size > maxBytes {
		return model.ImageUpload{}, model.NewFieldError(model.FieldPhotoFile, model.ImageTooLargeMessage(maxBytes))
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return model.ImageUpload{}, err
	}

	return model.ImageUpload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}
