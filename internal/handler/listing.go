package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vilatur/internal/httputil"
	"vilatur/internal/model"
	"vilatur/internal/search"
	"vilatur/internal/service"
)

// maxFormBytes bounds url-encoded and multipart text form bodies.
const maxFormBytes = 64 << 10

type ListingHandler struct {
	listingService *service.ListingService
	log            *zap.Logger
}

func NewListingHandler(listingService *service.ListingService, log *zap.Logger) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		log:            log.Named("listing_handler"),
	}
}

// BrowseResponse is the directory page payload.
type BrowseResponse struct {
	Listings []model.Listing `json:"listings"`
	Query    string          `json:"query"`
	Outcome  search.Outcome  `json:"outcome"`
	Count    int             `json:"count"`
}

// Browse lists every listing, filtered by ?keywords=.
// GET /
func (h *ListingHandler) Browse(w http.ResponseWriter, r *http.Request) {
	result, err := h.listingService.Browse(r.Context(), r.URL.Query().Get("keywords"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	listings := result.Listings
	if listings == nil {
		listings = []model.Listing{}
	}
	httputil.WriteJSON(w, http.StatusOK, BrowseResponse{
		Listings: listings,
		Query:    result.Query,
		Outcome:  result.Outcome,
		Count:    len(listings),
	})
}

// ListServices returns the {id, title} summaries of a user's listings.
// GET /users/{username}/services
func (h *ListingHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.listingService.ListByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"listings": summaries})
}

// GetService returns one listing of a user.
// GET /users/{username}/services/{id}
func (h *ListingHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := listingIDParam(w, r)
	if !ok {
		return
	}

	listing, err := h.listingService.Get(r.Context(), chi.URLParam(r, "username"), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listing)
}

// NoteEditor creates a listing, or updates it when the form carries an id.
// POST /resources/note-editor
func (h *ListingHandler) NoteEditor(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}

	form := model.ListingForm{
		ID:        r.PostFormValue("id"),
		Title:     r.PostFormValue("title"),
		Content:   r.PostFormValue("content"),
		Phone:     r.PostFormValue("phone"),
		Site:      r.PostFormValue("site"),
		Open:      r.PostFormValue("open"),
		Close:     r.PostFormValue("close"),
		Delivery:  r.PostFormValue("delivery"),
		Latitude:  r.PostFormValue("latitude"),
		Longitude: r.PostFormValue("longitude"),
		Keywords:  r.PostFormValue("keywords"),
	}

	res, err := h.listingService.Submit(r.Context(), userID, form)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	w.Header().Set("Location", res.RedirectTo)
	httputil.WriteJSON(w, status, res)
}

// DeleteNote removes the listing named by the noteId form field.
// POST /resources/delete-note
func (h *ListingHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}

	noteID, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("noteId")), 10, 64)
	if err != nil || noteID <= 0 {
		httputil.WriteValidation(w, map[string]string{"noteId": "Identificador inválido"})
		return
	}

	res, err := h.listingService.Delete(r.Context(), userID, noteID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	w.Header().Set("Location", res.RedirectTo)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// SaveKeywords overwrites only the keywords of the current user's listing.
// POST /users/{username}/services/{id}/keywords
func (h *ListingHandler) SaveKeywords(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := listingIDParam(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}

	listing, err := h.listingService.SaveKeywords(r.Context(), userID, id, r.PostFormValue("keywords"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listing)
}

// parseForm reads a url-encoded or multipart body.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid form data")
		return false
	}
	return true
}
