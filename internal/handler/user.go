package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vilatur/internal/httputil"
	"vilatur/internal/model"
	"vilatur/internal/service"
	"vilatur/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
	log         *zap.Logger
}

func NewUserHandler(userService *service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log.Named("user_handler"),
	}
}

type profileResponse struct {
	*model.PublicProfile
	// IsSelf is set when the viewer owns the profile and may edit it.
	IsSelf bool `json:"is_self"`
}

// GetProfile returns the public profile and listing summaries of a user.
// GET /users/{username}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.PublicProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, profileResponse{
		PublicProfile: profile,
		IsSelf:        ok && viewerID == profile.User.ID,
	})
}

// UpdateProfile edits the current user's name, username, e-mail or password.
// POST /settings/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var upd model.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, upd)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
