package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"vilatur/internal/httputil"
	"vilatur/internal/model"
	"vilatur/internal/service"
	"vilatur/internal/session"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
	sessions    *session.Store
	log         *zap.Logger
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(userService *service.UserService, authService *service.AuthService, sessions *session.Store, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		sessions:    sessions,
		log:         log.Named("auth_handler"),
	}
}

// Join registers a new account and starts its session.
// POST /join
func (h *AuthHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	resp, err := h.startSession(w, r, user)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// Login authenticates by e-mail or username.
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.VerifyCredentials(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	resp, err := h.startSession(w, r, user)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// startSession sets the session cookie and issues a bearer token for API clients.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) (*model.LoginResponse, error) {
	if err := h.sessions.Login(w, r, user.ID); err != nil {
		return nil, err
	}

	token, expiresIn, err := h.authService.IssueAccessToken(user.ID)
	if err != nil {
		return nil, err
	}

	h.log.Info("session started", zap.Int64("user_id", user.ID))
	return &model.LoginResponse{User: user, AccessToken: token, ExpiresIn: expiresIn}, nil
}

// Logout expires the session cookie. Bearer tokens simply run out.
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current user's info
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
