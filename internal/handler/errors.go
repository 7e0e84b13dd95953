package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"vilatur/internal/httputil"
	"vilatur/internal/model"
	"vilatur/internal/transport/http/middleware"
)

// writeServiceError maps a service error to the JSON error envelope.
// Storage failures are logged with their cause and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		verr *model.ValidationError
		cerr *model.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		httputil.WriteValidation(w, verr.Fields)
	case errors.As(err, &cerr):
		httputil.WriteConflictFields(w, cerr.Fields)
	case errors.Is(err, model.ErrListingNotFound):
		httputil.WriteNotFound(w, "Serviço não encontrado")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "Usuário não encontrado")
	case errors.Is(err, model.ErrImageNotFound):
		httputil.WriteNotFound(w, "Imagem não encontrada")
	case errors.Is(err, model.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, "E-mail, usuário ou senha inválidos")
	default:
		log.Error("request failed",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		httputil.WriteInternalError(w, "Erro interno, tente novamente")
	}
}

// requireUserID reads the authenticated user id placed by the auth middleware.
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return 0, false
	}
	return userID, true
}

// listingIDParam parses the {id} URL parameter. Malformed ids are reported as not found.
func listingIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteNotFound(w, "Serviço não encontrado")
		return 0, false
	}
	return id, true
}
