package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"vilatur/internal/httputil"
	"vilatur/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

// SessionReader resolves the user id stored in a browser session.
type SessionReader interface {
	UserID(r *http.Request) (int64, bool)
}

var (
	errNoCredentials = errors.New("no credentials")
	errTokenExpired  = errors.New("token expired")
	errTokenInvalid  = errors.New("token invalid")
)

// AuthMiddleware requires an authenticated user.
// Checks the Authorization header first (API clients), then the session cookie (browsers).
func AuthMiddleware(jwtSecret string, sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(r, jwtSecret, sessions)
			switch {
			case errors.Is(err, errNoCredentials):
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			case errors.Is(err, errTokenExpired):
				httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
				return
			case err != nil:
				httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuthMiddleware sets the user id when valid credentials are present
// and lets anonymous requests through unchanged.
func OptionalAuthMiddleware(jwtSecret string, sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := authenticate(r, jwtSecret, sessions); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, jwtSecret string, sessions SessionReader) (int64, error) {
	// 1. Try Authorization header first
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return 0, errTokenInvalid
		}
		return parseToken(parts[1], jwtSecret)
	}

	// 2. Fall back to the session cookie
	if sessions != nil {
		if userID, ok := sessions.UserID(r); ok {
			return userID, nil
		}
	}
	return 0, errNoCredentials
}

func parseToken(tokenString, jwtSecret string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, errTokenExpired
		}
		return 0, errTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errTokenInvalid
	}

	// JSON numbers decode as float64
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return 0, errTokenInvalid
	}
	return int64(userIDFloat), nil
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or 0 and false if not found
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
