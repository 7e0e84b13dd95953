package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vilatur/internal/httputil"
	"vilatur/internal/model"
)

const secret = "middleware-test-secret"

type fakeSessions map[string]int64

func (f fakeSessions) UserID(r *http.Request) (int64, bool) {
	c, err := r.Cookie("sid")
	if err != nil {
		return 0, false
	}
	id, ok := f[c.Value]
	return id, ok
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validToken(t *testing.T, userID int64) string {
	return sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
}

// echoUser writes the user id found in the context, or -1.
func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			id = -1
		}
		_ = json.NewEncoder(w).Encode(id)
	})
}

func TestAuthMiddleware(t *testing.T) {
	sessions := fakeSessions{"abc": 7}

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantCode   string
		wantUser   int64
	}{
		{name: "no credentials", wantStatus: http.StatusUnauthorized, wantCode: httputil.ErrCodeUnauthorized},
		{name: "bearer token", header: "Bearer " + validToken(t, 3), wantStatus: http.StatusOK, wantUser: 3},
		{name: "lowercase scheme", header: "bearer " + validToken(t, 3), wantStatus: http.StatusOK, wantUser: 3},
		{name: "session cookie", cookie: "abc", wantStatus: http.StatusOK, wantUser: 7},
		{name: "header wins over cookie", header: "Bearer " + validToken(t, 3), cookie: "abc", wantStatus: http.StatusOK, wantUser: 3},
		{name: "malformed header", header: "Token xyz", wantStatus: http.StatusUnauthorized, wantCode: model.CodeTokenInvalid},
		{name: "unknown cookie", cookie: "nope", wantStatus: http.StatusUnauthorized, wantCode: httputil.ErrCodeUnauthorized},
		{
			name: "expired token",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
				"user_id": 3, "exp": time.Now().Add(-time.Minute).Unix(),
			}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.CodeTokenExpired,
		},
		{
			name: "wrong secret",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
				"user_id": 3, "exp": time.Now().Add(time.Minute).Unix(),
			}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.CodeTokenInvalid,
		},
		{
			name: "missing user_id",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
				"exp": time.Now().Add(time.Minute).Unix(),
			}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.CodeTokenInvalid,
		},
		{
			name:       "none algorithm",
			header:     "Bearer " + sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"user_id": 3}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.CodeTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// ARRANGE
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "sid", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			// ACT
			AuthMiddleware(secret, sessions)(echoUser()).ServeHTTP(rec, req)

			// ASSERT
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				var body httputil.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body.Error.Code)
				return
			}
			var got int64
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantUser, got)
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	mw := OptionalAuthMiddleware(secret, nil)

	t.Run("anonymous passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "-1\n", rec.Body.String())
	})

	t.Run("invalid token is ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/x", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		mw(echoUser()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "-1\n", rec.Body.String())
	})

	t.Run("valid token sets user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/x", nil)
		req.Header.Set("Authorization", "Bearer "+validToken(t, 9))
		rec := httptest.NewRecorder()
		mw(echoUser()).ServeHTTP(rec, req)
		assert.Equal(t, "9\n", rec.Body.String())
	})
}
