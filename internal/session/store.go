// Package session keeps the logged-in user id in a signed browser cookie.
package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	CookieName = "vilatur_session"
	userIDKey  = "user_id"
)

// Store reads and writes the session cookie.
type Store struct {
	cookies *sessions.CookieStore
}

// NewStore creates a cookie store signed with secret. maxAge is in seconds.
func NewStore(secret string, maxAge int, secure bool) *Store {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cs}
}

// UserID returns the user id stored in the request's session cookie.
// A missing, expired or tampered cookie yields false.
func (s *Store) UserID(r *http.Request) (int64, bool) {
	sess, err := s.cookies.Get(r, CookieName)
	if err != nil {
		return 0, false
	}
	id, ok := sess.Values[userIDKey].(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// Login stores userID in a fresh session cookie.
func (s *Store) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	// a decode error only means the old cookie is unusable; Get still returns a new session
	sess, _ := s.cookies.Get(r, CookieName)
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// Logout expires the session cookie.
func (s *Store) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.cookies.Get(r, CookieName)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
