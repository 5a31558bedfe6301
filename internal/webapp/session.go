package webapp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/coverledger/internal/model"
)

const SessionCookieName = "session"

const sessionTTL = 4 * time.Hour

// Session is one signed-in browser. Email is what gets asserted to the
// data service on every call made for this user.
type Session struct {
	Token     string
	UserID    int64
	Email     string
	Name      string
	Role      model.Role
	ExpiresAt time.Time
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool { return s.Role == model.RoleAdmin }

// IsStaff reports whether the session may answer tickets and review
// claims.
func (s *Session) IsStaff() bool {
	return s.Role == model.RoleAdmin || s.Role == model.RoleManager
}

// Sessions is an in-memory session table. Sessions do not survive a
// restart; users sign in again.
type Sessions struct {
	mu    sync.Mutex
	table map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{table: make(map[string]*Session)}
}

func (s *Sessions) Create(user *model.Identity) *Session {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)

	sess := &Session{
		Token:     hex.EncodeToString(buf),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(sessionTTL),
	}

	s.mu.Lock()
	s.table[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

func (s *Sessions) Get(token string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.table[token]
	if !ok {
		return nil
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(s.table, token)
		return nil
	}
	return sess
}

func (s *Sessions) Destroy(token string) {
	s.mu.Lock()
	delete(s.table, token)
	s.mu.Unlock()
}

// DestroyAllFor drops every session belonging to one account, used when
// the account's role or password changes elsewhere.
func (s *Sessions) DestroyAllFor(email string) {
	s.mu.Lock()
	for token, sess := range s.table {
		if sess.Email == email {
			delete(s.table, token)
		}
	}
	s.mu.Unlock()
}

type contextKey string

const sessionKey contextKey = "session"

// SessionFromContext returns the signed-in session, or nil.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey).(*Session)
	return sess
}

// loadSession resolves the session cookie, if any, into the context. It
// never rejects; page handlers decide what anonymous visitors see.
func (app *App) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		sess := app.sessions.Get(cookie.Value)
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession redirects anonymous visitors to the login page.
func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
