package adapthttp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"nutriscan/internal/app"
	"nutriscan/internal/domain"

	"github.com/google/uuid"
)

type contextKey string

const (
	userContextKey   contextKey = "user"
	clientContextKey contextKey = "client"

	sessionCookie = "session"
	clientCookie  = "client_id"
)

var errUnauthorized = errors.New("unauthorized")

// identify attaches the signed-in user, if any, and a stable anonymous client
// id to the request context. It never rejects a request for lack of auth.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
			user, err := s.authSvc.ValidateSession(ctx, cookie.Value)
			switch {
			case err == nil:
				ctx = context.WithValue(ctx, userContextKey, user)
			case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrSessionExpired), errors.Is(err, app.ErrUserNotFound):
				clearCookie(w, sessionCookie)
			default:
				log.Printf("session lookup: %v", err)
				writeError(w, http.StatusInternalServerError, errors.New("internal error"))
				return
			}
		}

		clientID := ""
		if cookie, err := r.Cookie(clientCookie); err == nil {
			if _, perr := uuid.Parse(cookie.Value); perr == nil {
				clientID = cookie.Value
			}
		}
		if clientID == "" {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     clientCookie,
				Value:    clientID,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   365 * 24 * 60 * 60,
			})
		}
		ctx = context.WithValue(ctx, clientContextKey, clientID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests without a signed-in user.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userFromContext(r) == nil {
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		next(w, r)
	}
}

func userFromContext(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userContextKey).(*domain.User)
	return u
}

// requesterFromContext maps the request identity to an analysis requester.
func requesterFromContext(r *http.Request) app.Requester {
	if u := userFromContext(r); u != nil {
		return app.Requester{UserID: u.ID, Key: fmt.Sprintf("user:%d", u.ID)}
	}
	if id, _ := r.Context().Value(clientContextKey).(string); id != "" {
		return app.Requester{Key: "client:" + id}
	}
	return app.Requester{}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
