// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/florafind/internal/auth"
	"github.com/pdiddy/florafind/pkg/types"
)

const (
	sessionCookie = "florafind_session"
	welcomeCookie = "florafind_welcomed"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// loggingMiddleware logs each request with its status and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("request")
	})
}

// sessionMiddleware resolves the request session from its cookies.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := auth.NewSession()

		var user *types.User
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			u, err := s.deps.Accounts.Authenticate(r.Context(), c.Value)
			if err != nil {
				s.log.WithError(err).Debug("discarding session cookie")
				s.clearCookie(w, sessionCookie)
			} else {
				user = u
			}
		}
		// Resolve only fails outside Loading.
		_ = sess.Resolve(user)

		if c, err := r.Cookie(welcomeCookie); err == nil && c.Value == "1" {
			sess.Welcomed = true
		}

		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}

// welcomeMiddleware sends first-time visitors through onboarding.
func (s *Server) welcomeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Welcomed && !welcomeExempt(r.URL.Path) {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func welcomeExempt(path string) bool {
	return path == "/welcome" || path == "/healthz" ||
		strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/static/")
}

// requireAuth redirects anonymous visitors to the login page.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.FromContext(r.Context()).State() != auth.Authenticated {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit rejects clients over the per-minute budget with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.log.WithField("client", ip).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many requests, try again in a minute", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
