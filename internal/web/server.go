// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the FloraFind site and its JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/florafind/internal/auth"
	"github.com/pdiddy/florafind/internal/logger"
	"github.com/pdiddy/florafind/internal/profile"
	"github.com/pdiddy/florafind/pkg/types"
)

const (
	defaultAddr            = ":8080"
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 2 * time.Minute
	defaultShutdownTimeout = 15 * time.Second
	defaultRateLimit       = 20

	defaultArticles = 5
	maxArticles     = 100
)

// Profiler produces plant records. *profile.Aggregator implements it.
type Profiler interface {
	Aggregate(ctx context.Context, in profile.AggregateInput) (types.PlantProfile, error)
	Scan(ctx context.Context, photoDataURI string) (types.ScanResult, error)
	GenerateImage(ctx context.Context, plantName string) (types.PlantImage, error)
}

// Deps are the services the server delegates to.
type Deps struct {
	Profiles Profiler
	Articles profile.ArticleSearcher
	Accounts *auth.Service
}

// Server is the FloraFind HTTP server.
type Server struct {
	cfg       types.ServerConfig
	deps      Deps
	templates *TemplateManager
	limiter   *clientLimiter
	log       logrus.FieldLogger

	httpServer   *http.Server
	shutdownOnce sync.Once
}

// NewServer creates a server. Zero config fields take defaults.
func NewServer(cfg types.ServerConfig, deps Deps, log logrus.FieldLogger) (*Server, error) {
	if deps.Profiles == nil || deps.Articles == nil || deps.Accounts == nil {
		return nil, errors.New("web server needs profile, article and account services")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}

	templates, err := NewTemplateManager()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	return &Server{
		cfg:       cfg,
		deps:      deps,
		templates: templates,
		limiter:   newClientLimiter(cfg.RateLimit),
		log:       logger.OrDiscard(log),
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("starting web server")
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.log.Info("shutting down web server")
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown: %w", err)
		}
	})
	return shutdownErr
}

// Handler returns the routed handler wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(s.sessionMiddleware(s.welcomeMiddleware(s.routes())))
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.log.WithError(err).Warn("static files unavailable")
	} else {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.Handle("GET /plant/{name}", s.rateLimit(http.HandlerFunc(s.handlePlant)))
	mux.Handle("GET /plant/{name}/image", s.rateLimit(http.HandlerFunc(s.handlePlantImage)))
	mux.Handle("GET /scan", s.requireAuth(http.HandlerFunc(s.handleScanPage)))
	mux.Handle("POST /scan", s.requireAuth(s.rateLimit(http.HandlerFunc(s.handleScanUpload))))

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /signup", s.handleSignupPage)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /forgot-password", s.handleForgotPage)
	mux.HandleFunc("POST /forgot-password", s.handleForgot)
	mux.HandleFunc("GET /reset-password", s.handleResetPage)
	mux.HandleFunc("POST /reset-password", s.handleReset)

	mux.HandleFunc("GET /subscribe", s.handleSubscribePage)
	mux.Handle("POST /subscribe", s.requireAuth(http.HandlerFunc(s.handleSubscribe)))
	mux.HandleFunc("GET /welcome", s.handleWelcomePage)
	mux.HandleFunc("POST /welcome", s.handleWelcome)

	mux.HandleFunc("GET /api/articles", s.handleAPIArticles)
	mux.Handle("POST /api/profile", s.rateLimit(http.HandlerFunc(s.handleAPIProfile)))
	mux.Handle("POST /api/scan", s.rateLimit(http.HandlerFunc(s.handleAPIScan)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}
