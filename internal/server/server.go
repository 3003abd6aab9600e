package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/negroni/v2"
	"golang.org/x/time/rate"

	"github.com/user/vidnest/internal/auth"
	"github.com/user/vidnest/internal/config"
	"github.com/user/vidnest/internal/library"
	"github.com/user/vidnest/internal/metrics"
	"github.com/user/vidnest/internal/preview"
	"github.com/user/vidnest/internal/store"
)

// limiterSweepInterval is how often idle rate-limit buckets are evicted
const limiterSweepInterval = time.Minute

// Previewer loads raw link previews
type Previewer interface {
	Fetch(ctx context.Context, pageURL string) (*preview.Preview, error)
}

// Deps are the services the HTTP surface is built on
type Deps struct {
	Store    store.Store
	Library  *library.Service
	Accounts *library.Accounts
	Tokens   *auth.TokenManager
	Preview  Previewer
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// Server handles the REST API, health checks and metrics
type Server struct {
	cfg         *config.Config
	deps        Deps
	router      *mux.Router
	handler     http.Handler
	server      *http.Server
	apiLimiter  *ipLimiter
	authLimiter *ipLimiter
	stopSweep   chan struct{}
	startTime   time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, deps Deps) *Server {
	authEvery := rate.Every(time.Minute / time.Duration(cfg.RateLimit.AuthPerMinute))

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		router:      mux.NewRouter(),
		apiLimiter:  newIPLimiter("api", rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		authLimiter: newIPLimiter("auth", authEvery, cfg.RateLimit.AuthPerMinute),
		startTime:   time.Now(),
	}

	s.setupRoutes()
	s.handler = s.buildChain()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, library.ErrNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusMethodNotAllowed, apiError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})
	r.Use(s.instrument)

	r.Methods(http.MethodGet).Path("/health").HandlerFunc(s.handleHealth)
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.Handler())

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimit(s.apiLimiter))

	strict := s.rateLimit(s.authLimiter)
	api.Methods(http.MethodPost).Path("/auth/register").Handler(strict(http.HandlerFunc(s.handleRegister)))
	api.Methods(http.MethodPost).Path("/auth/login").Handler(strict(http.HandlerFunc(s.handleLogin)))
	api.Methods(http.MethodPost).Path("/auth/forgot-password").Handler(strict(http.HandlerFunc(s.handleForgotPassword)))
	api.Methods(http.MethodPost).Path("/auth/reset-password").HandlerFunc(s.handleResetPassword)
	api.Methods(http.MethodPost).Path("/auth/logout").HandlerFunc(s.handleLogout)
	api.Methods(http.MethodGet).Path("/auth/profile").Handler(s.authed(s.handleProfile))
	api.Methods(http.MethodPut).Path("/auth/profile").Handler(s.authed(s.handleUpdateProfile))
	api.Methods(http.MethodPost).Path("/auth/telegram-link").Handler(s.authed(s.handleTelegramLink))

	api.Methods(http.MethodGet).Path("/videos").Handler(s.authed(s.handleListVideos))
	api.Methods(http.MethodPost).Path("/videos").Handler(s.authed(s.handleCreateVideo))
	api.Methods(http.MethodGet).Path("/videos/tags").Handler(s.authed(s.handleTags))
	api.Methods(http.MethodGet).Path("/videos/{id:[0-9]+}").Handler(s.authed(s.handleGetVideo))
	api.Methods(http.MethodPut).Path("/videos/{id:[0-9]+}").Handler(s.authed(s.handleUpdateVideo))
	api.Methods(http.MethodDelete).Path("/videos/{id:[0-9]+}").Handler(s.authed(s.handleDeleteVideo))

	api.Methods(http.MethodGet).Path("/categories").Handler(s.authed(s.handleListCategories))
	api.Methods(http.MethodPost).Path("/categories").Handler(s.authed(s.handleCreateCategory))
	api.Methods(http.MethodDelete).Path("/categories/{id:[0-9]+}").Handler(s.authed(s.handleDeleteCategory))

	api.Methods(http.MethodGet).Path("/share/metadata").Handler(s.authed(s.handleShareMetadata))
	api.Methods(http.MethodPost).Path("/share/process").Handler(s.authed(s.handleShareProcess))
	api.Methods(http.MethodGet).Path("/preview").Handler(s.authed(s.handlePreview))
	api.Methods(http.MethodGet).Path("/feed/latest").Handler(s.authed(s.handleFeed))
}

// buildChain wraps the router with recovery, request logging and CORS
func (s *Server) buildChain() http.Handler {
	recovery := negroni.NewRecovery()
	// the formatter is only consulted when PrintStack is set; it never prints the stack
	recovery.PrintStack = true
	recovery.Logger = recoveryLogger{}
	recovery.Formatter = jsonPanicFormatter{}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})

	n := negroni.New()
	n.Use(recovery)
	n.UseFunc(requestLogger)
	n.Use(c)
	n.UseHandler(s.router)
	return n
}

// Handler returns the complete middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening on the configured port
func (s *Server) Start() error {
	port := s.cfg.Server.Port
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.stopSweep = make(chan struct{})
	go s.sweepLimiters(s.stopSweep)

	log.Info().Int("port", port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Stopping HTTP server")
	close(s.stopSweep)
	return s.server.Shutdown(ctx)
}

func (s *Server) sweepLimiters(stop <-chan struct{}) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			evicted := s.apiLimiter.evict(idleBucketTTL) + s.authLimiter.evict(idleBucketTTL)
			if evicted > 0 {
				log.Debug().Int("evicted", evicted).Msg("Evicted idle rate limit buckets")
			}
		}
	}
}

// handleHealth reports database connectivity and uptime
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "healthy"
	if err := s.deps.Store.Ping(ctx); err != nil {
		dbStatus = fmt.Sprintf("unhealthy: %v", err)
	} else if count, err := s.deps.Store.CountVideos(ctx); err == nil {
		metrics.UpdateVideoCount(count)
	}

	status := "healthy"
	if dbStatus != "healthy" {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:   status,
		Database: dbStatus,
		Uptime:   s.GetUptime().Round(time.Second).String(),
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

// GetUptime returns the server uptime
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.startTime)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
