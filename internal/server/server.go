package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/server/handler"
	"github.com/ideadesk/ideadesk/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Folders     *handler.FolderHandler
	Ideas       *handler.IdeaHandler
	Prices      *handler.PriceHandler
	Earnings    *handler.EarningsHandler
	Guidance    *handler.GuidanceHandler
	Notes       *handler.NoteHandler
	Attachments *handler.AttachmentHandler
}

// Server is the backend HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. Health and
// the setup/login endpoints are public; every other /api route requires a
// valid session.
func NewServer(cfg Config, handlers Handlers, auth middleware.Authenticator, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	// Protected routes mount behind the session check.
	api := http.NewServeMux()

	// Session endpoints that need the resolved user.
	api.HandleFunc("POST /api/auth/logout", handlers.Auth.Logout)
	api.HandleFunc("GET /api/auth/me", handlers.Auth.Me)
	api.HandleFunc("POST /api/auth/password", handlers.Auth.ChangePassword)

	// Folders and themes.
	api.HandleFunc("GET /api/folders", handlers.Folders.List)
	api.HandleFunc("POST /api/folders", handlers.Folders.Create)
	api.HandleFunc("GET /api/folders/{id}", handlers.Folders.Get)
	api.HandleFunc("PATCH /api/folders/{id}", handlers.Folders.Update)
	api.HandleFunc("DELETE /api/folders/{id}", handlers.Folders.Delete)
	api.HandleFunc("GET /api/themes", handlers.Folders.ListThemes)
	api.HandleFunc("PUT /api/folders/{id}/themes/{themeID}", handlers.Folders.AddToTheme)
	api.HandleFunc("DELETE /api/folders/{id}/themes/{themeID}", handlers.Folders.RemoveFromTheme)
	api.HandleFunc("GET /api/themes/{id}/members", handlers.Folders.ListThemeMembers)
	api.HandleFunc("GET /api/themes/{id}/performance", handlers.Folders.ThemePerformance)

	// Ideas and P&L.
	api.HandleFunc("GET /api/ideas", handlers.Ideas.List)
	api.HandleFunc("POST /api/ideas", handlers.Ideas.Create)
	api.HandleFunc("GET /api/ideas/{id}", handlers.Ideas.Get)
	api.HandleFunc("PATCH /api/ideas/{id}", handlers.Ideas.Update)
	api.HandleFunc("DELETE /api/ideas/{id}", handlers.Ideas.Delete)
	api.HandleFunc("POST /api/ideas/{id}/status", handlers.Ideas.UpdateStatus)
	api.HandleFunc("POST /api/ideas/{id}/close", handlers.Ideas.Close)
	api.HandleFunc("GET /api/ideas/{id}/pnl", handlers.Ideas.GetPnL)
	api.HandleFunc("GET /api/ideas/{id}/pnl/history", handlers.Ideas.GetPnLHistory)

	// Prices and observations.
	api.HandleFunc("GET /api/quotes", handlers.Prices.Quotes)
	api.HandleFunc("GET /api/ideas/{id}/observations", handlers.Prices.ListObservations)
	api.HandleFunc("POST /api/ideas/{id}/observations", handlers.Prices.AddObservation)
	api.HandleFunc("POST /api/ideas/{id}/backfill", handlers.Prices.Backfill)
	api.HandleFunc("POST /api/ideas/{id}/snapshot", handlers.Prices.Snapshot)
	api.HandleFunc("DELETE /api/observations/{id}", handlers.Prices.DeleteObservation)

	// Earnings.
	api.HandleFunc("GET /api/folders/{id}/earnings", handlers.Earnings.List)
	api.HandleFunc("POST /api/folders/{id}/earnings", handlers.Earnings.Upsert)
	api.HandleFunc("POST /api/folders/{id}/earnings/refresh", handlers.Earnings.Refresh)
	api.HandleFunc("PUT /api/earnings/{id}", handlers.Earnings.Update)
	api.HandleFunc("DELETE /api/earnings/{id}", handlers.Earnings.Delete)

	// Guidance.
	api.HandleFunc("GET /api/folders/{id}/guidance", handlers.Guidance.List)
	api.HandleFunc("POST /api/folders/{id}/guidance", handlers.Guidance.Create)
	api.HandleFunc("PUT /api/guidance/{id}", handlers.Guidance.Update)
	api.HandleFunc("DELETE /api/guidance/{id}", handlers.Guidance.Delete)

	// Notes.
	api.HandleFunc("POST /api/notes", handlers.Notes.Create)
	api.HandleFunc("PUT /api/notes/{id}", handlers.Notes.Update)
	api.HandleFunc("DELETE /api/notes/{id}", handlers.Notes.Delete)
	api.HandleFunc("GET /api/ideas/{id}/notes", handlers.Notes.ListByIdea)
	api.HandleFunc("GET /api/folders/{id}/notes", handlers.Notes.ListByFolder)

	// Attachments.
	api.HandleFunc("POST /api/attachments", handlers.Attachments.Upload)
	api.HandleFunc("GET /api/attachments/{id}/download", handlers.Attachments.Download)
	api.HandleFunc("DELETE /api/attachments/{id}", handlers.Attachments.Delete)
	api.HandleFunc("GET /api/ideas/{id}/attachments", handlers.Attachments.ListByIdea)
	api.HandleFunc("GET /api/folders/{id}/attachments", handlers.Attachments.ListByFolder)

	// Root mux: public routes plus the protected tree. Exact patterns win
	// over the /api/ prefix mount.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/auth/setup", handlers.Auth.SetupStatus)
	mux.HandleFunc("POST /api/auth/setup", handlers.Auth.Setup)
	mux.HandleFunc("POST /api/auth/login", handlers.Auth.Login)
	mux.Handle("/api/", middleware.Auth(auth)(api))

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
