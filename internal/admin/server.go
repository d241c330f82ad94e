package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/apestel/hardwire/internal/indexer"
	"github.com/apestel/hardwire/internal/progress"
	"github.com/apestel/hardwire/internal/security"
	"github.com/apestel/hardwire/internal/storage"
	"github.com/apestel/hardwire/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"
)

// Config carries the admin surface's external wiring (OIDC client,
// JWT secret/expiry, base host for share URLs).
type Config struct {
	JWTSecret    string
	JWTExpiry    time.Duration
	GoogleID     string
	GoogleSecret string
	RedirectURL  string
	DataDir      string
	HostBaseURL  string
	MaxFileSize  int64
	MaxFiles     int
}

// Server implements the federated-identity-gated management API.
type Server struct {
	store    *storage.Store
	idx      *indexer.Indexer
	tasksMgr *tasks.Manager
	bus      *progress.Bus
	logger   *slog.Logger
	cfg      Config
	audit    *security.AuditLogger

	tokens      *TokenIssuer
	oauth       *oauthStore
	oauthConfig *oauth2.Config

	router *chi.Mux
}

// New constructs the admin Server and wires its routes. It opens the
// audit log file under cfg.DataDir, the only fallible step.
func New(store *storage.Store, idx *indexer.Indexer, tasksMgr *tasks.Manager, bus *progress.Bus, logger *slog.Logger, cfg Config) (*Server, error) {
	audit, err := security.NewAuditLogger(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:       store,
		idx:         idx,
		tasksMgr:    tasksMgr,
		bus:         bus,
		logger:      logger,
		cfg:         cfg,
		audit:       audit,
		tokens:      NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry),
		oauth:       newOAuthStore(),
		oauthConfig: newGoogleOAuthConfig(cfg.GoogleID, cfg.GoogleSecret, cfg.RedirectURL),
		router:      chi.NewRouter(),
	}
	s.setupRoutes()
	return s, nil
}

// Router returns the mux for mounting into the top-level server.
func (s *Server) Router() http.Handler { return s.router }

// Close releases the audit log file handle.
func (s *Server) Close() error { return s.audit.Close() }

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(hwerr.Recover(s.logger))

	s.router.Get("/auth/google/login", s.handleGoogleLogin)
	s.router.Get("/auth/google/callback", s.handleGoogleCallback)
	s.router.Get("/live_update", s.handleLiveUpdate)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.RequireBearer)

		r.Get("/list_files", s.handleListFiles)
		r.Post("/files/rescan", s.handleRescan)
		r.Post("/create_shared_link", s.handleCreateSharedLink)
		r.Get("/files/{id}/verify", s.handleVerifyFile)

		r.Post("/tasks", s.handleCreateTask)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Get("/tasks/{id}/download", s.handleDownloadTaskArtifact)

		r.Get("/stats/downloads", s.handleStatsDownloads)
		r.Get("/stats/downloads/by_period", s.handleStatsByPeriod)
		r.Get("/stats/downloads/recent", s.handleStatsRecent)
		r.Get("/stats/downloads/status", s.handleStatsStatus)

		r.Get("/users", s.handleListUsers)
		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{id}", s.handleGetUser)
		r.Delete("/users/{id}", s.handleDeleteUser)
	})
}
