package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/apex-protocol/internal/auth"
	"github.com/npezzotti/apex-protocol/internal/config"
	"github.com/npezzotti/apex-protocol/internal/database"
	"github.com/npezzotti/apex-protocol/internal/feed"
	"github.com/npezzotti/apex-protocol/internal/stats"
	"github.com/sirupsen/logrus"
)

type ApexApp struct {
	log            *logrus.Logger
	db             database.ApexRepository
	authn          auth.Authenticator
	hub            *feed.Hub
	stats          stats.StatsProvider
	srv            *http.Server
	cfg            *config.Config
	allowedOrigins []string
}

// NewApexApp wires the routes onto mux. Extra routes (such as /metrics)
// may be mounted on mux by the caller before or after.
func NewApexApp(
	mux *http.ServeMux,
	logger *logrus.Logger,
	db database.ApexRepository,
	authn auth.Authenticator,
	hub *feed.Hub,
	st stats.StatsProvider,
	cfg *config.Config,
) *ApexApp {
	s := &ApexApp{
		log:            logger,
		db:             db,
		authn:          authn,
		hub:            hub,
		stats:          st,
		cfg:            cfg,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /{$}", s.root)
	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/logout", s.logout)
	mux.HandleFunc("GET /api/auth/logout", s.logout)
	mux.HandleFunc("GET /api/auth/status", s.optionalAuth(s.status))
	mux.HandleFunc("POST /api/auth/join-club", s.requireAuth(s.joinClub))
	if cfg.GrantAdminRequireSelf {
		mux.HandleFunc("POST /api/auth/grant-admin", s.requireAuth(s.grantAdmin))
	} else {
		mux.HandleFunc("POST /api/auth/grant-admin", s.optionalAuth(s.grantAdmin))
	}

	mux.HandleFunc("POST /api/messages", s.requireAuth(s.createMessage))
	mux.HandleFunc("GET /api/messages", s.optionalAuth(s.listMessages))
	mux.HandleFunc("DELETE /api/messages/{id}", s.requireAuth(s.requireAdmin(s.deleteMessage)))
	mux.HandleFunc("GET /api/messages/feed", s.optionalAuth(s.serveFeed))

	mux.HandleFunc("GET /api/test/users", s.testUsers)
	mux.HandleFunc("GET /api/test/messages", s.testMessages)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization", requestIdHeader}),
		handlers.ExposedHeaders([]string{requestIdHeader}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.requestLogger(h)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *ApexApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *ApexApp) Start() error {
	s.log.Infof("starting server on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *ApexApp) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
