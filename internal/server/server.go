package server

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"foodgram/internal/config"
	"foodgram/internal/handlers"
	applog "foodgram/internal/log"
)

const (
	shutdownTimeout   = 5 * time.Second
	defaultCookieName = "foodgram_session"
)

// Config holds everything the HTTP server needs. A nil Database leaves the
// API answering 503 while /healthz keeps working.
type Config struct {
	Addr           string
	Session        config.SessionConfig
	AllowedOrigins []string
	Database       *gorm.DB
}

type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

func New(cfg Config) (*Server, error) {
	sessions := scs.New()
	if cfg.Session.Lifetime > 0 {
		sessions.Lifetime = cfg.Session.Lifetime
	}
	sessions.Cookie.Name = defaultCookieName
	if cfg.Session.CookieName != "" {
		sessions.Cookie.Name = cfg.Session.CookieName
	}
	sessions.Cookie.Domain = cfg.Session.CookieDomain
	sessions.Cookie.Secure = cfg.Session.CookieSecure
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	handlers.Configure(sessions, cfg.Database)

	handler := withRequestID(withCORS(cfg.AllowedOrigins, sessions.LoadAndSave(newRouter())))
	applog.Debug(context.Background(), "http server configured", "addr", cfg.Addr, "corsOrigins", len(cfg.AllowedOrigins))

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler: handler,
	}, nil
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	applog.Info(context.Background(), "starting http server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop waits up to five seconds for in-flight requests to finish.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	applog.Info(ctx, "shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the fully wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}
