package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/account"
	"github.com/gmsas95/medreminder/internal/catalog"
	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/metrics"
	"github.com/gmsas95/medreminder/internal/notify"
)

const version = "0.1.0"

// Deps are the collaborators the server needs. Metrics and Catalog default to
// the process-wide instances.
type Deps struct {
	Accounts *account.Manager
	Outbox   *notify.Outbox
	Catalog  *catalog.Holder
	Metrics  *metrics.Metrics
}

// Server handles the HTTP API
type Server struct {
	app      *fiber.App
	config   *config.Config
	accounts *account.Manager
	outbox   *notify.Outbox
	catalog  *catalog.Holder
	metrics  *metrics.Metrics
	sessions *sessionRegistry
	input    *inputValidator
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a new API server
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Default()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.NewHolder(catalog.Default())
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("Invalid form timezone, using local time", zap.Error(err))
		loc = time.Local
	}

	app := fiber.New(fiber.Config{
		AppName:               "medreminder",
		ReadTimeout:           seconds(cfg.Server.ReadTimeout, 30),
		WriteTimeout:          seconds(cfg.Server.WriteTimeout, 30),
		IdleTimeout:           seconds(cfg.Server.IdleTimeout, 120),
		DisableStartupMessage: true,
	})

	s := &Server{
		app:      app,
		config:   cfg,
		accounts: deps.Accounts,
		outbox:   deps.Outbox,
		catalog:  deps.Catalog,
		metrics:  deps.Metrics,
		input:    newInputValidator(),
		logger:   logger,
		now:      func() time.Time { return time.Now().In(loc) },
	}
	s.sessions = newSessionRegistry(time.Duration(cfg.Server.SessionTTL)*time.Minute, time.Now)

	s.setupRoutes()
	return s
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

// App exposes the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("API server listening", zap.String("addr", s.config.ListenAddr()))
	return s.app.Listen(s.config.ListenAddr())
}

// Shutdown gracefully shuts down the server and closes open form sessions
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.app.ShutdownWithContext(ctx)
	s.sessions.closeAll()
	return err
}
