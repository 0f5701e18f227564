// Package server wraps the participant's Fiber application, in the shape
// of the teacher's internal/server.Server.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/twopc/internal/participant/config"
	"github.com/congo-pay/twopc/internal/participant/routes"
	"github.com/congo-pay/twopc/internal/participant/service"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
	db  *pgxpool.Pool
}

// New instantiates the HTTP server and delegates route wiring to
// routes.Setup, returning the service so callers (e.g. tests) can drive it
// in-process too.
func New(cfg config.Config, db *pgxpool.Pool, logger *slog.Logger) (*Server, *service.Service, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	svc, err := routes.Setup(app, routes.Deps{DB: db, Logger: logger, AuthSecret: cfg.AuthSecret})
	if err != nil {
		return nil, nil, err
	}

	return &Server{app: app, cfg: cfg, db: db}, svc, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
