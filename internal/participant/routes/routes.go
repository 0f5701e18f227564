// Package routes wires the participant's Fiber application, in the shape
// of the teacher's routes.Setup: middleware first, then the protected
// group of protocol endpoints.
package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/twopc/internal/authtoken"
	"github.com/congo-pay/twopc/internal/middleware"
	"github.com/congo-pay/twopc/internal/participant/handler"
	"github.com/congo-pay/twopc/internal/participant/service"
	"github.com/congo-pay/twopc/internal/participant/store"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	DB         *pgxpool.Pool
	Logger     *slog.Logger
	AuthSecret string
}

// Setup configures middleware and the /2pc/* route group. It returns the
// service so callers (main, tests) can also drive it directly.
func Setup(app *fiber.App, d Deps) (*service.Service, error) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	var accounts store.AccountStore
	if d.DB != nil {
		accounts = store.NewPostgresStore(d.DB)
	} else {
		accounts = store.NewInMemoryStore()
	}
	svc := service.New(accounts)
	h := handler.New(svc)

	verifier := authtoken.NewSymmetricVerifier(d.AuthSecret)
	protocol := app.Group("/2pc", middleware.BearerAuth(verifier), middleware.RequireAdmin())
	protocol.Post("/prepare", h.Prepare)
	protocol.Post("/commit", h.Commit)
	protocol.Post("/abort", h.Abort)
	protocol.Post("/status", h.Status)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return svc, nil
}
