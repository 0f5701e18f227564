// Package routes wires the coordinator's Fiber application.
package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/twopc/internal/authtoken"
	"github.com/congo-pay/twopc/internal/coordinator/config"
	"github.com/congo-pay/twopc/internal/coordinator/handler"
	"github.com/congo-pay/twopc/internal/coordinator/participantclient"
	"github.com/congo-pay/twopc/internal/coordinator/store"
	"github.com/congo-pay/twopc/internal/coordinator/twophase"
	"github.com/congo-pay/twopc/internal/diagnostics"
	"github.com/congo-pay/twopc/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Built bundles the pieces main and the reconciler need after Setup.
type Built struct {
	TransactionStore store.TransactionStore
	Resolver         *participantclient.HashResolver
	Diagnostics      diagnostics.Publisher
}

// Setup configures middleware and the client-facing route group.
func Setup(app *fiber.App, d Deps) (Built, error) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	var txns store.TransactionStore
	if d.DB != nil {
		txns = store.NewPostgresStore(d.DB)
	} else {
		txns = store.NewInMemoryStore()
	}

	adminToken, err := authtoken.MintServiceToken(d.Cfg.AuthSecret, d.Cfg.ServiceTokenTTL)
	if err != nil {
		return Built{}, err
	}
	resolver := participantclient.NewHashResolver(d.Cfg.ParticipantURLs, adminToken, d.Cfg.Protocol.PrepareTimeout+d.Cfg.Protocol.CommitTimeout)

	var diag diagnostics.Publisher
	logging := diagnostics.LoggingPublisher{Logger: d.Logger}
	if d.Cfg.AMQPURL != "" {
		broker, err := diagnostics.NewBrokerPublisher(d.Cfg.AMQPURL, logging, d.Logger)
		if err != nil {
			d.Logger.Warn("connect diagnostics broker failed, falling back to logging only", "error", err)
			diag = diagnostics.NewFallbackPublisher(logging)
		} else {
			diag = broker
		}
	} else {
		diag = diagnostics.NewFallbackPublisher(logging)
	}

	coord := twophase.New(txns, diag, d.Logger, d.Cfg.Protocol)
	h := handler.New(coord, txns, resolver)

	verifier := authtoken.NewSymmetricVerifier(d.Cfg.AuthSecret)
	protected := app.Group("", middleware.BearerAuth(verifier))
	protected.Post("/transfers", h.Transfer)
	protected.Get("/transfers/status/:tx_id", h.Status)
	protected.Get("/transfers/history/:account_id", h.History)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return Built{TransactionStore: txns, Resolver: resolver, Diagnostics: diag}, nil
}
