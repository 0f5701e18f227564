// Package diagnostics carries the *Critical* path of spec §7: when a
// commit phase fails against one participant after both sides voted to
// commit, the coordinator biases toward reporting the transfer as
// committed to the client and instead raises an operator diagnostic.
// Publishing is grounded on the retrieved
// stanleykosi-transfa-react/transaction-service/pkg/rabbitmq producer,
// generalized from a single hard-coded exchange/routing-key pair to the
// one topic this system needs, with a logging-only fallback
// (FallbackPublisher) so a missing broker never blocks the commit path it
// is reporting on.
package diagnostics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "twopc.diagnostics"
	routingKey   = "transfer.critical"
)

// CriticalDiagnostic is the structured record emitted when a transaction is
// finalized as committed despite a commit-phase transport failure against
// one of the two participants.
type CriticalDiagnostic struct {
	TransactionID   string    `json:"transaction_id"`
	SourceAccountID string    `json:"source_account_id"`
	DestAccountID   string    `json:"destination_account_id"`
	FailedAccountID string    `json:"failed_account_id"`
	Reason          string    `json:"reason"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Publisher reports a CriticalDiagnostic to whatever operator channel is
// configured. It never returns an error that should influence the 2PC
// outcome — by the time a diagnostic is raised the transaction's terminal
// status has already been decided.
type Publisher interface {
	PublishCritical(ctx context.Context, d CriticalDiagnostic)
}

// LoggingPublisher always logs at a "critical" severity attribute,
// regardless of whether a broker-backed publisher is also wired in.
type LoggingPublisher struct {
	Logger *slog.Logger
}

// PublishCritical implements Publisher by emitting a structured slog record.
func (p LoggingPublisher) PublishCritical(_ context.Context, d CriticalDiagnostic) {
	if p.Logger == nil {
		return
	}
	p.Logger.Error("critical: post-decision inconsistency",
		slog.String("severity", "critical"),
		slog.String("transaction_id", d.TransactionID),
		slog.String("source_account_id", d.SourceAccountID),
		slog.String("destination_account_id", d.DestAccountID),
		slog.String("failed_account_id", d.FailedAccountID),
		slog.String("reason", d.Reason),
	)
}

// BrokerPublisher additionally publishes CriticalDiagnostic events onto a
// durable topic exchange so a reconciliation console can subscribe instead
// of tailing logs.
type BrokerPublisher struct {
	logging Publisher
	logger  *slog.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewBrokerPublisher dials amqpURL and declares the diagnostics exchange.
// logging is wrapped so every publish is also logged, never contingent on
// broker success. logger reports the broker plumbing's own failures
// (marshal, publish, channel reopen), in the same JSON slog handler every
// other component in this system logs through.
func NewBrokerPublisher(amqpURL string, logging Publisher, logger *slog.Logger) (*BrokerPublisher, error) {
	conn, err := amqp.DialConfig(amqpURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &BrokerPublisher{logging: logging, logger: logger, conn: conn, channel: ch}, nil
}

// PublishCritical implements Publisher.
func (p *BrokerPublisher) PublishCritical(ctx context.Context, d CriticalDiagnostic) {
	p.logging.PublishCritical(ctx, d)

	body, err := json.Marshal(d)
	if err != nil {
		p.logger.Error("marshal critical diagnostic failed", slog.String("transaction_id", d.TransactionID), slog.Any("error", err))
		return
	}

	err = p.channel.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		p.logger.Warn("publish critical diagnostic failed; reopening channel", slog.String("transaction_id", d.TransactionID), slog.Any("error", err))
		if ch, chErr := p.conn.Channel(); chErr == nil {
			p.channel = ch
			if exErr := p.channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); exErr == nil {
				_ = p.channel.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
					ContentType: "application/json",
					Timestamp:   time.Now(),
					Body:        body,
				})
			}
		}
	}
}

// Close releases the channel and connection.
func (p *BrokerPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// FallbackPublisher is used when no broker is configured. It only logs,
// grounded on the retrieved rabbitmq.EventProducerFallback pattern.
type FallbackPublisher struct {
	logging Publisher
}

// NewFallbackPublisher wraps logging as the sole publish target.
func NewFallbackPublisher(logging Publisher) FallbackPublisher {
	return FallbackPublisher{logging: logging}
}

// PublishCritical implements Publisher.
func (p FallbackPublisher) PublishCritical(ctx context.Context, d CriticalDiagnostic) {
	p.logging.PublishCritical(ctx, d)
}
