package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

type asyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// AuditPublisher sends audit events to a JetStream stream.
type AuditPublisher struct {
	nc     *nats.Conn
	js     asyncPublisher
	logger *logger.Logger
}

var _ port.EventPublisher = (*AuditPublisher)(nil)

// NewAuditPublisher connects to NATS and opens a JetStream context.
func NewAuditPublisher(natsURL string, log *logger.Logger) (*AuditPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("deploy-board"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	log.Info("Connected to NATS", "url", natsURL)

	return &AuditPublisher{nc: nc, js: js, logger: log}, nil
}

// PublishEvent marshals event and publishes it without waiting for the ack.
func (p *AuditPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.PublishAsync(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Audit event published", "subject", subject, "size", len(data))
	return nil
}

// Close drains the connection so pending async publishes are flushed.
func (p *AuditPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	p.logger.Info("Closing NATS connection")
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
