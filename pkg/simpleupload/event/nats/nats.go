// Package nats implements the upload event channel on NATS. Consumer
// groups map to NATS queue groups: each event is delivered to exactly one
// subscriber per queue group.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

const defaultFlushTimeout = 5 * time.Second

// Config options for the NATS bus
type Config struct {
	URL     string // NATS server URL, e.g. nats://127.0.0.1:4222
	Subject string // Subject upload events are published to
	Name    string // Optional connection name
}

// Bus implements simpleupload.Publisher and simpleupload.Subscriber on a
// NATS connection.
type Bus struct {
	conn    *nats.Conn
	subject string
	owned   bool
}

// New connects to NATS and creates a new bus
func New(cfg Config) (*Bus, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	name := cfg.Name
	if name == "" {
		name = "simple-upload"
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	return &Bus{conn: conn, subject: cfg.Subject, owned: true}, nil
}

// NewWithConn creates a bus on an existing connection. Close will not drain
// the connection in this case.
func NewWithConn(conn *nats.Conn, subject string) (*Bus, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	return &Bus{conn: conn, subject: subject}, nil
}

// PublishUploadEvent publishes the event as JSON and flushes the connection
// so a returned nil error means the server has accepted the message.
func (b *Bus) PublishUploadEvent(ctx context.Context, event simpleupload.UploadEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode upload event: %w", err)
	}

	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("failed to publish upload event: %w", err)
	}

	if err := b.conn.FlushTimeout(defaultFlushTimeout); err != nil {
		return fmt.Errorf("failed to flush upload event: %w", err)
	}

	return nil
}

// SubscribeUploadEvents joins the named queue group on the configured
// subject. Undecodable payloads are logged and dropped.
func (b *Bus) SubscribeUploadEvents(ctx context.Context, group string, handler simpleupload.UploadEventHandler) (func(), error) {
	sub, err := b.conn.QueueSubscribe(b.subject, group, func(msg *nats.Msg) {
		var event simpleupload.UploadEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Error("Failed to decode upload event", "subject", msg.Subject, "error", err)
			return
		}
		handler(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}

	unsubscribe := func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("Failed to unsubscribe", "subject", b.subject, "error", err)
		}
	}

	return unsubscribe, nil
}

// Close drains the connection if this bus created it
func (b *Bus) Close() {
	if b.owned {
		if err := b.conn.Drain(); err != nil {
			slog.Warn("Failed to drain NATS connection", "error", err)
		}
	}
}
