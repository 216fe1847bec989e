package serve

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// BuildEvent is published after every rebuild in serve mode.
type BuildEvent struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"` // "initial", "watch", "schedule"
	Status     string    `json:"status"`  // "success", "failed"
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher sends build events to a JetStream subject.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("docsite"))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryServe, apperrors.SeverityError, "connect to NATS")
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, apperrors.Wrap(err, apperrors.CategoryServe, apperrors.SeverityError, "create JetStream context")
	}

	slog.Info("Build event publisher connected", "url", url, "subject", subject)
	return &Publisher{conn: conn, js: js, subject: subject}, nil
}

// Publish sends one build event. Failures are logged, not propagated;
// event delivery never blocks the rebuild loop.
func (p *Publisher) Publish(trigger string, d time.Duration, buildErr error) {
	if p == nil {
		return
	}

	event := BuildEvent{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		Status:     "success",
		DurationMS: d.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if buildErr != nil {
		event.Status = "failed"
		event.Error = buildErr.Error()
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to marshal build event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		slog.Warn("Failed to publish build event", "subject", p.subject, "error", err)
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
