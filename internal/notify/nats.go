// Package notify publishes run events to NATS.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/CHRISHLOH/tmdb-etl/internal/metrics"
)

const (
	source         = "tmdb-etl"
	messageVersion = "1.0"
	flushTimeout   = 5 * time.Second
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Message is the envelope sent to NATS.
type Message struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NATSPublisher sends JSON messages to one subject.
type NATSPublisher struct {
	conn    Conn
	subject string
	now     func() time.Time
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(source),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return NewNATSPublisher(nc, subject), nil
}

// NewNATSPublisher wraps an open connection.
func NewNATSPublisher(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, now: time.Now}
}

// Publish sends payload as event and waits for the server to acknowledge
// the flush, since the process usually exits right after.
func (p *NATSPublisher) Publish(event string, payload any) error {
	data, err := json.Marshal(Message{
		Event:     event,
		Payload:   payload,
		Timestamp: p.now().UTC(),
		Source:    source,
		Version:   messageVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", event, err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		metrics.NatsMessagesPublished.WithLabelValues(p.subject, "error").Inc()
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}
	if err := p.conn.FlushTimeout(flushTimeout); err != nil {
		metrics.NatsMessagesPublished.WithLabelValues(p.subject, "error").Inc()
		return fmt.Errorf("failed to flush %s: %w", p.subject, err)
	}

	metrics.NatsMessagesPublished.WithLabelValues(p.subject, "success").Inc()
	slog.Info("Published event", "event", event, "subject", p.subject, "bytes", len(data))
	return nil
}

// Close closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
