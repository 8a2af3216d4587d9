// Package events publishes newly ingested messages to NATS.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "messages.ingested"

// IngestedEvent is the wire form published for each new message.
type IngestedEvent struct {
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	To         string    `json:"to,omitempty"`
	Timestamp  time.Time `json:"ts"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// NATSPublisher publishes IngestedEvents on a single subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("webhook-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends msg as an IngestedEvent. NATS buffers while reconnecting.
func (p *NATSPublisher) Publish(_ context.Context, msg *models.Message) error {
	data, err := EncodeEvent(msg)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

// Ping reports whether the connection is currently established.
func (p *NATSPublisher) Ping(_ context.Context) error {
	if !p.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}

// EncodeEvent renders msg in the published wire form.
func EncodeEvent(msg *models.Message) ([]byte, error) {
	return json.Marshal(IngestedEvent{
		MessageID:  msg.MessageID,
		From:       msg.From,
		To:         msg.To,
		Timestamp:  msg.Timestamp.UTC(),
		Text:       msg.Text,
		ReceivedAt: msg.ReceivedAt.UTC(),
	})
}
