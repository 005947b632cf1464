package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSBridge publishes events to NATS.
//
// Subject convention: <prefix>.<audience>.<event>
type NATSBridge struct {
	conn   *nats.Conn
	prefix string
	log    zerolog.Logger
}

// ConnectNATS dials the broker with reconnect handlers that log state changes
func ConnectNATS(url string, log zerolog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("contractd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("notification: NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("notification: NATS reconnected")
		}),
	)
}

func NewNATSBridge(conn *nats.Conn, prefix string, log zerolog.Logger) *NATSBridge {
	if prefix == "" {
		prefix = "contracts"
	}
	return &NATSBridge{conn: conn, prefix: prefix, log: log}
}

// Subject returns the subject an event for the audience is published on
func (b *NATSBridge) Subject(audienceID, event string) string {
	return fmt.Sprintf("%s.%s.%s", b.prefix, subjectToken(audienceID), subjectToken(event))
}

func (b *NATSBridge) Emit(ctx context.Context, audienceID, event string, payload interface{}) error {
	if audienceID == "" {
		return nil
	}

	data, err := json.Marshal(&Event{
		EventType:  event,
		Audience:   audienceID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	subject := b.Subject(audienceID, event)
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	b.log.Debug().
		Str("subject", subject).
		Str("audience", audienceID).
		Msg("notification: event published")
	return nil
}

// Close drains pending publishes before closing the connection
func (b *NATSBridge) Close() error {
	return b.conn.Drain()
}
