package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eigenda-sidecar/internal/metrics"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// ProofEvent is published once per request when it reaches done or failed.
type ProofEvent struct {
	BlobID    string    `json:"blob_id"`
	State     string    `json:"state"`
	Proof     string    `json:"proof,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// publisher is the part of *nats.Conn the notifier uses.
type publisher interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSNotifier publishes proof events to {prefix}.done / {prefix}.failed.
type NATSNotifier struct {
	conn   *nats.Conn
	pub    publisher
	prefix string
	logger *logrus.Logger
}

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url, prefix string, connectTimeout time.Duration, logger *logrus.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("eigenda-sidecar"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("[NATS] disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("[NATS] reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect NATS %s: %w", url, err)
	}
	metrics.NATSConnectionStatus.Set(1)
	logger.WithField("url", url).Info("✅ [NATS] connected")

	n := newNATSNotifier(conn, prefix, logger)
	n.conn = conn
	return n, nil
}

func newNATSNotifier(pub publisher, prefix string, logger *logrus.Logger) *NATSNotifier {
	return &NATSNotifier{pub: pub, prefix: prefix, logger: logger}
}

// Subject returns the subject an event with the given state is published on.
func (n *NATSNotifier) Subject(state string) string {
	return fmt.Sprintf("%s.%s", n.prefix, state)
}

func (n *NATSNotifier) Publish(ctx context.Context, ev ProofEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal proof event: %w", err)
	}

	subject := n.Subject(ev.State)
	if err := n.pub.Publish(subject, data); err != nil {
		metrics.NATSMessagesPublished.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if err := n.pub.FlushWithContext(ctx); err != nil {
		metrics.NATSMessagesPublished.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	metrics.NATSMessagesPublished.WithLabelValues(subject, "ok").Inc()

	n.logger.WithFields(logrus.Fields{
		"subject": subject,
		"blob_id": ev.BlobID,
	}).Debug("[NATS] proof event published")
	return nil
}

// Close connection
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// NopNotifier drops events. Used when no NATS server is configured.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, ProofEvent) error { return nil }
