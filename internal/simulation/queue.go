// internal/simulation/queue.go
package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	streamName       = "SIMULATION"
	queueGroup       = "trust-engine"
	directiveAckWait = 30 * time.Second
)

// Connect dials NATS with exponential backoff. The returned connection keeps
// reconnecting on its own once established.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*nats.Conn, error) {
	log := logger.Named("queue")
	conn, err := backoff.Retry(ctx, func() (*nats.Conn, error) {
		conn, err := nats.Connect(url,
			nats.Timeout(10*time.Second),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Warn("nats disconnected", zap.Error(err))
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
			}),
		)
		if err != nil {
			log.Warn("nats connect failed, retrying", zap.Error(err))
			return nil, err
		}
		return conn, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	log.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return conn, nil
}

// Queue carries sell directives over a JetStream work queue. Directives are
// acked after handling; settlement is idempotent, so a redelivered directive
// resolves to a no-op.
type Queue struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
	logger  *zap.Logger
	sub     *nats.Subscription
}

func NewQueue(conn *nats.Conn, subject string, logger *zap.Logger) (*Queue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}
	q := &Queue{
		conn:    conn,
		js:      js,
		subject: subject,
		logger:  logger.Named("queue"),
	}
	if err := q.ensureStream(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Queue) ensureStream() error {
	_, err := q.js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{q.subject},
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("ensure stream %s: %w", streamName, err)
	}
	return nil
}

// PublishSell enqueues one sell directive.
func (q *Queue) PublishSell(ctx context.Context, d *SellDirective) error {
	if err := d.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode sell directive: %w", err)
	}
	if _, err := q.js.Publish(q.subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish sell directive: %w", err)
	}
	q.logger.Debug("sell directive published",
		zap.String("token", d.TokenAddress),
		zap.Float64("amount", d.Amount))
	return nil
}

// Subscribe consumes sell directives in the shared queue group. Every
// delivered message is acked, including failed ones: a directive that failed
// to settle is surfaced in the log, not redelivered forever.
func (q *Queue) Subscribe(ctx context.Context, handler func(context.Context, *SellDirective) error) error {
	sub, err := q.js.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		d, err := decodeDirective(msg.Data)
		if err != nil {
			q.logger.Warn("discarding malformed sell directive", zap.Error(err))
		} else if err := handler(ctx, d); err != nil {
			q.logger.Error("sell directive failed",
				zap.String("token", d.TokenAddress),
				zap.String("recommender_id", d.RecommenderID),
				zap.Error(err))
		}
		if err := msg.Ack(); err != nil {
			q.logger.Warn("failed to ack sell directive", zap.Error(err))
		}
	}, nats.ManualAck(), nats.AckWait(directiveAckWait))
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", q.subject, err)
	}
	q.sub = sub
	q.logger.Info("subscribed to sell directives", zap.String("subject", q.subject))
	return nil
}

// Close drains the subscription and closes the connection.
func (q *Queue) Close() {
	if q.sub != nil {
		if err := q.sub.Drain(); err != nil {
			q.logger.Warn("failed to drain subscription", zap.Error(err))
		}
	}
	q.conn.Close()
}
