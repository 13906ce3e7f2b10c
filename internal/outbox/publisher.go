// Package outbox delivers order events recorded in the transactional outbox
// to Kafka.
package outbox

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/drinkhub/internal/domain/order"
)

const defaultBatchSize = 100

// Source lists and acknowledges outbox events.
type Source interface {
	Pending(ctx context.Context, limit int) ([]order.Event, error)
	MarkPublished(ctx context.Context, id string) error
}

// Writer is satisfied by *kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter returns a writer producing to topic on the given brokers.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// Publisher polls the outbox and forwards events in append order.
type Publisher struct {
	source    Source
	writer    Writer
	interval  time.Duration
	batchSize int
}

// NewPublisher returns a Publisher polling every interval.
func NewPublisher(source Source, writer Writer, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{
		source:    source,
		writer:    writer,
		interval:  interval,
		batchSize: defaultBatchSize,
	}
}

// Run polls until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Flush(ctx); err != nil && ctx.Err() == nil {
				zctx.From(ctx).Warn("Outbox flush failed", zap.Error(err))
			}
		}
	}
}

// Flush publishes one batch of pending events and returns how many were
// delivered. It stops at the first failure so later events of the same
// order are never delivered ahead of earlier ones.
func (p *Publisher) Flush(ctx context.Context) (int, error) {
	events, err := p.source.Pending(ctx, p.batchSize)
	if err != nil {
		return 0, errors.Wrap(err, "list pending")
	}

	for i, e := range events {
		msg := kafka.Message{
			Key:   []byte(e.Key),
			Value: e.Payload,
			Time:  e.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
				{Key: "event_id", Value: []byte(e.ID)},
			},
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			return i, errors.Wrapf(err, "publish %s", e.ID)
		}
		// A failed acknowledgement re-delivers the event on the next poll.
		if err := p.source.MarkPublished(ctx, e.ID); err != nil {
			return i, errors.Wrapf(err, "mark %s", e.ID)
		}
		zctx.From(ctx).Debug("Event published",
			zap.String("event_id", e.ID),
			zap.String("type", e.Type),
			zap.String("order_id", e.Key),
		)
	}
	return len(events), nil
}
