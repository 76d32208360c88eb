package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_food/internal/orders/domain"
	"github.com/fjod/go_food/internal/orders/repository"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	TopicOrderPlaced = "order-placed"
	batchSize        = 100
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes order.placed outbox events to Kafka and marks them
// processed. Delivery is at least once: a failed mark is retried on the
// next tick and republishes the event.
type OutboxPoller struct {
	eventTick time.Duration
	repo      repository.OutboxRepository
	writer    messageWriter
	log       zerolog.Logger
}

func NewOutboxPoller(repo repository.OutboxRepository, log zerolog.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicOrderPlaced,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &OutboxPoller{
		eventTick: time.Second,
		repo:      repo,
		writer:    w,
		log:       log.With().Str("component", "outbox_poller").Logger(),
	}
}

// Run blocks until ctx is done.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to publish event")
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark event as processed")
			continue
		}
		p.log.Debug().Str("event_id", event.ID.String()).Str("order_id", event.AggregateID).Msg("event published")
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
