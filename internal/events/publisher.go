// Package events отправляет события outbox в Kafka.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mmeshcher/barbershop-ledger/internal/metrics"
	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// Outbox описывает хранилище неотправленных событий.
type Outbox interface {
	FetchUnpublishedEvents(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkEventsPublished(ctx context.Context, ids []int64) error
}

// MessageWriter — часть kafka.Writer, нужная издателю.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config задаёт параметры издателя.
type Config struct {
	Brokers   []string
	Topic     string
	PollEvery time.Duration
	BatchSize int
}

// Publisher периодически забирает события из outbox и пишет их в топик.
type Publisher struct {
	outbox    Outbox
	writer    MessageWriter
	logger    *zap.Logger
	pollEvery time.Duration
	batchSize int
}

// NewPublisher создаёт издателя. Если брокеры не заданы, возвращает nil:
// события остаются в outbox.
func NewPublisher(outbox Outbox, logger *zap.Logger, cfg Config) *Publisher {
	if len(cfg.Brokers) == 0 {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newPublisher(outbox, writer, logger, cfg)
}

func newPublisher(outbox Outbox, writer MessageWriter, logger *zap.Logger, cfg Config) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		outbox:    outbox,
		writer:    writer,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

// Run отправляет события до отмены контекста.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := p.publishBatch(ctx)
			metrics.RecordOutbox(n, err)
			if err != nil && ctx.Err() == nil {
				p.logger.Error("outbox publish failed", zap.Int("events", n), zap.Error(err))
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) (int, error) {
	events, err := p.outbox.FetchUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	ctx, span := otel.Tracer("barbershop/events").Start(ctx, "outbox.publish")
	defer span.End()
	span.SetAttributes(attribute.Int("outbox.batch_size", len(events)))

	msgs := make([]kafka.Message, 0, len(events))
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, toMessage(ctx, e))
		ids = append(ids, e.ID)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write messages")
		return len(events), fmt.Errorf("write messages: %w", err)
	}

	// Повторная отправка после сбоя здесь возможна; получатели различают события по event_id.
	if err := p.outbox.MarkEventsPublished(ctx, ids); err != nil {
		return len(events), fmt.Errorf("mark published: %w", err)
	}

	p.logger.Debug("outbox events published", zap.Int("events", len(events)))
	return len(events), nil
}

func toMessage(ctx context.Context, e model.OutboxEvent) kafka.Message {
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(e.EventID)},
		{Key: "event_type", Value: []byte(e.EventType)},
	}
	return kafka.Message{
		Key:     []byte(e.AggregateID),
		Value:   e.Payload,
		Headers: injectTraceHeaders(ctx, headers),
		Time:    e.CreatedAt,
	}
}

// SplitBrokers разбирает список брокеров через запятую.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
