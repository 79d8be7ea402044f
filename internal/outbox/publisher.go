// Package outbox relays stored appointment notifications to Kafka.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/metrics"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/repository"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/telemetry"
)

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	// Topic receives every event. Empty means one topic per event type.
	Topic     string
	PollEvery time.Duration
	BatchSize int
}

type Publisher struct {
	repo      repository.OutboxRepository
	writer    Writer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	topic     string
	pollEvery time.Duration
	batchSize int
	now       func() time.Time
}

func NewPublisher(repo repository.OutboxRepository, writer Writer, logger *slog.Logger, m *metrics.Metrics, cfg Config) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		repo:      repo,
		writer:    writer,
		logger:    logger,
		metrics:   m,
		topic:     cfg.Topic,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewKafkaWriter returns a writer keyed by aggregate id, or nil when no broker
// is configured.
func NewKafkaWriter(brokers string) *kafka.Writer {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		return nil
	}
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:  list,
		Balancer: &kafka.Hash{},
	})
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Run polls the outbox until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}
	defer p.writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishBatch sends one batch in creation order and returns how many events
// were published. It stops at the first failed write so later events of the
// same appointment are never published ahead of it.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	records, err := p.repo.FetchUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(records))
	var writeErr error
	for _, r := range records {
		if err := p.writer.WriteMessages(ctx, p.message(ctx, r)); err != nil {
			writeErr = fmt.Errorf("write %s %s: %w", r.EventType, r.ID, err)
			if markErr := p.repo.MarkFailed(ctx, r.ID, err.Error()); markErr != nil {
				p.logger.Error("outbox mark failed", "event_id", r.ID, "err", markErr)
			}
			p.metrics.ObserveOutbox("failed", 1)
			break
		}
		published = append(published, r.ID)
	}

	if err := p.repo.MarkPublished(ctx, published, p.now()); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}
	p.metrics.ObserveOutbox("published", len(published))
	return len(published), writeErr
}

func (p *Publisher) message(ctx context.Context, r model.OutboxEvent) kafka.Message {
	topic := p.topic
	if topic == "" {
		topic = string(r.EventType)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(r.AggregateID.String()),
		Value: r.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(r.ID.String())},
			{Key: "event_type", Value: []byte(r.EventType)},
		},
	}
	msg.Headers = telemetry.InjectKafkaHeaders(ctx, msg.Headers)
	return msg
}
