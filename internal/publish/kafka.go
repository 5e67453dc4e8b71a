package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/detect"
)

// Publisher ships one feed event. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, reactorID string, ev detect.Event) error
	Close() error
}

// kafkaPublisher writes events as JSON messages keyed by reactor ID,
// so one reactor's events stay ordered within a partition.
type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafka builds a Kafka publisher from the configuration. It returns
// (nil, nil) when no brokers are configured; callers treat a nil
// Publisher as publishing disabled.
func NewKafka(cfg config.KafkaConfig) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("publish: kafka brokers set but topic empty")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &kafkaPublisher{writer: w}, nil
}

type eventMessage struct {
	ReactorID string       `json:"reactor_id"`
	Event     detect.Event `json:"event"`
}

func (p *kafkaPublisher) Publish(ctx context.Context, reactorID string, ev detect.Event) error {
	payload, err := json.Marshal(eventMessage{ReactorID: reactorID, Event: ev})
	if err != nil {
		return fmt.Errorf("publish: encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(reactorID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish: write message: %w", err)
	}
	slog.Debug("publish: feed event shipped", "reactor", reactorID, "timestamp", ev.Timestamp)
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
