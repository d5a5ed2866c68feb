package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"monetization-ledger/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokerURL, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokerURL),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// Producer publishes ledger envelopes keyed by event id.
type Producer struct {
	writer MessageWriter
	logger *logrus.Logger
}

func NewProducer(writer MessageWriter, logger *logrus.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
	}
}

func (p *Producer) Submit(ctx context.Context, env models.EventEnvelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.ID),
		Value: value,
	})
	if err != nil {
		p.logger.WithError(err).WithField("event_id", env.ID).Error("Failed to write message to Kafka")
		return fmt.Errorf("failed to write message: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id": env.ID,
		"type":     env.Type,
	}).Debug("Published ledger event")
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
