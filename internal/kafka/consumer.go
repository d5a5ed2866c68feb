package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"monetization-ledger/internal/models"
	"monetization-ledger/internal/services"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaReader(brokerURL, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{brokerURL},
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
}

// Consumer applies envelopes from a topic and commits each message only
// once it has been applied or found undecodable.
type Consumer struct {
	reader       MessageReader
	logger       *logrus.Logger
	maxRetries   int
	retryBackoff time.Duration
}

func NewConsumer(reader MessageReader, logger *logrus.Logger) *Consumer {
	return &Consumer{
		reader:       reader,
		logger:       logger,
		maxRetries:   5,
		retryBackoff: time.Second,
	}
}

// Run blocks until ctx is done or a message keeps failing with a transient
// error, in which case it is left uncommitted for redelivery.
func (c *Consumer) Run(ctx context.Context, handler services.EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.WithError(err).Error("Failed to read message from Kafka")
			return fmt.Errorf("failed to read message: %w", err)
		}

		c.logger.WithFields(logrus.Fields{
			"key":       string(message.Key),
			"topic":     message.Topic,
			"partition": message.Partition,
			"offset":    message.Offset,
		}).Debug("Successfully read message from Kafka")

		if err := c.handle(ctx, message, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit message: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, message kafka.Message, handler services.EventHandler) error {
	var env models.EventEnvelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		c.logger.WithError(err).WithField("offset", message.Offset).Error("Skipping undecodable message")
		return nil
	}
	if env.ID == "" {
		env.ID = string(message.Key)
	}

	for attempt := 1; ; attempt++ {
		err := handler.Dispatch(ctx, env)
		if err == nil {
			return nil
		}
		entry := c.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": env.ID,
			"attempt":  attempt,
		})
		if !services.IsTransient(err) {
			entry.Error("Skipping event that cannot be applied")
			return nil
		}
		if attempt >= c.maxRetries {
			entry.Error("Giving up on event after all retries")
			return fmt.Errorf("apply event %s: %w", env.ID, err)
		}
		entry.Warn("Failed to apply event, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.retryBackoff):
		}
	}
}

func (c *Consumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
