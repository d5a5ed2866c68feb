package services

import (
	"context"
	"time"

	"monetization-ledger/internal/metrics"
	"monetization-ledger/internal/models"

	"github.com/sirupsen/logrus"
)

// EventHandler applies one envelope to the ledger.
type EventHandler interface {
	Dispatch(ctx context.Context, env models.EventEnvelope) error
}

// EventSink accepts envelopes for asynchronous recording.
type EventSink interface {
	Submit(ctx context.Context, env models.EventEnvelope) error
}

// EventQueue buffers envelopes in memory and applies them in batches so
// request paths never wait on ledger writes.
type EventQueue struct {
	events       chan models.EventEnvelope
	handler      EventHandler
	logger       *logrus.Logger
	batchSize    int
	batchTimeout time.Duration
	maxRetries   int
	retryBackoff time.Duration
}

var _ EventSink = (*EventQueue)(nil)

func NewEventQueue(handler EventHandler, logger *logrus.Logger, bufferSize, batchSize int, batchTimeout time.Duration) *EventQueue {
	return &EventQueue{
		events:       make(chan models.EventEnvelope, bufferSize),
		handler:      handler,
		logger:       logger,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		maxRetries:   3,
		retryBackoff: time.Second,
	}
}

// Enqueue never blocks; it reports false and drops env when the queue is full.
func (q *EventQueue) Enqueue(env models.EventEnvelope) bool {
	select {
	case q.events <- env:
		metrics.QueueSize.Set(float64(len(q.events)))
		return true
	default:
		metrics.QueueDropped.Inc()
		q.logger.WithFields(logrus.Fields{
			"event_id": env.ID,
			"type":     env.Type,
		}).Warn("Event queue is full, dropping event")
		return false
	}
}

func (q *EventQueue) Submit(ctx context.Context, env models.EventEnvelope) error {
	if !q.Enqueue(env) {
		return ErrQueueFull
	}
	return nil
}

func (q *EventQueue) Len() int {
	return len(q.events)
}

func (q *EventQueue) StartProcessor(ctx context.Context) {
	batch := make([]models.EventEnvelope, 0, q.batchSize)
	timer := time.NewTimer(q.batchTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Process remaining events
			batch = q.drain(batch)
			if len(batch) > 0 {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				q.processBatch(shutdownCtx, batch)
				cancel()
			}
			return
		case env := <-q.events:
			batch = append(batch, env)
			if len(batch) >= q.batchSize {
				q.processBatch(ctx, batch)
				batch = batch[:0]
				timer.Reset(q.batchTimeout)
			}
		case <-timer.C:
			if len(batch) > 0 {
				q.processBatch(ctx, batch)
				batch = batch[:0]
			}
			timer.Reset(q.batchTimeout)
		}
	}
}

func (q *EventQueue) drain(batch []models.EventEnvelope) []models.EventEnvelope {
	for {
		select {
		case env := <-q.events:
			batch = append(batch, env)
		default:
			return batch
		}
	}
}

func (q *EventQueue) processBatch(ctx context.Context, events []models.EventEnvelope) {
	for _, env := range events {
		q.process(ctx, env)
	}
	metrics.QueueSize.Set(float64(len(q.events)))
}

func (q *EventQueue) process(ctx context.Context, env models.EventEnvelope) {
	for i := 0; i < q.maxRetries; i++ {
		err := q.handler.Dispatch(ctx, env)
		if err == nil {
			return
		}

		entry := q.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": env.ID,
			"type":     env.Type,
		})
		if !IsTransient(err) {
			entry.Error("Dropping event that cannot be applied")
			return
		}
		entry.Warnf("Failed to apply event (attempt %d/%d)", i+1, q.maxRetries)
		if i == q.maxRetries-1 {
			entry.Error("Failed to apply event after all retries")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(i+1) * q.retryBackoff):
		}
	}
}
