package mockkafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

type Reader struct {
	mock.Mock
}

func (m *Reader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *Reader) Close() error {
	args := m.Called()
	return args.Error(0)
}

type Writer struct {
	mock.Mock
}

func (m *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *Writer) Close() error {
	args := m.Called()
	return args.Error(0)
}
