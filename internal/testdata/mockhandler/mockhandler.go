package mockhandler

import (
	"context"

	"monetization-ledger/internal/models"

	"github.com/stretchr/testify/mock"
)

type Handler struct {
	mock.Mock
}

func (m *Handler) Dispatch(ctx context.Context, env models.EventEnvelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}
