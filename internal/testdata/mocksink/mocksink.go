package mocksink

import (
	"context"

	"monetization-ledger/internal/models"
	"monetization-ledger/internal/services"

	"github.com/stretchr/testify/mock"
)

type Sink struct {
	mock.Mock
}

// Interface compliance check
var _ services.EventSink = &Sink{}

func (m *Sink) Submit(ctx context.Context, env models.EventEnvelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}
