package cache

import (
	"testing"
	"time"

	"monetization-ledger/internal/logger"
	"monetization-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCache_SetGet(t *testing.T) {
	c, err := New(1, time.Minute, logger.Discard())
	require.NoError(t, err)
	defer c.Close()

	snap := models.DailySnapshot{Day: "2025-10-24", DAU: 12, MRR: decimal.NewFromInt(4900)}
	require.True(t, c.Set(snap))

	got, ok := c.Get("2025-10-24")
	require.True(t, ok)
	assert.Equal(t, int64(12), got.DAU)
	assert.True(t, got.MRR.Equal(decimal.NewFromInt(4900)))

	_, ok = c.Get("2025-10-25")
	assert.False(t, ok)
}

func TestSnapshotCache_Delete(t *testing.T) {
	c, err := New(1, time.Minute, logger.Discard())
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Set(models.DailySnapshot{Day: "2025-10-24"}))
	c.Delete("2025-10-24")

	_, ok := c.Get("2025-10-24")
	assert.False(t, ok)
}
