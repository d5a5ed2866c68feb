package cache

import (
	"time"

	"monetization-ledger/internal/models"

	"github.com/dgraph-io/ristretto"
	"github.com/sirupsen/logrus"
)

// SnapshotCache keeps the last computed snapshot per day so reads can fall
// back to it when recomputation times out.
type SnapshotCache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

func New(maxSizeMB int, ttl time.Duration, logger *logrus.Logger) (*SnapshotCache, error) {
	maxCost := int64(maxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"max_size_mb": maxSizeMB,
		"ttl":         ttl.String(),
	}).Info("Snapshot cache initialized")

	return &SnapshotCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func (c *SnapshotCache) Get(day string) (models.DailySnapshot, bool) {
	v, ok := c.client.Get(day)
	if !ok {
		return models.DailySnapshot{}, false
	}
	snap, ok := v.(models.DailySnapshot)
	return snap, ok
}

// Set stores snap under its day and waits until it is visible to Get.
func (c *SnapshotCache) Set(snap models.DailySnapshot) bool {
	ok := c.client.SetWithTTL(snap.Day, snap, 1, c.ttl)
	c.client.Wait()
	return ok
}

func (c *SnapshotCache) Delete(day string) {
	c.client.Del(day)
}

func (c *SnapshotCache) Close() {
	c.client.Close()
}
