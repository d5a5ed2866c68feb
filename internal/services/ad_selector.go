package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultAdLimit = 5
	adOverfetch    = 3
)

// AdRanker orders eligible candidates before truncation.
type AdRanker interface {
	Rank(ads []models.Ad) []models.Ad
}

// ShuffleRanker applies a uniform random permutation.
type ShuffleRanker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffleRanker(src rand.Source) *ShuffleRanker {
	return &ShuffleRanker{rnd: rand.New(src)}
}

func (r *ShuffleRanker) Rank(ads []models.Ad) []models.Ad {
	out := append([]models.Ad(nil), ads...)
	r.mu.Lock()
	r.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	r.mu.Unlock()
	return out
}

type AdSelector struct {
	ads    repository.AdRepository
	ranker AdRanker
	logger *logrus.Logger
	now    func() time.Time
}

func NewAdSelector(ads repository.AdRepository, ranker AdRanker, logger *logrus.Logger) *AdSelector {
	if ranker == nil {
		ranker = NewShuffleRanker(rand.NewSource(time.Now().UnixNano()))
	}
	return &AdSelector{
		ads:    ads,
		ranker: ranker,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListActiveAds over-fetches 3x limit candidates by priority then recency,
// ranks the whole slice and returns the first limit.
func (s *AdSelector) ListActiveAds(ctx context.Context, placement models.AdPlacement, limit int, now time.Time, excludeIDs []string) ([]models.Ad, error) {
	if limit <= 0 {
		limit = defaultAdLimit
	}
	if now.IsZero() {
		now = s.now()
	}

	candidates, err := s.ads.ListEligibleAds(ctx, placement, now, excludeIDs, limit*adOverfetch)
	if err != nil {
		return nil, err
	}

	ranked := s.ranker.Rank(candidates)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// FeedAdsForUser returns nothing for users inside a premium window.
func (s *AdSelector) FeedAdsForUser(ctx context.Context, user *models.User, limit int, excludeIDs []string) ([]models.Ad, error) {
	now := s.now()
	if !IsEligibleForAds(user, now) {
		return nil, nil
	}
	return s.ListActiveAds(ctx, models.PlacementFeed, limit, now, excludeIDs)
}

// IsEligibleForAds is false while the user's premium window is open, i.e. a
// trialing/active/grace status with a future expiry.
func IsEligibleForAds(user *models.User, now time.Time) bool {
	if user == nil {
		return true
	}
	switch user.PremiumStatus {
	case models.PremiumTrialing, models.PremiumActive, models.PremiumGrace:
		return user.PremiumExpiresAt == nil || !user.PremiumExpiresAt.After(now)
	}
	return true
}
