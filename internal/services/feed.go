package services

import (
	"context"
	"fmt"
	"time"

	"monetization-ledger/internal/metrics"
	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultFeedLimit = 10
	maxAdsPerPage    = 10
)

// AdSource supplies eligible ads for a placement.
type AdSource interface {
	ListActiveAds(ctx context.Context, placement models.AdPlacement, limit int, now time.Time, excludeIDs []string) ([]models.Ad, error)
}

// ImpressionQueue takes impression envelopes without blocking.
type ImpressionQueue interface {
	Enqueue(env models.EventEnvelope) bool
}

type FeedAssembler struct {
	social      repository.SocialRepository
	ads         AdSource
	impressions ImpressionQueue
	adInterval  int
	maxLimit    int
	logger      *logrus.Logger
	now         func() time.Time
}

func NewFeedAssembler(social repository.SocialRepository, ads AdSource, impressions ImpressionQueue, adInterval, maxLimit int, logger *logrus.Logger) *FeedAssembler {
	return &FeedAssembler{
		social:      social,
		ads:         ads,
		impressions: impressions,
		adInterval:  adInterval,
		maxLimit:    maxLimit,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetFeedWithCursor returns posts by the user and accepted friends, newest
// first and older than cursor, with one ad after every adInterval posts for
// non-premium users. Ad path failures degrade to a post-only page.
func (f *FeedAssembler) GetFeedWithCursor(ctx context.Context, userID string, isPremium bool, limit int, cursor *time.Time) (models.FeedPage, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > f.maxLimit {
		limit = f.maxLimit
	}

	friendIDs, err := f.social.ListAcceptedFriendIDs(ctx, userID)
	if err != nil {
		return models.FeedPage{}, fmt.Errorf("list friends: %w", err)
	}
	authors := uniqueIDs(append(friendIDs, userID))

	fetched, err := f.social.ListFeedPosts(ctx, authors, cursor, limit+1)
	if err != nil {
		return models.FeedPage{}, fmt.Errorf("list posts: %w", err)
	}
	posts := fetched
	if len(posts) > limit {
		posts = posts[:limit]
	}

	var ads []models.Ad
	if slots := len(posts) / f.adInterval; !isPremium && slots > 0 {
		ads = f.feedAds(ctx, userID, slots)
	}

	items := make([]models.FeedItem, 0, len(posts)+len(ads))
	adIndex := 0
	for i, p := range posts {
		items = append(items, models.PostItem(p))
		if len(ads) > 0 && (i+1)%f.adInterval == 0 {
			items = append(items, models.AdItem(ads[adIndex%len(ads)]))
			adIndex++
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}

	page := models.FeedPage{Items: items}
	var lastPost *models.Post
	included := 0
	for i := range items {
		switch data := items[i].Data.(type) {
		case models.Post:
			p := data
			lastPost = &p
			included++
		case models.Ad:
			f.trackImpression(userID, data)
		}
	}

	page.Pagination.HasMore = len(fetched) > included
	if page.Pagination.HasMore && lastPost != nil {
		next := models.FormatCursor(lastPost.CreatedAt)
		page.Pagination.NextCursor = &next
	}
	return page, nil
}

func (f *FeedAssembler) feedAds(ctx context.Context, userID string, slots int) []models.Ad {
	if slots > maxAdsPerPage {
		slots = maxAdsPerPage
	}
	ads, err := f.ads.ListActiveAds(ctx, models.PlacementFeed, slots, f.now(), nil)
	if err != nil {
		metrics.FeedAdPathFailures.Inc()
		f.logger.WithError(err).WithField("user_id", userID).Warn("Ad selection failed, serving posts only")
		return nil
	}
	return ads
}

func (f *FeedAssembler) trackImpression(userID string, ad models.Ad) {
	metrics.FeedAdsInserted.Inc()
	uid := userID
	f.impressions.Enqueue(models.EventEnvelope{
		ID:     uuid.NewString(),
		Type:   models.EventAdImpression,
		AdID:   ad.ID,
		UserID: &uid,
		Count:  1,
		At:     f.now(),
	})
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
