package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"monetization-ledger/internal/logger"
	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository/memory"

	"github.com/stretchr/testify/suite"
)

type recordingQueue struct {
	mu     sync.Mutex
	events []models.EventEnvelope
}

func (q *recordingQueue) Enqueue(env models.EventEnvelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, env)
	return true
}

func (q *recordingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

type failingAdSource struct{}

func (failingAdSource) ListActiveAds(ctx context.Context, placement models.AdPlacement, limit int, now time.Time, excludeIDs []string) ([]models.Ad, error) {
	return nil, errors.New("ads table unavailable")
}

type FeedAssemblerTestSuite struct {
	suite.Suite

	ctx     context.Context
	store   *memory.Store
	queue   *recordingQueue
	feed    *FeedAssembler
	base    time.Time
	postIDs []string
}

func TestFeedAssembler(t *testing.T) {
	suite.Run(t, new(FeedAssemblerTestSuite))
}

func (s *FeedAssemblerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.queue = &recordingQueue{}
	s.base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.postIDs = nil

	selector := NewAdSelector(s.store, &recordingRanker{}, logger.Discard())
	s.feed = NewFeedAssembler(s.store, selector, s.queue, 20, 100, logger.Discard())

	s.store.PutFriendship(models.Friendship{UserA: "me", UserB: "friend", Status: models.FriendshipAccepted})
	s.store.PutFriendship(models.Friendship{UserA: "stranger", UserB: "me", Status: models.FriendshipPending})
}

// putPosts creates n visible posts, newest first, alternating authors.
func (s *FeedAssemblerTestSuite) putPosts(n int) {
	for i := 0; i < n; i++ {
		author := "me"
		if i%2 == 1 {
			author = "friend"
		}
		id := s.store.PutPost(models.Post{
			ID:         fmt.Sprintf("post-%02d", i),
			AuthorID:   author,
			Visibility: models.VisibilityFriends,
			CreatedAt:  s.base.Add(-time.Duration(i) * time.Minute),
		})
		s.postIDs = append(s.postIDs, id)
	}
}

func (s *FeedAssemblerTestSuite) putAds(n int) {
	for i := 0; i < n; i++ {
		s.store.PutAd(models.Ad{
			ID:        fmt.Sprintf("ad-%d", i),
			Placement: models.PlacementFeed,
			IsActive:  true,
			Priority:  n - i,
		})
	}
}

func postIDs(items []models.FeedItem) []string {
	var ids []string
	for _, item := range items {
		if p, ok := item.Data.(models.Post); ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (s *FeedAssemblerTestSuite) cursor(page models.FeedPage) *time.Time {
	s.Require().NotNil(page.Pagination.NextCursor)
	t, err := models.ParseCursor(*page.Pagination.NextCursor)
	s.Require().NoError(err)
	return &t
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_PagesWithoutGaps() {
	s.putPosts(25)

	var seen []string
	var cursor *time.Time
	wantSizes := []int{10, 10, 5}
	wantMore := []bool{true, true, false}

	for i := range wantSizes {
		page, err := s.feed.GetFeedWithCursor(s.ctx, "me", true, 10, cursor)
		s.Require().NoError(err)

		s.Len(page.Items, wantSizes[i], "page %d", i)
		s.Equal(wantMore[i], page.Pagination.HasMore, "page %d", i)
		seen = append(seen, postIDs(page.Items)...)

		if page.Pagination.HasMore {
			cursor = s.cursor(page)
		} else {
			s.Nil(page.Pagination.NextCursor)
		}
	}

	s.Equal(s.postIDs, seen)
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_ExcludesHiddenPosts() {
	s.putPosts(2)
	deleted := s.base.Add(-time.Hour)
	s.store.PutPost(models.Post{ID: "deleted", AuthorID: "me", Visibility: models.VisibilityFriends, CreatedAt: s.base, DeletedAt: &deleted})
	s.store.PutPost(models.Post{ID: "public", AuthorID: "friend", Visibility: models.VisibilityPublic, CreatedAt: s.base})
	s.store.PutPost(models.Post{ID: "pending-friend", AuthorID: "stranger", Visibility: models.VisibilityFriends, CreatedAt: s.base})
	s.store.PutPost(models.Post{ID: "private", AuthorID: "me", Visibility: models.VisibilityPrivate, CreatedAt: s.base.Add(time.Minute)})

	page, err := s.feed.GetFeedWithCursor(s.ctx, "me", true, 10, nil)
	s.Require().NoError(err)

	s.Equal([]string{"private", "post-00", "post-01"}, postIDs(page.Items))
	s.False(page.Pagination.HasMore)
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_AdBoundary() {
	s.putPosts(45)
	s.putAds(2)

	page, err := s.feed.GetFeedWithCursor(s.ctx, "me", false, 21, nil)
	s.Require().NoError(err)

	s.Require().Len(page.Items, 21)
	for i, item := range page.Items {
		if i == 20 {
			s.Equal(models.FeedItemAd, item.Type)
		} else {
			s.Equal(models.FeedItemPost, item.Type, "item %d", i)
		}
	}
	s.Equal(1, s.queue.len())
	s.True(page.Pagination.HasMore)

	next, err := s.feed.GetFeedWithCursor(s.ctx, "me", false, 19, s.cursor(page))
	s.Require().NoError(err)
	s.Len(next.Items, 19)
	for _, item := range next.Items {
		s.Equal(models.FeedItemPost, item.Type)
	}
	s.Equal("post-20", postIDs(next.Items)[0], "post displaced by the ad starts the next page")
	s.True(next.Pagination.HasMore)
	s.Equal(1, s.queue.len())
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_ShortPageHasNoAds() {
	s.putPosts(25)
	s.putAds(2)

	page, err := s.feed.GetFeedWithCursor(s.ctx, "me", false, 19, nil)
	s.Require().NoError(err)

	s.Len(page.Items, 19)
	for _, item := range page.Items {
		s.Equal(models.FeedItemPost, item.Type)
	}
	s.True(page.Pagination.HasMore)
	s.Zero(s.queue.len())
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_PremiumNeverSeesAds() {
	s.putPosts(60)
	s.putAds(3)

	page, err := s.feed.GetFeedWithCursor(s.ctx, "me", true, 100, nil)
	s.Require().NoError(err)

	s.Len(page.Items, 60)
	for _, item := range page.Items {
		s.Equal(models.FeedItemPost, item.Type)
	}
	s.Zero(s.queue.len())
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_CyclesAds() {
	feed := NewFeedAssembler(s.store, NewAdSelector(s.store, &recordingRanker{}, logger.Discard()), s.queue, 2, 100, logger.Discard())
	s.putPosts(10)
	s.putAds(1)

	page, err := feed.GetFeedWithCursor(s.ctx, "me", false, 6, nil)
	s.Require().NoError(err)

	types := make([]models.FeedItemType, 0, len(page.Items))
	for _, item := range page.Items {
		types = append(types, item.Type)
	}
	s.Equal([]models.FeedItemType{
		models.FeedItemPost, models.FeedItemPost, models.FeedItemAd,
		models.FeedItemPost, models.FeedItemPost, models.FeedItemAd,
	}, types)
	s.Equal(2, s.queue.len())

	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()
	for _, env := range s.queue.events {
		s.Equal(models.EventAdImpression, env.Type)
		s.Equal("ad-0", env.AdID)
		s.Require().NotNil(env.UserID)
		s.Equal("me", *env.UserID)
	}
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_AdFailureDegradesToPosts() {
	feed := NewFeedAssembler(s.store, failingAdSource{}, s.queue, 20, 100, logger.Discard())
	s.putPosts(25)

	page, err := feed.GetFeedWithCursor(s.ctx, "me", false, 21, nil)
	s.Require().NoError(err)

	s.Len(page.Items, 21)
	for _, item := range page.Items {
		s.Equal(models.FeedItemPost, item.Type)
	}
	s.Zero(s.queue.len())
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_LimitClamping() {
	feed := NewFeedAssembler(s.store, failingAdSource{}, s.queue, 20, 15, logger.Discard())
	s.putPosts(30)

	page, err := feed.GetFeedWithCursor(s.ctx, "me", true, 0, nil)
	s.Require().NoError(err)
	s.Len(page.Items, 10)

	page, err = feed.GetFeedWithCursor(s.ctx, "me", true, 500, nil)
	s.Require().NoError(err)
	s.Len(page.Items, 15)
}

func (s *FeedAssemblerTestSuite) TestGetFeedWithCursor_EmptyFeed() {
	page, err := s.feed.GetFeedWithCursor(s.ctx, "loner", false, 10, nil)
	s.Require().NoError(err)

	s.Empty(page.Items)
	s.False(page.Pagination.HasMore)
	s.Nil(page.Pagination.NextCursor)
}
