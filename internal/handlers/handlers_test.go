package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"monetization-ledger/internal/cache"
	"monetization-ledger/internal/lock"
	"monetization-ledger/internal/logger"
	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository/memory"
	"monetization-ledger/internal/services"
	"monetization-ledger/internal/testdata/mocksink"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type discardQueue struct{}

func (discardQueue) Enqueue(models.EventEnvelope) bool { return true }

type ServerTestSuite struct {
	suite.Suite

	store  *memory.Store
	sink   *mocksink.Sink
	router *gin.Engine
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.Discard()

	s.store = memory.New()
	s.sink = &mocksink.Sink{}

	snapshots, err := cache.New(1, time.Hour, log)
	s.Require().NoError(err)
	s.T().Cleanup(snapshots.Close)

	locker := lock.NewLocal()
	amortizer := services.NewAmortizer(s.store, s.store, locker, "VND", log)
	selector := services.NewAdSelector(s.store, nil, log)

	server := NewServer(Dependencies{
		Logger:    log,
		Users:     s.store,
		Ads:       s.store,
		Feed:      services.NewFeedAssembler(s.store, selector, discardQueue{}, 20, 100, log),
		Premium:   services.NewPremiumResolver(s.store, log),
		Snapshots: services.NewMetricsComputer(s.store, amortizer, locker, snapshots, time.Second, "VND", log),
		Reports:   services.NewReportService(s.store, "VND", log),
		Sink:      s.sink,
	})

	s.router = gin.New()
	server.RegisterRoutes(s.router)
}

func (s *ServerTestSuite) TearDownTest() {
	s.sink.AssertExpectations(s.T())
}

func (s *ServerTestSuite) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			s.Require().NoError(json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ServerTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v))
}

func (s *ServerTestSuite) TestHealthAndMetrics() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health", nil, nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/metrics", nil, nil).Code)
}

func (s *ServerTestSuite) TestGetFeed() {
	userID := s.store.PutUser(models.User{Username: "linh", PremiumStatus: models.PremiumNone})
	for i := 0; i < 3; i++ {
		s.store.PutPost(models.Post{
			AuthorID:   userID,
			Visibility: models.VisibilityFriends,
			CreatedAt:  time.Date(2025, 3, 10, 12, i, 0, 0, time.UTC),
		})
	}

	tests := []struct {
		name       string
		path       string
		headers    map[string]string
		wantStatus int
	}{
		{name: "missing user header", path: "/api/v1/feed", wantStatus: http.StatusBadRequest},
		{name: "unknown user", path: "/api/v1/feed", headers: map[string]string{"X-User-ID": "ghost"}, wantStatus: http.StatusNotFound},
		{name: "bad limit", path: "/api/v1/feed?limit=ten", headers: map[string]string{"X-User-ID": userID}, wantStatus: http.StatusBadRequest},
		{name: "bad cursor", path: "/api/v1/feed?cursor=yesterday", headers: map[string]string{"X-User-ID": userID}, wantStatus: http.StatusBadRequest},
		{name: "ok", path: "/api/v1/feed?limit=2", headers: map[string]string{"X-User-ID": userID}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodGet, tt.path, nil, tt.headers)
			s.Equal(tt.wantStatus, w.Code)
		})
	}

	w := s.do(http.MethodGet, "/api/v1/feed?limit=2", nil, map[string]string{"X-User-ID": userID})
	var page struct {
		Items      []models.FeedItem `json:"items"`
		Pagination models.Pagination `json:"pagination"`
	}
	s.decode(w, &page)
	s.Len(page.Items, 2)
	s.True(page.Pagination.HasMore)
	s.Require().NotNil(page.Pagination.NextCursor)

	w = s.do(http.MethodGet, "/api/v1/feed?limit=2&cursor="+*page.Pagination.NextCursor, nil, map[string]string{"X-User-ID": userID})
	s.Equal(http.StatusOK, w.Code)
	s.decode(w, &page)
	s.Len(page.Items, 1)
	s.False(page.Pagination.HasMore)
}

func (s *ServerTestSuite) TestPostEvent() {
	s.sink.On("Submit", mock.Anything, mock.MatchedBy(func(env models.EventEnvelope) bool {
		return env.ID != "" && env.Type == models.EventInvoicePaid && env.InvoiceID == "inv-1" && !env.At.IsZero()
	})).Return(nil).Once()

	w := s.do(http.MethodPost, "/api/v1/events", map[string]string{"type": "invoice.paid", "invoiceId": "inv-1"}, nil)
	s.Equal(http.StatusAccepted, w.Code)

	var resp map[string]string
	s.decode(w, &resp)
	s.Equal("accepted", resp["status"])
	s.NotEmpty(resp["id"])
}

func (s *ServerTestSuite) TestPostEvent_Rejected() {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "malformed json", body: "{"},
		{name: "missing type", body: map[string]string{"invoiceId": "inv-1"}},
		{name: "unknown type", body: map[string]string{"type": "payout.sent"}},
		{name: "missing reference", body: map[string]string{"type": "refund.succeeded"}},
		{name: "negative count", body: map[string]interface{}{"type": "ad.click", "adId": "ad-1", "count": -2}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/api/v1/events", tt.body, nil)
			s.Equal(http.StatusBadRequest, w.Code)
		})
	}
	s.sink.AssertNotCalled(s.T(), "Submit", mock.Anything, mock.Anything)
}

func (s *ServerTestSuite) TestPostEvent_SinkUnavailable() {
	s.sink.On("Submit", mock.Anything, mock.Anything).Return(services.ErrQueueFull).Once()

	w := s.do(http.MethodPost, "/api/v1/events", map[string]string{"type": "ad.impression", "adId": "ad-1"}, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *ServerTestSuite) TestPostClick() {
	adID := s.store.PutAd(models.Ad{Name: "Promo", Placement: models.PlacementFeed, IsActive: true})
	s.sink.On("Submit", mock.Anything, mock.MatchedBy(func(env models.EventEnvelope) bool {
		return env.Type == models.EventAdClick && env.AdID == adID && env.Count == 1 &&
			env.UserID != nil && *env.UserID == "u-1"
	})).Return(nil).Once()

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/ads/%s/click", adID), nil, map[string]string{"X-User-ID": "u-1"})
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/ads/missing/click", nil, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestPostClick_SinkError() {
	adID := s.store.PutAd(models.Ad{Name: "Promo", Placement: models.PlacementFeed, IsActive: true})
	s.sink.On("Submit", mock.Anything, mock.Anything).Return(errors.New("broker unavailable")).Once()

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/ads/%s/click", adID), nil, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *ServerTestSuite) TestGetSnapshot() {
	paid := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	invoiceID := s.store.PutInvoice(models.Invoice{
		Status:      models.InvoicePaid,
		GrossAmount: decimal.NewFromInt(120000),
		NetAmount:   decimal.NewFromInt(100000),
		PaidAt:      &paid,
	})
	recorder := services.NewRecorder(s.store, "VND", logger.Discard())
	s.Require().NoError(recorder.RecordInvoicePaid(context.Background(), invoiceID))

	w := s.do(http.MethodGet, "/api/v1/admin/snapshots/2025-03-10", nil, nil)
	s.Equal(http.StatusOK, w.Code)

	var snap models.DailySnapshot
	s.decode(w, &snap)
	s.Equal("2025-03-10", snap.Day)
	s.Equal("100000", snap.SubsNet.String())
	s.False(snap.Stale)

	w = s.do(http.MethodGet, "/api/v1/admin/snapshots/10-03-2025", nil, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ServerTestSuite) TestReports() {
	adID := s.store.PutAd(models.Ad{Name: "Promo", Placement: models.PlacementFeed, ImpressionCount: 200, ClickCount: 10})

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "revenue ok", path: "/api/v1/admin/reports/revenue?startDate=2025-03-01&endDate=2025-03-10", wantStatus: http.StatusOK},
		{name: "revenue missing dates", path: "/api/v1/admin/reports/revenue?startDate=2025-03-01", wantStatus: http.StatusBadRequest},
		{name: "revenue bad date", path: "/api/v1/admin/reports/revenue?startDate=March&endDate=2025-03-10", wantStatus: http.StatusBadRequest},
		{name: "revenue reversed", path: "/api/v1/admin/reports/revenue?startDate=2025-03-10&endDate=2025-03-01", wantStatus: http.StatusBadRequest},
		{name: "ad ok", path: "/api/v1/admin/reports/ad-performance?adId=" + adID + "&startDate=2025-03-01&endDate=2025-03-10", wantStatus: http.StatusOK},
		{name: "ad missing id", path: "/api/v1/admin/reports/ad-performance?startDate=2025-03-01&endDate=2025-03-10", wantStatus: http.StatusBadRequest},
		{name: "ad unknown", path: "/api/v1/admin/reports/ad-performance?adId=ghost&startDate=2025-03-01&endDate=2025-03-10", wantStatus: http.StatusNotFound},
		{name: "dashboard default", path: "/api/v1/admin/dashboard/revenue", wantStatus: http.StatusOK},
		{name: "dashboard bad days", path: "/api/v1/admin/dashboard/revenue?days=week", wantStatus: http.StatusBadRequest},
		{name: "dashboard too many days", path: "/api/v1/admin/dashboard/revenue?days=400", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodGet, tt.path, nil, nil)
			s.Equal(tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w := s.do(http.MethodGet, "/api/v1/admin/reports/ad-performance?adId="+adID+"&startDate=2025-03-01&endDate=2025-03-10", nil, nil)
	var report models.AdPerformanceReport
	s.decode(w, &report)
	s.Equal(models.AdReportFromLifetime, report.Source)
	s.Equal(5.00, report.CTR)

	w = s.do(http.MethodGet, "/api/v1/admin/dashboard/revenue?days=7", nil, nil)
	var dashboard struct {
		Days   int                   `json:"days"`
		Series []models.RevenuePoint `json:"series"`
	}
	s.decode(w, &dashboard)
	s.Equal(7, dashboard.Days)
	s.Len(dashboard.Series, 7)

	w = s.do(http.MethodGet, "/api/v1/admin/dashboard/revenue?days=0", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.decode(w, &dashboard)
	s.Equal(30, dashboard.Days, "days echoes the window actually served")
	s.Len(dashboard.Series, 30)
}

func (s *ServerTestSuite) TestGetDashboardSummary() {
	paid := time.Now().UTC()
	s.store.PutInvoice(models.Invoice{Status: models.InvoicePaid, NetAmount: decimal.NewFromInt(90000), PaidAt: &paid})
	s.store.PutRefund(models.Refund{Status: models.RefundPending, Amount: decimal.NewFromInt(1000)})
	s.store.PutAd(models.Ad{Name: "Live", Placement: models.PlacementFeed, IsActive: true})

	w := s.do(http.MethodGet, "/api/v1/admin/dashboard/summary", nil, nil)
	s.Equal(http.StatusOK, w.Code)

	var summary models.DashboardSummary
	s.decode(w, &summary)
	s.Equal(paid.Format("2006-01"), summary.Month)
	s.Equal("90000", summary.Revenue.ThisMonth.String())
	s.Equal("VND", summary.Revenue.Currency)
	s.Equal(int64(1), summary.Refunds.Pending)
	s.Equal(int64(1), summary.Ads.Active)
}

// feedAdCount seeds posts and one ad visible to userID and counts the ads
// served on a 21 item page.
func (s *ServerTestSuite) feedAdCount(userID string) int {
	for i := 0; i < 25; i++ {
		s.store.PutPost(models.Post{
			AuthorID:   userID,
			Visibility: models.VisibilityFriends,
			CreatedAt:  time.Date(2025, 3, 10, 12, i, 0, 0, time.UTC),
		})
	}
	s.store.PutAd(models.Ad{Name: "Promo", Placement: models.PlacementFeed, IsActive: true})

	w := s.do(http.MethodGet, "/api/v1/feed?limit=21", nil, map[string]string{"X-User-ID": userID})
	s.Require().Equal(http.StatusOK, w.Code)

	var page struct {
		Items []models.FeedItem `json:"items"`
	}
	s.decode(w, &page)
	s.Require().Len(page.Items, 21)

	ads := 0
	for _, item := range page.Items {
		if item.Type == models.FeedItemAd {
			ads++
		}
	}
	return ads
}

func (s *ServerTestSuite) TestGetFeed_FreeUserSeesAds() {
	userID := s.store.PutUser(models.User{Username: "free", PremiumStatus: models.PremiumNone})
	s.Equal(1, s.feedAdCount(userID))
}

func (s *ServerTestSuite) TestGetFeed_ActiveSubscriberSeesNoAds() {
	userID := s.store.PutUser(models.User{Username: "subscriber", PremiumStatus: models.PremiumNone})
	s.store.PutSubscription(models.Subscription{
		UserID:           userID,
		Status:           models.SubscriptionActive,
		StartAt:          time.Now().Add(-24 * time.Hour),
		CurrentPeriodEnd: time.Now().Add(24 * time.Hour),
	})

	s.Zero(s.feedAdCount(userID))
}

func (s *ServerTestSuite) TestGetFeed_LapsedSubscriptionSeesAds() {
	userID := s.store.PutUser(models.User{Username: "lapsed", PremiumStatus: models.PremiumNone})
	s.store.PutSubscription(models.Subscription{
		UserID:           userID,
		Status:           models.SubscriptionActive,
		StartAt:          time.Now().Add(-60 * 24 * time.Hour),
		CurrentPeriodEnd: time.Now().Add(-time.Hour),
	})

	s.Equal(1, s.feedAdCount(userID))
}

func (s *ServerTestSuite) TestGetFeed_PremiumWindowSeesNoAds() {
	expires := time.Now().Add(48 * time.Hour)
	userID := s.store.PutUser(models.User{Username: "premium", PremiumStatus: models.PremiumActive, PremiumExpiresAt: &expires})
	s.Zero(s.feedAdCount(userID))
}
