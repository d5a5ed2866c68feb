package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"
	"monetization-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type FeedProvider interface {
	GetFeedWithCursor(ctx context.Context, userID string, isPremium bool, limit int, cursor *time.Time) (models.FeedPage, error)
}

type PremiumChecker interface {
	IsPremium(ctx context.Context, user *models.User, now time.Time) bool
}

type SnapshotProvider interface {
	GetOrComputeDailySnapshot(ctx context.Context, day time.Time) (models.DailySnapshot, error)
}

type ReportProvider interface {
	DailyRevenueSummary(ctx context.Context, start, end time.Time) (models.RevenueSummary, error)
	AdPerformanceReport(ctx context.Context, adID string, start, end time.Time) (models.AdPerformanceReport, error)
	RevenueSeries(ctx context.Context, days int) ([]models.RevenuePoint, error)
	DashboardSummary(ctx context.Context) (models.DashboardSummary, error)
}

type Dependencies struct {
	Logger    *logrus.Logger
	Users     repository.UserRepository
	Ads       repository.AdRepository
	Feed      FeedProvider
	Premium   PremiumChecker
	Snapshots SnapshotProvider
	Reports   ReportProvider
	Sink      services.EventSink
}

type Server struct {
	logger    *logrus.Logger
	users     repository.UserRepository
	ads       repository.AdRepository
	feed      FeedProvider
	premium   PremiumChecker
	snapshots SnapshotProvider
	reports   ReportProvider
	sink      services.EventSink
	now       func() time.Time
}

func NewServer(deps Dependencies) *Server {
	return &Server{
		logger:    deps.Logger,
		users:     deps.Users,
		ads:       deps.Ads,
		feed:      deps.Feed,
		premium:   deps.Premium,
		snapshots: deps.Snapshots,
		reports:   deps.Reports,
		sink:      deps.Sink,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes mounts the API under /api/v1 with the given middleware,
// plus unthrottled /health and /metrics.
func (s *Server) RegisterRoutes(r *gin.Engine, middleware ...gin.HandlerFunc) {
	api := r.Group("/api/v1", middleware...)
	{
		api.GET("/feed", s.GetFeed)
		api.POST("/events", s.PostEvent)
		api.POST("/ads/:id/click", s.PostClick)

		admin := api.Group("/admin")
		admin.GET("/snapshots/:day", s.GetSnapshot)
		admin.GET("/reports/revenue", s.GetRevenueReport)
		admin.GET("/reports/ad-performance", s.GetAdPerformance)
		admin.GET("/dashboard/revenue", s.GetDashboardRevenue)
		admin.GET("/dashboard/summary", s.GetDashboardSummary)
	}

	r.GET("/health", s.Health)
	r.GET("/metrics", PrometheusHandler())
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	})
}

func (s *Server) respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case services.IsTransient(err):
		s.logger.WithError(err).Warn("Request failed with a transient error")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	default:
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
