package handlers

import (
	"net/http"
	"strconv"
	"time"

	"monetization-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetFeed(c *gin.Context) {
	defer s.observe(c, "/feed")()

	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header is required"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	var cursor *time.Time
	if raw := c.Query("cursor"); raw != "" {
		t, err := models.ParseCursor(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor parameter"})
			return
		}
		cursor = &t
	}

	user, err := s.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	isPremium := s.premium.IsPremium(c.Request.Context(), user, s.now())

	page, err := s.feed.GetFeedWithCursor(c.Request.Context(), userID, isPremium, limit, cursor)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) GetSnapshot(c *gin.Context) {
	defer s.observe(c, "/admin/snapshots")()

	day, err := models.ParseDay(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid day parameter, expected YYYY-MM-DD"})
		return
	}

	snap, err := s.snapshots.GetOrComputeDailySnapshot(c.Request.Context(), day)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if snap.Stale {
		c.Header("Warning", `110 - "snapshot is stale"`)
	}

	c.JSON(http.StatusOK, snap)
}

func (s *Server) GetRevenueReport(c *gin.Context) {
	defer s.observe(c, "/admin/reports/revenue")()

	start, end, ok := s.dateRange(c)
	if !ok {
		return
	}

	summary, err := s.reports.DailyRevenueSummary(c.Request.Context(), start, end)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) GetAdPerformance(c *gin.Context) {
	defer s.observe(c, "/admin/reports/ad-performance")()

	adID := c.Query("adId")
	if adID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "adId parameter is required"})
		return
	}
	start, end, ok := s.dateRange(c)
	if !ok {
		return
	}

	report, err := s.reports.AdPerformanceReport(c.Request.Context(), adID, start, end)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) GetDashboardRevenue(c *gin.Context) {
	defer s.observe(c, "/admin/dashboard/revenue")()

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
		return
	}

	points, err := s.reports.RevenueSeries(c.Request.Context(), days)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days":   len(points),
		"series": points,
	})
}

func (s *Server) GetDashboardSummary(c *gin.Context) {
	defer s.observe(c, "/admin/dashboard/summary")()

	summary, err := s.reports.DashboardSummary(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// dateRange reads startDate and endDate, writing a 400 when either is
// missing or malformed.
func (s *Server) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	rawStart, rawEnd := c.Query("startDate"), c.Query("endDate")
	if rawStart == "" || rawEnd == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate and endDate parameters are required"})
		return time.Time{}, time.Time{}, false
	}

	start, err := models.ParseDay(rawStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid startDate parameter, expected YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	end, err := models.ParseDay(rawEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endDate parameter, expected YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
