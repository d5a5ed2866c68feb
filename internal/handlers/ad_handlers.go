package handlers

import (
	"net/http"

	"monetization-ledger/internal/models"
	"monetization-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PostEvent accepts a bookkeeping event for asynchronous application.
func (s *Server) PostEvent(c *gin.Context) {
	defer s.observe(c, "/events")()

	var env models.EventEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := services.ValidateEnvelope(env); err != nil {
		s.respondError(c, err)
		return
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.At.IsZero() {
		env.At = s.now()
	}

	if err := s.sink.Submit(c.Request.Context(), env); err != nil {
		s.logger.WithError(err).WithField("event_id", env.ID).Error("Failed to accept event")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to accept event"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "accepted",
		"id":     env.ID,
	})
}

func (s *Server) PostClick(c *gin.Context) {
	defer s.observe(c, "/ads/click")()

	adID := c.Param("id")
	ad, err := s.ads.GetAd(c.Request.Context(), adID)
	if err != nil {
		if services.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ad not found"})
			return
		}
		s.respondError(c, err)
		return
	}

	env := models.EventEnvelope{
		ID:    uuid.NewString(),
		Type:  models.EventAdClick,
		AdID:  ad.ID,
		Count: 1,
		At:    s.now(),
	}
	if userID := c.GetHeader("X-User-ID"); userID != "" {
		env.UserID = &userID
	}

	if err := s.sink.Submit(c.Request.Context(), env); err != nil {
		s.logger.WithError(err).WithField("ad_id", ad.ID).Error("Failed to record click")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to record click"})
		return
	}

	s.logger.WithFields(logrus.Fields{
		"ad_id":    ad.ID,
		"event_id": env.ID,
	}).Debug("Click accepted")

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}
