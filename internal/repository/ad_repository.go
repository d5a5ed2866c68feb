package repository

import (
	"context"
	"fmt"
	"time"

	"monetization-ledger/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func (s *GormStore) GetAd(ctx context.Context, id string) (*models.Ad, error) {
	var ad models.Ad
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&ad).Error; err != nil {
		return nil, translate(err)
	}
	return &ad, nil
}

func (s *GormStore) ListEligibleAds(ctx context.Context, placement models.AdPlacement, now time.Time, excludeIDs []string, limit int) ([]models.Ad, error) {
	q := s.db.WithContext(ctx).
		Where("placement = ? AND is_active = ?", placement, true).
		Where("(start_at IS NULL OR start_at <= ?)", now).
		Where("(end_at IS NULL OR end_at >= ?)", now)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}

	var ads []models.Ad
	err := q.Order("priority desc").Order("created_at desc").Limit(limit).Find(&ads).Error
	if err != nil {
		return nil, fmt.Errorf("list eligible ads: %w", err)
	}
	return ads, nil
}

func (s *GormStore) CountLiveAds(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Ad{}).
		Where("is_active = ?", true).
		Where("(start_at IS NULL OR start_at <= ?)", now).
		Where("(end_at IS NULL OR end_at >= ?)", now).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count live ads: %w", err)
	}
	return n, nil
}

func (s *GormStore) IncrementAdCounter(ctx context.Context, id string, eventType models.AdEventType, count int64) error {
	return incrementAd(s.db.WithContext(ctx), id, eventType, count)
}

func (s *GormStore) GetCampaign(ctx context.Context, id string) (*models.AdCampaign, error) {
	var c models.AdCampaign
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) ListFlatCampaigns(ctx context.Context) ([]models.AdCampaign, error) {
	var campaigns []models.AdCampaign
	err := s.db.WithContext(ctx).
		Where("pricing_model = ?", models.PricingFlat).
		Where("status IN ?", []models.CampaignStatus{models.CampaignActive, models.CampaignEnded}).
		Where("start_at IS NOT NULL AND end_at IS NOT NULL").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("list flat campaigns: %w", err)
	}
	return campaigns, nil
}

func (s *GormStore) FindActiveCampaignForAd(ctx context.Context, adID string, at time.Time) (*models.AdCampaign, error) {
	var c models.AdCampaign
	err := s.db.WithContext(ctx).
		Where("ad_id = ? AND status = ?", adID, models.CampaignActive).
		Where("(start_at IS NULL OR start_at <= ?)", at).
		Where("(end_at IS NULL OR end_at >= ?)", at).
		Order("created_at desc").
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) RecordAdEvent(ctx context.Context, rec AdEventRecord) (bool, error) {
	ev := rec.Event
	applied := true
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec.EventKey != "" {
			ok, err := markApplied(tx, rec.EventKey, ev.Day)
			if err != nil {
				return err
			}
			if !ok {
				applied = false
				return nil
			}
		}

		if err := tx.Create(&ev).Error; err != nil {
			return err
		}

		col := counterColumn(ev.Type)
		campaignUpdates := map[string]interface{}{col: gorm.Expr(col+" + ?", ev.Count)}
		if !rec.Revenue.IsZero() {
			campaignUpdates["spend_amount"] = gorm.Expr("spend_amount + ?", rec.Revenue)
		}
		res := tx.Model(&models.AdCampaign{}).Where("id = ?", ev.CampaignID).Updates(campaignUpdates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := incrementAd(tx, ev.AdID, ev.Type, ev.Count); err != nil {
			return err
		}

		delta := models.LedgerDelta{AdsRevenueCounter: rec.Revenue}
		if ev.Type == models.AdEventClick {
			delta.Clicks = ev.Count
		} else {
			delta.Impressions = ev.Count
		}
		if err := ensureDay(tx, ev.Day, rec.Currency); err != nil {
			return err
		}
		return incrementDay(tx, ev.Day, delta)
	})
	if err != nil {
		return false, fmt.Errorf("record ad event: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"campaign_id": ev.CampaignID,
		"ad_id":       ev.AdID,
		"type":        ev.Type,
		"count":       ev.Count,
		"applied":     applied,
	}).Debug("Recorded ad event")

	return applied, nil
}

func incrementAd(db *gorm.DB, id string, eventType models.AdEventType, count int64) error {
	col := counterColumn(eventType)
	res := db.Model(&models.Ad{}).Where("id = ?", id).UpdateColumn(col, gorm.Expr(col+" + ?", count))
	if res.Error != nil {
		return fmt.Errorf("increment ad %s: %w", col, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func counterColumn(t models.AdEventType) string {
	if t == models.AdEventClick {
		return "click_count"
	}
	return "impression_count"
}
