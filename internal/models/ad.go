package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AdPlacement string

const (
	PlacementFeed   AdPlacement = "feed"
	PlacementSplash AdPlacement = "splash"
	PlacementBanner AdPlacement = "banner"
)

type PricingModel string

const (
	PricingCPM  PricingModel = "CPM"
	PricingCPC  PricingModel = "CPC"
	PricingFlat PricingModel = "FLAT"
)

type CampaignStatus string

const (
	CampaignDraft  CampaignStatus = "draft"
	CampaignActive CampaignStatus = "active"
	CampaignPaused CampaignStatus = "paused"
	CampaignEnded  CampaignStatus = "ended"
)

type AdEventType string

const (
	AdEventImpression AdEventType = "impression"
	AdEventClick      AdEventType = "click"
)

type Ad struct {
	ID              string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name            string      `json:"name" gorm:"not null"`
	Placement       AdPlacement `json:"placement" gorm:"type:varchar(16);not null;index"`
	ImageURL        string      `json:"imageUrl" gorm:"not null"`
	Title           string      `json:"title"`
	CTAURL          string      `json:"ctaUrl"`
	Priority        int         `json:"priority" gorm:"not null;default:0"`
	IsActive        bool        `json:"isActive" gorm:"not null;default:true;index"`
	StartAt         *time.Time  `json:"startAt"`
	EndAt           *time.Time  `json:"endAt"`
	ImpressionCount int64       `json:"impressionCount" gorm:"not null;default:0"`
	ClickCount      int64       `json:"clickCount" gorm:"not null;default:0"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (a *Ad) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// IsEligible reports whether the ad may be served for placement at now.
func (a Ad) IsEligible(placement AdPlacement, now time.Time) bool {
	if !a.IsActive || a.Placement != placement {
		return false
	}
	if a.StartAt != nil && a.StartAt.After(now) {
		return false
	}
	if a.EndAt != nil && a.EndAt.Before(now) {
		return false
	}
	return true
}

type AdCampaign struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AdID            string          `json:"adId" gorm:"type:varchar(36);not null;index"`
	AdvertiserID    string          `json:"advertiserId" gorm:"type:varchar(36)"`
	Name            string          `json:"name"`
	PricingModel    PricingModel    `json:"pricingModel" gorm:"type:varchar(8);not null;index"`
	Currency        string          `json:"currency" gorm:"type:varchar(8)"`
	CPMRate         decimal.Decimal `json:"cpmRate" gorm:"type:numeric(20,4);not null;default:0"`
	CPCRate         decimal.Decimal `json:"cpcRate" gorm:"type:numeric(20,4);not null;default:0"`
	FlatTotal       decimal.Decimal `json:"flatTotal" gorm:"type:numeric(20,4);not null;default:0"`
	StartAt         *time.Time      `json:"startAt"`
	EndAt           *time.Time      `json:"endAt"`
	Status          CampaignStatus  `json:"status" gorm:"type:varchar(16);not null;default:draft;index"`
	ImpressionCount int64           `json:"impressionCount" gorm:"not null;default:0"`
	ClickCount      int64           `json:"clickCount" gorm:"not null;default:0"`
	SpendAmount     decimal.Decimal `json:"spendAmount" gorm:"type:numeric(20,4);not null;default:0"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (c *AdCampaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return c.Validate()
}

// RateFor returns the rate field that is meaningful for the pricing model.
func (c AdCampaign) RateFor() decimal.Decimal {
	switch c.PricingModel {
	case PricingCPM:
		return c.CPMRate
	case PricingCPC:
		return c.CPCRate
	case PricingFlat:
		return c.FlatTotal
	}
	return decimal.Zero
}

// Validate checks that the pricing model carries a usable rate.
func (c AdCampaign) Validate() error {
	switch c.PricingModel {
	case PricingCPM, PricingCPC, PricingFlat:
	default:
		return errors.New("unknown pricing model")
	}
	if !c.RateFor().IsPositive() {
		return errors.New("pricing rate must be positive")
	}
	if c.StartAt != nil && c.EndAt != nil && c.EndAt.Before(*c.StartAt) {
		return errors.New("campaign ends before it starts")
	}
	return nil
}

// RevenueFor returns the revenue earned by count events of the given type.
// Only impressions on CPM and clicks on CPC generate event-driven revenue.
func (c AdCampaign) RevenueFor(eventType AdEventType, count int64) decimal.Decimal {
	n := decimal.NewFromInt(count)
	switch {
	case eventType == AdEventImpression && c.PricingModel == PricingCPM && c.CPMRate.IsPositive():
		return c.CPMRate.Mul(n).Div(decimal.NewFromInt(1000))
	case eventType == AdEventClick && c.PricingModel == PricingCPC && c.CPCRate.IsPositive():
		return c.CPCRate.Mul(n)
	}
	return decimal.Zero
}

// AdEvent is the append-only audit record of served impressions and clicks.
type AdEvent struct {
	ID         string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CampaignID string      `json:"campaignId" gorm:"type:varchar(36);not null;index"`
	AdID       string      `json:"adId" gorm:"type:varchar(36);not null;index:idx_ad_events_ad_day"`
	UserID     *string     `json:"userId" gorm:"type:varchar(36)"`
	Type       AdEventType `json:"type" gorm:"type:varchar(16);not null"`
	Count      int64       `json:"count" gorm:"not null;default:1"`
	At         time.Time   `json:"at" gorm:"not null;index"`
	Day        string      `json:"day" gorm:"type:varchar(10);not null;index:idx_ad_events_ad_day"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (e *AdEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// AdDailyStat is one day of aggregated ad activity.
type AdDailyStat struct {
	Day         string  `json:"day"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
}
