package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"monetization-ledger/internal/lock"
	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Amortizer spreads FLAT campaign totals evenly over their scheduled days.
type Amortizer struct {
	campaigns repository.CampaignRepository
	ledger    repository.LedgerRepository
	locker    lock.Locker
	currency  string
	logger    *logrus.Logger
}

func NewAmortizer(campaigns repository.CampaignRepository, ledger repository.LedgerRepository, locker lock.Locker, currency string, logger *logrus.Logger) *Amortizer {
	return &Amortizer{
		campaigns: campaigns,
		ledger:    ledger,
		locker:    locker,
		currency:  currency,
		logger:    logger,
	}
}

// EnsureFlatAdsRevenueForDay overwrites the day's flat portion with the sum
// of per-day shares of every intersecting campaign and returns it.
func (a *Amortizer) EnsureFlatAdsRevenueForDay(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	unlock, err := a.locker.Lock(ctx, dayLockKey(day))
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock day %s: %w", models.DayKey(day), err)
	}
	defer unlock()

	return a.ensureLocked(ctx, day)
}

// ensureLocked expects the caller to hold the day lock.
func (a *Amortizer) ensureLocked(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	campaigns, err := a.campaigns.ListFlatCampaigns(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	flat := FlatRevenueForDay(campaigns, day)
	key := models.DayKey(day)
	if err := a.ledger.SetFlatAdsRevenue(ctx, key, a.currency, flat); err != nil {
		return decimal.Zero, err
	}

	a.logger.WithFields(logrus.Fields{
		"day":       key,
		"campaigns": len(campaigns),
		"flat":      flat.String(),
	}).Debug("Amortized flat ads revenue")

	return flat, nil
}

// FlatRevenueForDay sums perDay = total / max(1, ceil(scheduled days)) over
// campaigns whose window intersects the UTC day.
func FlatRevenueForDay(campaigns []models.AdCampaign, day time.Time) decimal.Decimal {
	dayStart, dayEnd := models.DayBounds(day)
	total := decimal.Zero
	for _, c := range campaigns {
		if c.PricingModel != models.PricingFlat || c.StartAt == nil || c.EndAt == nil || !c.FlatTotal.IsPositive() {
			continue
		}
		if dayStart.After(*c.EndAt) || dayEnd.Before(*c.StartAt) {
			continue
		}
		total = total.Add(c.FlatTotal.Div(decimal.NewFromInt(scheduledDays(*c.StartAt, *c.EndAt))))
	}
	return total.Round(4)
}

func scheduledDays(start, end time.Time) int64 {
	days := int64(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

func dayLockKey(day time.Time) string {
	return "day:" + models.DayKey(day)
}
