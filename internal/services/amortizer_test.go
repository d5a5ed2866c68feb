package services

import (
	"context"
	"testing"
	"time"

	"monetization-ledger/internal/lock"
	"monetization-ledger/internal/logger"
	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

func flatCampaign(total string, start, end time.Time, status models.CampaignStatus) models.AdCampaign {
	return models.AdCampaign{
		AdID:         "ad-1",
		PricingModel: models.PricingFlat,
		FlatTotal:    dec(total),
		StartAt:      timePtr(start),
		EndAt:        timePtr(end),
		Status:       status,
	}
}

type AmortizerTestSuite struct {
	suite.Suite

	ctx       context.Context
	store     *memory.Store
	amortizer *Amortizer
}

func TestAmortizer(t *testing.T) {
	suite.Run(t, new(AmortizerTestSuite))
}

func (s *AmortizerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.amortizer = NewAmortizer(s.store, s.store, lock.NewLocal(), "VND", logger.Discard())
}

func (s *AmortizerTestSuite) decimalEqual(expected string, actual decimal.Decimal) {
	s.Truef(dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func (s *AmortizerTestSuite) TestFlatRevenueForDay() {
	march := func(day, hour int) time.Time { return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC) }
	tenDays := flatCampaign("1000000", march(1, 0), march(11, 0), models.CampaignActive)
	partial := flatCampaign("300000", march(1, 0), march(3, 12), models.CampaignActive)
	thirds := flatCampaign("100", march(20, 0), march(23, 0), models.CampaignActive)
	cpm := models.AdCampaign{PricingModel: models.PricingCPM, CPMRate: dec("5000"), StartAt: timePtr(march(1, 0)), EndAt: timePtr(march(31, 0))}

	tests := []struct {
		name      string
		campaigns []models.AdCampaign
		day       time.Time
		want      string
	}{
		{name: "even split", campaigns: []models.AdCampaign{tenDays}, day: march(5, 0), want: "100000"},
		{name: "any hour of the day", campaigns: []models.AdCampaign{tenDays}, day: march(5, 23), want: "100000"},
		{name: "partial day rounds up", campaigns: []models.AdCampaign{partial}, day: march(2, 0), want: "100000"},
		{name: "overlapping campaigns add", campaigns: []models.AdCampaign{tenDays, partial}, day: march(2, 0), want: "200000"},
		{name: "day after window", campaigns: []models.AdCampaign{tenDays}, day: march(12, 0), want: "0"},
		{name: "day before window", campaigns: []models.AdCampaign{partial}, day: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), want: "0"},
		{name: "rounded to four places", campaigns: []models.AdCampaign{thirds}, day: march(21, 0), want: "33.3333"},
		{name: "non flat ignored", campaigns: []models.AdCampaign{cpm}, day: march(5, 0), want: "0"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.decimalEqual(tt.want, FlatRevenueForDay(tt.campaigns, tt.day))
		})
	}
}

func (s *AmortizerTestSuite) TestEnsureFlatAdsRevenueForDay_OverwritesAndIgnoresInactive() {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	s.store.PutCampaign(flatCampaign("1000000", start, end, models.CampaignActive))
	s.store.PutCampaign(flatCampaign("500000", start, end, models.CampaignEnded))
	s.store.PutCampaign(flatCampaign("999999", start, end, models.CampaignPaused))
	s.store.PutCampaign(flatCampaign("999999", start, end, models.CampaignDraft))

	day := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		flat, err := s.amortizer.EnsureFlatAdsRevenueForDay(s.ctx, day)
		s.Require().NoError(err)
		s.decimalEqual("150000", flat)
	}

	row, err := s.store.GetDay(s.ctx, "2025-03-04")
	s.Require().NoError(err)
	s.decimalEqual("150000", row.FlatAdsRevenue)
	s.decimalEqual("150000", row.AdsRevenue())
}

func (s *AmortizerTestSuite) TestEnsureFlatAdsRevenueForDay_KeepsEventRevenue() {
	s.Require().NoError(s.store.SetFlatAdsRevenue(s.ctx, "2025-03-04", "VND", dec("1")))
	_, err := s.store.IncrementDay(s.ctx, "2025-03-04", "VND", models.LedgerDelta{AdsRevenueCounter: dec("2500")}, "")
	s.Require().NoError(err)

	flat, err := s.amortizer.EnsureFlatAdsRevenueForDay(s.ctx, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.True(flat.IsZero())

	row, err := s.store.GetDay(s.ctx, "2025-03-04")
	s.Require().NoError(err)
	s.decimalEqual("2500", row.AdsRevenueCounter)
	s.decimalEqual("2500", row.AdsRevenue())
}
