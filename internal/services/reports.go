package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	maxReportDays       = 365
	defaultDashboardDay = 30
)

// ReportService serves read-only revenue and ad performance reports built
// from ledger rows and the ad event audit log.
type ReportService struct {
	store    repository.Store
	currency string
	logger   *logrus.Logger
	now      func() time.Time
}

func NewReportService(store repository.Store, currency string, logger *logrus.Logger) *ReportService {
	return &ReportService{
		store:    store,
		currency: currency,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReportService) DailyRevenueSummary(ctx context.Context, start, end time.Time) (models.RevenueSummary, error) {
	from, to, err := reportRange(start, end)
	if err != nil {
		return models.RevenueSummary{}, err
	}

	rows, err := s.store.ListDays(ctx, models.DayKey(from), models.DayKey(to))
	if err != nil {
		return models.RevenueSummary{}, err
	}
	_, toEnd := models.DayBounds(to)
	invoices, err := s.store.CountPaidInvoices(ctx, from, toEnd)
	if err != nil {
		return models.RevenueSummary{}, err
	}

	summary := models.RevenueSummary{
		StartDate: models.DayKey(from),
		EndDate:   models.DayKey(to),
		Daily:     make([]models.DailyRevenue, 0, len(rows)),
	}
	totals := models.RevenueTotals{InvoiceCount: invoices}
	for _, r := range rows {
		ads := r.AdsRevenue()
		day := models.DailyRevenue{
			Day:        r.Day,
			Gross:      r.SubsGross.Add(ads),
			Net:        r.SubsNet.Add(ads).Sub(r.Refunds),
			Refunds:    r.Refunds,
			AdsRevenue: ads,
		}
		summary.Daily = append(summary.Daily, day)

		totals.Gross = totals.Gross.Add(day.Gross)
		totals.Net = totals.Net.Add(day.Net)
		totals.Refunds = totals.Refunds.Add(r.Refunds)
		totals.SubsRevenue = totals.SubsRevenue.Add(r.SubsNet)
		totals.AdsRevenue = totals.AdsRevenue.Add(ads)
	}
	if len(rows) > 0 {
		totals.AverageDailyNet = totals.Net.Div(decimal.NewFromInt(int64(len(rows)))).Round(4)
	}
	summary.Totals = totals

	return summary, nil
}

// AdPerformanceReport totals impressions and clicks from the audit log. When
// the log has nothing in range it reports the ad's lifetime counters.
func (s *ReportService) AdPerformanceReport(ctx context.Context, adID string, start, end time.Time) (models.AdPerformanceReport, error) {
	from, to, err := reportRange(start, end)
	if err != nil {
		return models.AdPerformanceReport{}, err
	}
	if adID == "" {
		return models.AdPerformanceReport{}, newValidationError("adId", "adId is required")
	}

	ad, err := s.store.GetAd(ctx, adID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.AdPerformanceReport{}, fmt.Errorf("ad %s: %w", adID, ErrNotFound)
		}
		return models.AdPerformanceReport{}, err
	}

	daily, err := s.store.AggregateAdEvents(ctx, adID, models.DayKey(from), models.DayKey(to))
	if err != nil {
		return models.AdPerformanceReport{}, err
	}

	report := models.AdPerformanceReport{
		AdID:      ad.ID,
		AdName:    ad.Name,
		StartDate: models.DayKey(from),
		EndDate:   models.DayKey(to),
		Source:    models.AdReportFromEvents,
		Daily:     make([]models.AdDailyStat, 0, len(daily)),
	}
	for _, d := range daily {
		d.CTR = CTRPercent(d.Clicks, d.Impressions)
		report.Impressions += d.Impressions
		report.Clicks += d.Clicks
		report.Daily = append(report.Daily, d)
	}

	if len(daily) == 0 {
		report.Source = models.AdReportFromLifetime
		report.Impressions = ad.ImpressionCount
		report.Clicks = ad.ClickCount
		s.logger.WithField("ad_id", adID).Debug("No ad events in range, using lifetime counters")
	}
	report.CTR = CTRPercent(report.Clicks, report.Impressions)

	return report, nil
}

// RevenueSeries returns one point per day for the trailing window ending
// today, filling days without a ledger row with zeros.
func (s *ReportService) RevenueSeries(ctx context.Context, days int) ([]models.RevenuePoint, error) {
	if days == 0 {
		days = defaultDashboardDay
	}
	if days < 1 || days > maxReportDays {
		return nil, newValidationError("days", "days must be between 1 and %d", maxReportDays)
	}

	today, _ := models.DayBounds(s.now())
	from := today.AddDate(0, 0, -(days - 1))
	rows, err := s.store.ListDays(ctx, models.DayKey(from), models.DayKey(today))
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]models.DailyLedgerRow, len(rows))
	for _, r := range rows {
		byDay[r.Day] = r
	}

	points := make([]models.RevenuePoint, 0, days)
	for d := from; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := models.DayKey(d)
		r := byDay[key]
		ads := r.AdsRevenue()
		points = append(points, models.RevenuePoint{
			Day:         key,
			Revenue:     r.SubsNet.Add(ads).Sub(r.Refunds),
			SubsRevenue: r.SubsNet,
			AdsRevenue:  ads,
			Refunds:     r.Refunds,
			DAU:         r.DAU,
		})
	}
	return points, nil
}

// DashboardSummary reports the current UTC month: paid invoice revenue net of
// approved refunds (never below zero), the refunds themselves, pending refund
// requests and ads currently being served.
func (s *ReportService) DashboardSummary(ctx context.Context) (models.DashboardSummary, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Microsecond)

	revenue, err := s.store.SumPaidInvoices(ctx, monthStart, monthEnd)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	refunds, err := s.store.SumApprovedRefunds(ctx, monthStart, monthEnd)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	pending, err := s.store.CountRefundsByStatus(ctx, models.RefundPending)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	liveAds, err := s.store.CountLiveAds(ctx, now)
	if err != nil {
		return models.DashboardSummary{}, err
	}

	var summary models.DashboardSummary
	summary.Month = monthStart.Format("2006-01")
	summary.Revenue.ThisMonth = decimal.Max(decimal.Zero, revenue.Sub(refunds)).Round(4)
	summary.Revenue.RefundsThisMonth = refunds.Round(4)
	summary.Revenue.Currency = s.currency
	summary.Refunds.Pending = pending
	summary.Ads.Active = liveAds
	return summary, nil
}

// CTRPercent is clicks per impression as a percentage with two decimals.
func CTRPercent(clicks, impressions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(impressions)*10000) / 100
}

func reportRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, newValidationError("startDate", "startDate and endDate are required")
	}
	from, _ := models.DayBounds(start)
	to, _ := models.DayBounds(end)
	if to.Before(from) {
		return time.Time{}, time.Time{}, newValidationError("endDate", "endDate must not be before startDate")
	}
	if daysInclusive(from, to) > maxReportDays {
		return time.Time{}, time.Time{}, newValidationError("endDate", "range must not exceed %d days", maxReportDays)
	}
	return from, to, nil
}

func daysInclusive(from, to time.Time) int64 {
	return int64(to.Sub(from).Hours()/24) + 1
}
