package models

import "github.com/shopspring/decimal"

type RevenueTotals struct {
	Gross           decimal.Decimal `json:"gross"`
	Net             decimal.Decimal `json:"net"`
	Refunds         decimal.Decimal `json:"refunds"`
	SubsRevenue     decimal.Decimal `json:"subsRevenue"`
	AdsRevenue      decimal.Decimal `json:"adsRevenue"`
	InvoiceCount    int64           `json:"invoiceCount"`
	AverageDailyNet decimal.Decimal `json:"averageDailyNet"`
}

type DailyRevenue struct {
	Day        string          `json:"day"`
	Gross      decimal.Decimal `json:"gross"`
	Net        decimal.Decimal `json:"net"`
	Refunds    decimal.Decimal `json:"refunds"`
	AdsRevenue decimal.Decimal `json:"adsRevenue"`
}

type RevenueSummary struct {
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Totals    RevenueTotals  `json:"totals"`
	Daily     []DailyRevenue `json:"daily"`
}

type AdReportSource string

const (
	AdReportFromEvents   AdReportSource = "events"
	AdReportFromLifetime AdReportSource = "lifetime"
)

type AdPerformanceReport struct {
	AdID        string         `json:"adId"`
	AdName      string         `json:"adName"`
	StartDate   string         `json:"startDate"`
	EndDate     string         `json:"endDate"`
	Impressions int64          `json:"impressions"`
	Clicks      int64          `json:"clicks"`
	CTR         float64        `json:"ctr"`
	Source      AdReportSource `json:"source"`
	Daily       []AdDailyStat  `json:"daily"`
}

// RevenuePoint is one day of the dashboard revenue series.
type RevenuePoint struct {
	Day         string          `json:"day"`
	Revenue     decimal.Decimal `json:"revenue"`
	SubsRevenue decimal.Decimal `json:"subsRevenue"`
	AdsRevenue  decimal.Decimal `json:"adsRevenue"`
	Refunds     decimal.Decimal `json:"refunds"`
	DAU         int64           `json:"dau"`
}

// DashboardSummary is the admin overview of the current month.
type DashboardSummary struct {
	Month   string `json:"month"`
	Revenue struct {
		ThisMonth        decimal.Decimal `json:"thisMonth"`
		RefundsThisMonth decimal.Decimal `json:"refundsThisMonth"`
		Currency         string          `json:"currency"`
	} `json:"revenue"`
	Refunds struct {
		Pending int64 `json:"pending"`
	} `json:"refunds"`
	Ads struct {
		Active int64 `json:"active"`
	} `json:"ads"`
}
