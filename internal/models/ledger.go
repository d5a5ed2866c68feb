package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailyLedgerRow aggregates monetization figures for one UTC day. Counter
// fields only ever grow through increments; derived fields are overwritten on
// every snapshot recomputation.
type DailyLedgerRow struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Day      string `json:"day" gorm:"type:varchar(10);uniqueIndex;not null"`
	Currency string `json:"currency" gorm:"type:varchar(8);not null"`

	SubsGross        decimal.Decimal `json:"subsGross" gorm:"type:numeric(20,4);not null;default:0"`
	SubsNet          decimal.Decimal `json:"subsNet" gorm:"type:numeric(20,4);not null;default:0"`
	SubsTax          decimal.Decimal `json:"subsTax" gorm:"type:numeric(20,4);not null;default:0"`
	SubsProviderFees decimal.Decimal `json:"subsProviderFees" gorm:"type:numeric(20,4);not null;default:0"`
	SubsPlatformFees decimal.Decimal `json:"subsPlatformFees" gorm:"type:numeric(20,4);not null;default:0"`
	Refunds          decimal.Decimal `json:"refunds" gorm:"type:numeric(20,4);not null;default:0"`

	AdsRevenueCounter decimal.Decimal `json:"adsRevenueCounter" gorm:"type:numeric(20,4);not null;default:0"`
	FlatAdsRevenue    decimal.Decimal `json:"flatAdsRevenue" gorm:"type:numeric(20,4);not null;default:0"`
	Impressions       int64           `json:"impressions" gorm:"not null;default:0"`
	Clicks            int64           `json:"clicks" gorm:"not null;default:0"`

	DAU                 int64           `json:"dau" gorm:"column:dau;not null;default:0"`
	MAU                 int64           `json:"mau" gorm:"column:mau;not null;default:0"`
	ARPU                decimal.Decimal `json:"arpu" gorm:"column:arpu;type:numeric(20,4);not null;default:0"`
	ActiveSubscribers   int64           `json:"activeSubscribers" gorm:"not null;default:0"`
	NewSubscribers      int64           `json:"newSubscribers" gorm:"not null;default:0"`
	CanceledSubscribers int64           `json:"canceledSubscribers" gorm:"not null;default:0"`
	ChurnRate           float64         `json:"churnRate" gorm:"not null;default:0"`
	MRR                 decimal.Decimal `json:"mrr" gorm:"column:mrr;type:numeric(20,4);not null;default:0"`
	ARR                 decimal.Decimal `json:"arr" gorm:"column:arr;type:numeric(20,4);not null;default:0"`
	ComputedAt          *time.Time      `json:"computedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (DailyLedgerRow) TableName() string {
	return "daily_ledger_rows"
}

func (r *DailyLedgerRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// AdsRevenue is the event-driven counter plus the amortized flat portion.
func (r DailyLedgerRow) AdsRevenue() decimal.Decimal {
	return r.AdsRevenueCounter.Add(r.FlatAdsRevenue)
}

// CTR returns clicks per impression, 0 when there were no impressions.
func (r DailyLedgerRow) CTR() float64 {
	if r.Impressions == 0 {
		return 0
	}
	return float64(r.Clicks) / float64(r.Impressions)
}

// Snapshot builds the read model returned to dashboard callers.
func (r DailyLedgerRow) Snapshot() DailySnapshot {
	return DailySnapshot{
		Day:                 r.Day,
		Currency:            r.Currency,
		SubsGross:           r.SubsGross,
		SubsNet:             r.SubsNet,
		SubsTax:             r.SubsTax,
		SubsProviderFees:    r.SubsProviderFees,
		SubsPlatformFees:    r.SubsPlatformFees,
		Refunds:             r.Refunds,
		AdsRevenue:          r.AdsRevenue(),
		AdsRevenueCounter:   r.AdsRevenueCounter,
		FlatAdsRevenue:      r.FlatAdsRevenue,
		Impressions:         r.Impressions,
		Clicks:              r.Clicks,
		CTR:                 r.CTR(),
		DAU:                 r.DAU,
		MAU:                 r.MAU,
		ARPU:                r.ARPU,
		ActiveSubscribers:   r.ActiveSubscribers,
		NewSubscribers:      r.NewSubscribers,
		CanceledSubscribers: r.CanceledSubscribers,
		ChurnRate:           r.ChurnRate,
		MRR:                 r.MRR,
		ARR:                 r.ARR,
		ComputedAt:          r.ComputedAt,
	}
}

// DailySnapshot is the API view of a ledger row.
type DailySnapshot struct {
	Day                 string          `json:"day"`
	Currency            string          `json:"currency"`
	SubsGross           decimal.Decimal `json:"subsGross"`
	SubsNet             decimal.Decimal `json:"subsNet"`
	SubsTax             decimal.Decimal `json:"subsTax"`
	SubsProviderFees    decimal.Decimal `json:"subsProviderFees"`
	SubsPlatformFees    decimal.Decimal `json:"subsPlatformFees"`
	Refunds             decimal.Decimal `json:"refunds"`
	AdsRevenue          decimal.Decimal `json:"adsRevenue"`
	AdsRevenueCounter   decimal.Decimal `json:"adsRevenueCounter"`
	FlatAdsRevenue      decimal.Decimal `json:"flatAdsRevenue"`
	Impressions         int64           `json:"impressions"`
	Clicks              int64           `json:"clicks"`
	CTR                 float64         `json:"ctr"`
	DAU                 int64           `json:"dau"`
	MAU                 int64           `json:"mau"`
	ARPU                decimal.Decimal `json:"arpu"`
	ActiveSubscribers   int64           `json:"activeSubscribers"`
	NewSubscribers      int64           `json:"newSubscribers"`
	CanceledSubscribers int64           `json:"canceledSubscribers"`
	ChurnRate           float64         `json:"churnRate"`
	MRR                 decimal.Decimal `json:"mrr"`
	ARR                 decimal.Decimal `json:"arr"`
	ComputedAt          *time.Time      `json:"computedAt,omitempty"`
	Stale               bool            `json:"stale"`
}

// LedgerDelta is a set of additive increments against one day.
type LedgerDelta struct {
	SubsGross         decimal.Decimal
	SubsNet           decimal.Decimal
	SubsTax           decimal.Decimal
	SubsProviderFees  decimal.Decimal
	SubsPlatformFees  decimal.Decimal
	Refunds           decimal.Decimal
	AdsRevenueCounter decimal.Decimal
	Impressions       int64
	Clicks            int64
}

// IsZero reports whether applying the delta would change nothing.
func (d LedgerDelta) IsZero() bool {
	return d.SubsGross.IsZero() && d.SubsNet.IsZero() && d.SubsTax.IsZero() &&
		d.SubsProviderFees.IsZero() && d.SubsPlatformFees.IsZero() && d.Refunds.IsZero() &&
		d.AdsRevenueCounter.IsZero() && d.Impressions == 0 && d.Clicks == 0
}

// HasNegative reports whether any component would decrease a counter.
func (d LedgerDelta) HasNegative() bool {
	for _, v := range []decimal.Decimal{d.SubsGross, d.SubsNet, d.SubsTax, d.SubsProviderFees, d.SubsPlatformFees, d.Refunds, d.AdsRevenueCounter} {
		if v.IsNegative() {
			return true
		}
	}
	return d.Impressions < 0 || d.Clicks < 0
}

// Apply adds the delta to row in place.
func (d LedgerDelta) Apply(row *DailyLedgerRow) {
	row.SubsGross = row.SubsGross.Add(d.SubsGross)
	row.SubsNet = row.SubsNet.Add(d.SubsNet)
	row.SubsTax = row.SubsTax.Add(d.SubsTax)
	row.SubsProviderFees = row.SubsProviderFees.Add(d.SubsProviderFees)
	row.SubsPlatformFees = row.SubsPlatformFees.Add(d.SubsPlatformFees)
	row.Refunds = row.Refunds.Add(d.Refunds)
	row.AdsRevenueCounter = row.AdsRevenueCounter.Add(d.AdsRevenueCounter)
	row.Impressions += d.Impressions
	row.Clicks += d.Clicks
}

// DerivedMetrics are the recomputed fields of a ledger row.
type DerivedMetrics struct {
	DAU                 int64
	MAU                 int64
	ARPU                decimal.Decimal
	ActiveSubscribers   int64
	NewSubscribers      int64
	CanceledSubscribers int64
	ChurnRate           float64
	MRR                 decimal.Decimal
	ARR                 decimal.Decimal
	ComputedAt          time.Time
}

// SameAs reports whether row already carries these derived values,
// ignoring ComputedAt.
func (m DerivedMetrics) SameAs(row DailyLedgerRow) bool {
	return row.DAU == m.DAU && row.MAU == m.MAU && row.ARPU.Equal(m.ARPU) &&
		row.ActiveSubscribers == m.ActiveSubscribers && row.NewSubscribers == m.NewSubscribers &&
		row.CanceledSubscribers == m.CanceledSubscribers && row.ChurnRate == m.ChurnRate &&
		row.MRR.Equal(m.MRR) && row.ARR.Equal(m.ARR)
}

// Apply overwrites the derived fields of row.
func (m DerivedMetrics) Apply(row *DailyLedgerRow) {
	computedAt := m.ComputedAt
	row.DAU = m.DAU
	row.MAU = m.MAU
	row.ARPU = m.ARPU
	row.ActiveSubscribers = m.ActiveSubscribers
	row.NewSubscribers = m.NewSubscribers
	row.CanceledSubscribers = m.CanceledSubscribers
	row.ChurnRate = m.ChurnRate
	row.MRR = m.MRR
	row.ARR = m.ARR
	row.ComputedAt = &computedAt
}

// AppliedEvent marks an upstream event as already counted.
type AppliedEvent struct {
	EventID   string    `json:"eventId" gorm:"primaryKey;type:varchar(128)"`
	Day       string    `json:"day" gorm:"type:varchar(10);index"`
	AppliedAt time.Time `json:"appliedAt"`
}

func (AppliedEvent) TableName() string {
	return "applied_events"
}
