package repository

import (
	"context"
	"time"

	"monetization-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// LedgerRepository stores one DailyLedgerRow per UTC day.
type LedgerRepository interface {
	// IncrementDay adds delta to the day row, creating it on first use. When
	// eventKey is set it is recorded in the applied set within the same
	// transaction and a repeated key returns applied=false without changes.
	IncrementDay(ctx context.Context, day, currency string, delta models.LedgerDelta, eventKey string) (bool, error)
	SetFlatAdsRevenue(ctx context.Context, day, currency string, amount decimal.Decimal) error
	SetDerived(ctx context.Context, day, currency string, metrics models.DerivedMetrics) error
	GetDay(ctx context.Context, day string) (*models.DailyLedgerRow, error)
	// ListDays returns rows with fromDay <= day <= toDay in ascending order.
	ListDays(ctx context.Context, fromDay, toDay string) ([]models.DailyLedgerRow, error)
}

// AdEventRecord is everything written for one accepted ad event.
type AdEventRecord struct {
	EventKey string
	Event    models.AdEvent
	Currency string
	Revenue  decimal.Decimal
}

type AdEventRepository interface {
	// RecordAdEvent appends the audit row and applies campaign, ad and day
	// rollups atomically.
	RecordAdEvent(ctx context.Context, rec AdEventRecord) (bool, error)
	AggregateAdEvents(ctx context.Context, adID, fromDay, toDay string) ([]models.AdDailyStat, error)
}

type AdRepository interface {
	GetAd(ctx context.Context, id string) (*models.Ad, error)
	// ListEligibleAds orders by priority desc then created_at desc.
	ListEligibleAds(ctx context.Context, placement models.AdPlacement, now time.Time, excludeIDs []string, limit int) ([]models.Ad, error)
	IncrementAdCounter(ctx context.Context, id string, eventType models.AdEventType, count int64) error
	// CountLiveAds counts active ads of any placement whose window contains now.
	CountLiveAds(ctx context.Context, now time.Time) (int64, error)
}

type CampaignRepository interface {
	GetCampaign(ctx context.Context, id string) (*models.AdCampaign, error)
	// ListFlatCampaigns returns FLAT campaigns that are active or ended and
	// have both schedule bounds.
	ListFlatCampaigns(ctx context.Context) ([]models.AdCampaign, error)
	FindActiveCampaignForAd(ctx context.Context, adID string, at time.Time) (*models.AdCampaign, error)
}

type InvoiceRepository interface {
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	CountPaidInvoices(ctx context.Context, from, to time.Time) (int64, error)
	// SumPaidInvoices sums net amounts of invoices paid inside [from, to],
	// using the gross amount when net is zero.
	SumPaidInvoices(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

type RefundRepository interface {
	GetRefund(ctx context.Context, id string) (*models.Refund, error)
	SumApprovedRefunds(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	CountRefundsByStatus(ctx context.Context, status models.RefundStatus) (int64, error)
}

type SubscriptionRepository interface {
	// CountActiveAt counts trialing or active subscriptions whose current
	// period ends after at.
	CountActiveAt(ctx context.Context, at time.Time) (int64, error)
	CountStartedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountCanceledBetween(ctx context.Context, from, to time.Time) (int64, error)
	ListActiveAt(ctx context.Context, at time.Time) ([]models.Subscription, error)
	// HasActiveSubscription reports whether userID holds a trialing or
	// active subscription whose current period ends after at.
	HasActiveSubscription(ctx context.Context, userID string, at time.Time) (bool, error)
}

type PlanRepository interface {
	ListPlansByIDs(ctx context.Context, ids []string) ([]models.Plan, error)
}

type SessionRepository interface {
	CountDistinctUsers(ctx context.Context, from, to time.Time) (int64, error)
}

type SocialRepository interface {
	ListAcceptedFriendIDs(ctx context.Context, userID string) ([]string, error)
	// ListFeedPosts returns visible, non-deleted posts by authors created
	// strictly before before (when set), newest first.
	ListFeedPosts(ctx context.Context, authorIDs []string, before *time.Time, limit int) ([]models.Post, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Store is the full persistence surface used by the service layer.
type Store interface {
	LedgerRepository
	AdEventRepository
	AdRepository
	CampaignRepository
	InvoiceRepository
	RefundRepository
	SubscriptionRepository
	PlanRepository
	SessionRepository
	SocialRepository
	UserRepository
}
