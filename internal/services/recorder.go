package services

import (
	"context"
	"errors"
	"time"

	"monetization-ledger/internal/metrics"
	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	kindInvoice = "invoice.paid"
	kindRefund  = "refund.succeeded"
	kindAd      = "ad.event"
)

// AdEventInput describes one or more identical ad events. CampaignID may be
// empty, in which case the ad's active campaign is resolved at At.
type AdEventInput struct {
	EventID    string
	CampaignID string
	AdID       string
	Type       models.AdEventType
	At         time.Time
	Count      int64
	UserID     *string
}

// Recorder turns paid invoices, approved refunds and ad events into ledger
// increments. Missing or wrong-state sources are skipped and reported
// through logs and metrics; only storage failures are returned.
type Recorder struct {
	store    repository.Store
	currency string
	logger   *logrus.Logger
	now      func() time.Time
}

func NewRecorder(store repository.Store, currency string, logger *logrus.Logger) *Recorder {
	return &Recorder{
		store:    store,
		currency: currency,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *Recorder) RecordInvoicePaid(ctx context.Context, invoiceID string) error {
	inv, err := r.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return r.lookupFailed(kindInvoice, invoiceID, err)
	}
	if inv.Status != models.InvoicePaid || inv.PaidAt == nil {
		return r.skip(kindInvoice, invoiceID, "invalid_state")
	}

	delta := models.LedgerDelta{
		SubsGross:        inv.GrossAmount,
		SubsNet:          inv.NetAmount,
		SubsTax:          inv.TaxAmount,
		SubsProviderFees: inv.ProviderFeeAmount,
		SubsPlatformFees: inv.PlatformFeeAmount,
	}
	if delta.HasNegative() {
		return newValidationError("invoice", "invoice %s has negative amounts", invoiceID)
	}

	return r.apply(ctx, kindInvoice, invoiceID, models.DayKey(*inv.PaidAt), r.currencyOr(inv.Currency), delta, kindInvoice+":"+inv.ID)
}

func (r *Recorder) RecordRefundSucceeded(ctx context.Context, refundID string) error {
	rf, err := r.store.GetRefund(ctx, refundID)
	if err != nil {
		return r.lookupFailed(kindRefund, refundID, err)
	}
	if rf.Status != models.RefundApproved || rf.RefundedAt == nil {
		return r.skip(kindRefund, refundID, "invalid_state")
	}
	if rf.Amount.IsNegative() {
		return newValidationError("amount", "refund %s has a negative amount", refundID)
	}

	delta := models.LedgerDelta{Refunds: rf.Amount}
	return r.apply(ctx, kindRefund, refundID, models.DayKey(*rf.RefundedAt), r.currencyOr(rf.Currency), delta, kindRefund+":"+rf.ID)
}

// RecordAdEvent appends the audit row, bumps campaign and ad totals and adds
// counts and revenue to the day of in.At.
func (r *Recorder) RecordAdEvent(ctx context.Context, in AdEventInput) error {
	if in.Type != models.AdEventImpression && in.Type != models.AdEventClick {
		return newValidationError("type", "unknown ad event type %q", in.Type)
	}
	if in.Count == 0 {
		in.Count = 1
	}
	if in.Count < 0 {
		return newValidationError("count", "count must be positive")
	}
	if in.At.IsZero() {
		in.At = r.now()
	}

	if in.CampaignID == "" {
		return r.recordUnattributed(ctx, in)
	}

	campaign, err := r.store.GetCampaign(ctx, in.CampaignID)
	if err != nil {
		return r.lookupFailed(kindAd, in.CampaignID, err)
	}
	return r.recordForCampaign(ctx, campaign, in)
}

func (r *Recorder) recordForCampaign(ctx context.Context, campaign *models.AdCampaign, in AdEventInput) error {
	adID := in.AdID
	if adID == "" {
		adID = campaign.AdID
	}

	rec := repository.AdEventRecord{
		Event: models.AdEvent{
			CampaignID: campaign.ID,
			AdID:       adID,
			UserID:     in.UserID,
			Type:       in.Type,
			Count:      in.Count,
			At:         in.At.UTC(),
			Day:        models.DayKey(in.At),
		},
		Currency: r.currencyOr(campaign.Currency),
		Revenue:  campaign.RevenueFor(in.Type, in.Count),
	}
	if in.EventID != "" {
		rec.EventKey = kindAd + ":" + in.EventID
	}

	applied, err := r.store.RecordAdEvent(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return r.skip(kindAd, campaign.ID, "not_found")
		}
		return transient(err)
	}
	if !applied {
		return r.skip(kindAd, in.EventID, "duplicate")
	}

	metrics.EventsRecorded.WithLabelValues(kindAd).Inc()
	return nil
}

// recordUnattributed handles events for ads served without a campaign id.
// Without an active campaign only the ad's lifetime counter moves.
func (r *Recorder) recordUnattributed(ctx context.Context, in AdEventInput) error {
	if in.AdID == "" {
		return newValidationError("adId", "adId or campaignId is required")
	}

	campaign, err := r.store.FindActiveCampaignForAd(ctx, in.AdID, in.At)
	if err == nil {
		return r.recordForCampaign(ctx, campaign, in)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return transient(err)
	}

	if err := r.store.IncrementAdCounter(ctx, in.AdID, in.Type, in.Count); err != nil {
		return r.lookupFailed(kindAd, in.AdID, err)
	}
	r.logger.WithFields(logrus.Fields{
		"ad_id": in.AdID,
		"type":  in.Type,
	}).Debug("Counted ad event without an active campaign")
	return nil
}

// Dispatch routes an envelope to the matching Record method.
func (r *Recorder) Dispatch(ctx context.Context, env models.EventEnvelope) error {
	switch env.Type {
	case models.EventInvoicePaid:
		return r.RecordInvoicePaid(ctx, env.InvoiceID)
	case models.EventRefundSucceeded:
		return r.RecordRefundSucceeded(ctx, env.RefundID)
	case models.EventAdImpression, models.EventAdClick:
		t, _ := env.AdEventType()
		return r.RecordAdEvent(ctx, AdEventInput{
			EventID:    env.ID,
			CampaignID: env.CampaignID,
			AdID:       env.AdID,
			Type:       t,
			At:         env.At,
			Count:      env.Count,
			UserID:     env.UserID,
		})
	}
	return newValidationError("type", "unknown event type %q", env.Type)
}

func (r *Recorder) apply(ctx context.Context, kind, sourceID, day, currency string, delta models.LedgerDelta, key string) error {
	applied, err := r.store.IncrementDay(ctx, day, currency, delta, key)
	if err != nil {
		return transient(err)
	}
	if !applied {
		return r.skip(kind, sourceID, "duplicate")
	}

	metrics.EventsRecorded.WithLabelValues(kind).Inc()
	r.logger.WithFields(logrus.Fields{
		"kind":      kind,
		"source_id": sourceID,
		"day":       day,
	}).Debug("Recorded ledger event")
	return nil
}

func (r *Recorder) lookupFailed(kind, sourceID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return r.skip(kind, sourceID, "not_found")
	}
	return transient(err)
}

func (r *Recorder) skip(kind, sourceID, reason string) error {
	metrics.EventsSkipped.WithLabelValues(kind, reason).Inc()
	r.logger.WithFields(logrus.Fields{
		"kind":      kind,
		"source_id": sourceID,
		"reason":    reason,
	}).Info("Skipped ledger event")
	return nil
}

func (r *Recorder) currencyOr(currency string) string {
	if currency != "" {
		return currency
	}
	return r.currency
}
