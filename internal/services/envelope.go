package services

import "monetization-ledger/internal/models"

// ValidateEnvelope checks that env names a known type and carries the
// reference its type requires.
func ValidateEnvelope(env models.EventEnvelope) error {
	switch env.Type {
	case models.EventInvoicePaid:
		if env.InvoiceID == "" {
			return newValidationError("invoiceId", "invoiceId is required")
		}
	case models.EventRefundSucceeded:
		if env.RefundID == "" {
			return newValidationError("refundId", "refundId is required")
		}
	case models.EventAdImpression, models.EventAdClick:
		if env.CampaignID == "" && env.AdID == "" {
			return newValidationError("adId", "adId or campaignId is required")
		}
		if env.Count < 0 {
			return newValidationError("count", "count must be positive")
		}
	default:
		return newValidationError("type", "unknown event type %q", env.Type)
	}
	return nil
}
