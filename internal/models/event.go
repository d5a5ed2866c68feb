package models

import "time"

type EventType string

const (
	EventInvoicePaid     EventType = "invoice.paid"
	EventRefundSucceeded EventType = "refund.succeeded"
	EventAdImpression    EventType = "ad.impression"
	EventAdClick         EventType = "ad.click"
)

// EventEnvelope carries one bookkeeping event through the queue or Kafka.
// Which reference fields are required depends on Type.
type EventEnvelope struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type" binding:"required"`
	InvoiceID  string    `json:"invoiceId,omitempty"`
	RefundID   string    `json:"refundId,omitempty"`
	CampaignID string    `json:"campaignId,omitempty"`
	AdID       string    `json:"adId,omitempty"`
	UserID     *string   `json:"userId,omitempty"`
	Count      int64     `json:"count,omitempty"`
	At         time.Time `json:"at"`
}

// AdEventType maps an ad envelope to the audit event type.
func (e EventEnvelope) AdEventType() (AdEventType, bool) {
	switch e.Type {
	case EventAdImpression:
		return AdEventImpression, true
	case EventAdClick:
		return AdEventClick, true
	}
	return "", false
}
