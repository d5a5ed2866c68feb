package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceVoid          InvoiceStatus = "void"
	InvoiceUncollectible InvoiceStatus = "uncollectible"
	InvoiceFailed        InvoiceStatus = "failed"
)

type Invoice struct {
	ID                string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SubscriptionID    string          `json:"subscriptionId" gorm:"type:varchar(36);index"`
	UserID            string          `json:"userId" gorm:"type:varchar(36);index"`
	Status            InvoiceStatus   `json:"status" gorm:"type:varchar(16);not null;index"`
	Currency          string          `json:"currency" gorm:"type:varchar(8)"`
	GrossAmount       decimal.Decimal `json:"grossAmount" gorm:"type:numeric(20,4);not null;default:0"`
	NetAmount         decimal.Decimal `json:"netAmount" gorm:"type:numeric(20,4);not null;default:0"`
	TaxAmount         decimal.Decimal `json:"taxAmount" gorm:"type:numeric(20,4);not null;default:0"`
	ProviderFeeAmount decimal.Decimal `json:"providerFeeAmount" gorm:"type:numeric(20,4);not null;default:0"`
	PlatformFeeAmount decimal.Decimal `json:"platformFeeAmount" gorm:"type:numeric(20,4);not null;default:0"`
	PaidAt            *time.Time      `json:"paidAt" gorm:"index"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type RefundStatus string

const (
	RefundPending  RefundStatus = "pending"
	RefundApproved RefundStatus = "approved"
	RefundRejected RefundStatus = "rejected"
)

type Refund struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	InvoiceID  string          `json:"invoiceId" gorm:"type:varchar(36);index"`
	UserID     string          `json:"userId" gorm:"type:varchar(36)"`
	Status     RefundStatus    `json:"status" gorm:"type:varchar(16);not null"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:numeric(20,4);not null;default:0"`
	Currency   string          `json:"currency" gorm:"type:varchar(8)"`
	RefundedAt *time.Time      `json:"refundedAt"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (r *Refund) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

type Subscription struct {
	ID               string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID           string             `json:"userId" gorm:"type:varchar(36);index"`
	PlanID           string             `json:"planId" gorm:"type:varchar(36);index"`
	Status           SubscriptionStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	StartAt          time.Time          `json:"startAt" gorm:"index"`
	CurrentPeriodEnd time.Time          `json:"currentPeriodEnd" gorm:"index"`
	CanceledAt       *time.Time         `json:"canceledAt"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ActiveAt reports whether the subscription still counts as active at t.
func (s Subscription) ActiveAt(t time.Time) bool {
	return (s.Status == SubscriptionTrialing || s.Status == SubscriptionActive) && s.CurrentPeriodEnd.After(t)
}

type BillingInterval string

const (
	IntervalDay   BillingInterval = "day"
	IntervalWeek  BillingInterval = "week"
	IntervalMonth BillingInterval = "month"
	IntervalYear  BillingInterval = "year"
)

// Days returns the nominal length of one interval unit.
func (i BillingInterval) Days() int64 {
	switch i {
	case IntervalDay:
		return 1
	case IntervalWeek:
		return 7
	case IntervalYear:
		return 365
	default:
		return 30
	}
}

type Plan struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code          string          `json:"code" gorm:"type:varchar(64);uniqueIndex"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(20,4);not null;default:0"`
	Currency      string          `json:"currency" gorm:"type:varchar(8)"`
	Interval      BillingInterval `json:"interval" gorm:"type:varchar(8);not null;default:month"`
	IntervalCount int             `json:"intervalCount" gorm:"not null;default:1"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// MonthlyPrice normalizes the plan price to a 30 day period.
func (p Plan) MonthlyPrice() decimal.Decimal {
	count := int64(p.IntervalCount)
	if count < 1 {
		count = 1
	}
	periodDays := decimal.NewFromInt(p.Interval.Days() * count)
	return p.Price.Mul(decimal.NewFromInt(30)).Div(periodDays)
}
