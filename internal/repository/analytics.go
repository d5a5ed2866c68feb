package repository

import (
	"context"
	"fmt"
	"time"

	"monetization-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AggregateAdEvents sums audit rows per day. Days without events are omitted.
func (s *GormStore) AggregateAdEvents(ctx context.Context, adID, fromDay, toDay string) ([]models.AdDailyStat, error) {
	var rows []struct {
		Day   string
		Type  string
		Total int64
	}

	err := s.db.WithContext(ctx).
		Model(&models.AdEvent{}).
		Select("day, type, SUM(count) AS total").
		Where("ad_id = ? AND day >= ? AND day <= ?", adID, fromDay, toDay).
		Group("day, type").
		Order("day asc").
		Scan(&rows).Error
	if err != nil {
		s.logger.WithError(err).Error("Failed to aggregate ad events")
		return nil, fmt.Errorf("aggregate ad events: %w", err)
	}

	var stats []models.AdDailyStat
	for _, r := range rows {
		if len(stats) == 0 || stats[len(stats)-1].Day != r.Day {
			stats = append(stats, models.AdDailyStat{Day: r.Day})
		}
		last := &stats[len(stats)-1]
		if models.AdEventType(r.Type) == models.AdEventClick {
			last.Clicks += r.Total
		} else {
			last.Impressions += r.Total
		}
	}

	s.logger.WithFields(logrus.Fields{
		"ad_id": adID,
		"from":  fromDay,
		"to":    toDay,
		"days":  len(stats),
	}).Debug("Aggregated ad events")

	return stats, nil
}

// CountDistinctUsers counts users with a heartbeat inside [from, to].
func (s *GormStore) CountDistinctUsers(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("last_heartbeat_at >= ? AND last_heartbeat_at <= ?", from, to).
		Distinct("user_id").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count distinct users: %w", err)
	}
	return n, nil
}

// CountPaidInvoices counts invoices paid inside [from, to].
func (s *GormStore) CountPaidInvoices(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("status = ? AND paid_at >= ? AND paid_at <= ?", models.InvoicePaid, from, to).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count paid invoices: %w", err)
	}
	return n, nil
}

// SumPaidInvoices sums what invoices paid inside [from, to] earned.
func (s *GormStore) SumPaidInvoices(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("COALESCE(SUM(CASE WHEN net_amount <> 0 THEN net_amount ELSE gross_amount END), 0)").
		Where("status = ? AND paid_at >= ? AND paid_at <= ?", models.InvoicePaid, from, to).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum paid invoices: %w", err)
	}
	return total, nil
}

// SumApprovedRefunds sums approved refunds issued inside [from, to].
func (s *GormStore) SumApprovedRefunds(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&models.Refund{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND refunded_at >= ? AND refunded_at <= ?", models.RefundApproved, from, to).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum approved refunds: %w", err)
	}
	return total, nil
}

func (s *GormStore) CountRefundsByStatus(ctx context.Context, status models.RefundStatus) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("status = ?", status).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count %s refunds: %w", status, err)
	}
	return n, nil
}
