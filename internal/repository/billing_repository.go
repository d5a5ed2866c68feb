package repository

import (
	"context"
	"fmt"
	"time"

	"monetization-ledger/internal/models"
)

var activeStatuses = []models.SubscriptionStatus{models.SubscriptionTrialing, models.SubscriptionActive}

func (s *GormStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *GormStore) GetRefund(ctx context.Context, id string) (*models.Refund, error) {
	var rf models.Refund
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rf).Error; err != nil {
		return nil, translate(err)
	}
	return &rf, nil
}

func (s *GormStore) CountActiveAt(ctx context.Context, at time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("status IN ? AND current_period_end > ?", activeStatuses, at).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count active subscriptions: %w", err)
	}
	return n, nil
}

func (s *GormStore) CountStartedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("start_at >= ? AND start_at <= ?", from, to).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count new subscriptions: %w", err)
	}
	return n, nil
}

func (s *GormStore) CountCanceledBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("status IN ?", []models.SubscriptionStatus{models.SubscriptionCanceled, models.SubscriptionExpired}).
		Where("canceled_at >= ? AND canceled_at <= ?", from, to).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count canceled subscriptions: %w", err)
	}
	return n, nil
}

func (s *GormStore) ListActiveAt(ctx context.Context, at time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Select("id", "plan_id").
		Where("status IN ? AND current_period_end > ?", activeStatuses, at).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	return subs, nil
}

func (s *GormStore) HasActiveSubscription(ctx context.Context, userID string, at time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND status IN ? AND current_period_end > ?", userID, activeStatuses, at).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("find active subscription for %s: %w", userID, err)
	}
	return n > 0, nil
}

func (s *GormStore) ListPlansByIDs(ctx context.Context, ids []string) ([]models.Plan, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var plans []models.Plan
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}
