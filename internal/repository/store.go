package repository

import (
	"context"
	"fmt"
	"time"

	"monetization-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm. Every counter change is an
// in-database increment so concurrent writers never lose updates.
type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB, logger *logrus.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: logger,
	}
}

func (s *GormStore) IncrementDay(ctx context.Context, day, currency string, delta models.LedgerDelta, eventKey string) (bool, error) {
	applied := true
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if eventKey != "" {
			ok, err := markApplied(tx, eventKey, day)
			if err != nil {
				return err
			}
			if !ok {
				applied = false
				return nil
			}
		}
		if err := ensureDay(tx, day, currency); err != nil {
			return err
		}
		return incrementDay(tx, day, delta)
	})
	if err != nil {
		return false, fmt.Errorf("increment day %s: %w", day, err)
	}

	s.logger.WithFields(logrus.Fields{
		"day":       day,
		"event_key": eventKey,
		"applied":   applied,
	}).Debug("Applied ledger increment")

	return applied, nil
}

func (s *GormStore) SetFlatAdsRevenue(ctx context.Context, day, currency string, amount decimal.Decimal) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDay(tx, day, currency); err != nil {
			return err
		}
		return tx.Model(&models.DailyLedgerRow{}).
			Where("day = ?", day).
			Updates(map[string]interface{}{"flat_ads_revenue": amount}).Error
	})
	if err != nil {
		return fmt.Errorf("set flat ads revenue %s: %w", day, err)
	}
	return nil
}

func (s *GormStore) SetDerived(ctx context.Context, day, currency string, m models.DerivedMetrics) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDay(tx, day, currency); err != nil {
			return err
		}
		return tx.Model(&models.DailyLedgerRow{}).
			Where("day = ?", day).
			Updates(map[string]interface{}{
				"dau":                  m.DAU,
				"mau":                  m.MAU,
				"arpu":                 m.ARPU,
				"active_subscribers":   m.ActiveSubscribers,
				"new_subscribers":      m.NewSubscribers,
				"canceled_subscribers": m.CanceledSubscribers,
				"churn_rate":           m.ChurnRate,
				"mrr":                  m.MRR,
				"arr":                  m.ARR,
				"computed_at":          m.ComputedAt,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("set derived metrics %s: %w", day, err)
	}
	return nil
}

func (s *GormStore) GetDay(ctx context.Context, day string) (*models.DailyLedgerRow, error) {
	var row models.DailyLedgerRow
	if err := s.db.WithContext(ctx).Where("day = ?", day).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (s *GormStore) ListDays(ctx context.Context, fromDay, toDay string) ([]models.DailyLedgerRow, error) {
	var rows []models.DailyLedgerRow
	err := s.db.WithContext(ctx).
		Where("day >= ? AND day <= ?", fromDay, toDay).
		Order("day asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list days %s..%s: %w", fromDay, toDay, err)
	}
	return rows, nil
}

func markApplied(tx *gorm.DB, key, day string) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.AppliedEvent{
		EventID:   key,
		Day:       day,
		AppliedAt: time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func ensureDay(tx *gorm.DB, day, currency string) error {
	row := models.DailyLedgerRow{Day: day, Currency: currency}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoNothing: true,
	}).Create(&row).Error
}

func incrementDay(tx *gorm.DB, day string, d models.LedgerDelta) error {
	updates := map[string]interface{}{}
	add := func(column string, v decimal.Decimal) {
		if !v.IsZero() {
			updates[column] = gorm.Expr(column+" + ?", v)
		}
	}
	add("subs_gross", d.SubsGross)
	add("subs_net", d.SubsNet)
	add("subs_tax", d.SubsTax)
	add("subs_provider_fees", d.SubsProviderFees)
	add("subs_platform_fees", d.SubsPlatformFees)
	add("refunds", d.Refunds)
	add("ads_revenue_counter", d.AdsRevenueCounter)
	if d.Impressions != 0 {
		updates["impressions"] = gorm.Expr("impressions + ?", d.Impressions)
	}
	if d.Clicks != 0 {
		updates["clicks"] = gorm.Expr("clicks + ?", d.Clicks)
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.DailyLedgerRow{}).Where("day = ?", day).Updates(updates).Error
}
