package database

import (
	"time"

	"monetization-ledger/internal/config"
	"monetization-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupDatabase(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.LogLevel == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	log.WithFields(logrus.Fields{
		"max_idle_conns": cfg.DBMaxIdleConns,
		"max_open_conns": cfg.DBMaxOpenConns,
	}).Info("Connected to database")

	return db, nil
}

// Migrate creates or updates every table the service owns or reads.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DailyLedgerRow{},
		&models.AppliedEvent{},
		&models.Ad{},
		&models.AdCampaign{},
		&models.AdEvent{},
		&models.Invoice{},
		&models.Refund{},
		&models.Subscription{},
		&models.Plan{},
		&models.Session{},
		&models.Friendship{},
		&models.Post{},
		&models.User{},
	)
}

func SeedDatabase(db *gorm.DB) error {
	// Check if we already have ads
	var count int64
	if err := db.Model(&models.Ad{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		plans := []models.Plan{
			{Code: "premium-monthly", Name: "Premium Monthly", Price: decimal.NewFromInt(49000), Currency: "VND", Interval: models.IntervalMonth, IntervalCount: 1},
			{Code: "premium-yearly", Name: "Premium Yearly", Price: decimal.NewFromInt(490000), Currency: "VND", Interval: models.IntervalYear, IntervalCount: 1},
		}
		if err := tx.Create(&plans).Error; err != nil {
			return err
		}

		ads := []models.Ad{
			{Name: "Spring sale", Placement: models.PlacementFeed, ImageURL: "https://example.com/ad1.jpg", Title: "Spring sale", CTAURL: "https://example.com/sale", Priority: 10, IsActive: true},
			{Name: "New arrivals", Placement: models.PlacementFeed, ImageURL: "https://example.com/ad2.jpg", Title: "New arrivals", CTAURL: "https://example.com/new", Priority: 5, IsActive: true},
			{Name: "Launch splash", Placement: models.PlacementSplash, ImageURL: "https://example.com/ad3.jpg", Title: "Launch", CTAURL: "https://example.com/launch", Priority: 1, IsActive: true},
		}
		if err := tx.Create(&ads).Error; err != nil {
			return err
		}

		start := time.Now().UTC().Truncate(24 * time.Hour)
		end := start.AddDate(0, 0, 30)
		campaigns := []models.AdCampaign{
			{AdID: ads[0].ID, Name: "Spring CPM", PricingModel: models.PricingCPM, Currency: "VND", CPMRate: decimal.NewFromInt(5000), StartAt: &start, EndAt: &end, Status: models.CampaignActive},
			{AdID: ads[1].ID, Name: "Arrivals CPC", PricingModel: models.PricingCPC, Currency: "VND", CPCRate: decimal.NewFromInt(300), StartAt: &start, EndAt: &end, Status: models.CampaignActive},
			{AdID: ads[2].ID, Name: "Launch flat", PricingModel: models.PricingFlat, Currency: "VND", FlatTotal: decimal.NewFromInt(3000000), StartAt: &start, EndAt: &end, Status: models.CampaignActive},
		}
		return tx.Create(&campaigns).Error
	})
}
