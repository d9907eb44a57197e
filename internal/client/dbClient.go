package client

import (
	"fmt"
	"marketplace-api/internal/config"
	"marketplace-api/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ActiveSubscriptionIndex keeps at most one active subscription per vendor where the
// dialect supports partial indexes.
const ActiveSubscriptionIndex = "ux_subscriptions_active_vendor"

func InitDBClient(cfg config.Database) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func dialectorFor(driver, url string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite", "":
		return sqlite.Open(url), nil
	case "mysql":
		return mysql.Open(url), nil
	case "postgres":
		return postgres.Open(url), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.VendorType{},
		&model.VendorTypeAffiliation{},
		&model.Package{},
		&model.Subscription{},
		&model.PaymentRecord{},
		&model.Product{},
		&model.PaymentEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		err := db.Exec(
			"CREATE UNIQUE INDEX IF NOT EXISTS " + ActiveSubscriptionIndex +
				" ON subscriptions (vendor_id) WHERE status = 'active'",
		).Error
		if err != nil {
			return fmt.Errorf("create active subscription index: %w", err)
		}
	}

	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
