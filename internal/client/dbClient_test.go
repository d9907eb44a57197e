package client

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-api/internal/config"
	"marketplace-api/internal/model"
)

func TestDialectorFor(t *testing.T) {
	for _, driver := range []string{"", "sqlite", "mysql", "postgres"} {
		d, err := dialectorFor(driver, "x")
		require.NoError(t, err, driver)
		assert.NotNil(t, d)
	}

	_, err := dialectorFor("oracle", "x")
	assert.Error(t, err)
}

func TestMigrateEnforcesSingleActiveSubscription(t *testing.T) {
	db, err := InitDBClient(config.Database{Driver: "sqlite", URL: ":memory:", MaxIdleConns: 1, MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))
	// idempotent
	require.NoError(t, Migrate(db))

	now := time.Now().UTC()
	newSub := func(status model.SubscriptionStatus) *model.Subscription {
		return &model.Subscription{
			VendorID:      9,
			PackageID:     1,
			VendorTypeID:  1,
			StartDate:     now,
			EndDate:       now.AddDate(0, 1, 0),
			Status:        status,
			PaymentStatus: model.PaymentPaid,
			SlotCount:     1,
			AmountPaid:    decimal.Zero,
		}
	}

	require.NoError(t, db.Create(newSub(model.SubscriptionActive)).Error)
	require.NoError(t, db.Create(newSub(model.SubscriptionCancelled)).Error)
	require.NoError(t, db.Create(newSub(model.SubscriptionCancelled)).Error)
	assert.Error(t, db.Create(newSub(model.SubscriptionActive)).Error)
}
