package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"
	"marketplace-api/internal/testutil"
)

func newSub(vendorID, pkgID uint, status model.SubscriptionStatus, start, end time.Time) *model.Subscription {
	return &model.Subscription{
		VendorID:      vendorID,
		PackageID:     pkgID,
		VendorTypeID:  1,
		StartDate:     start,
		EndDate:       end,
		Status:        status,
		PaymentStatus: model.PaymentPaid,
		SlotCount:     5,
		AmountPaid:    decimal.NewFromInt(500),
	}
}

func TestSubscriptionRepositoryCurrentAndLapsed(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := repository.NewSubscriptionRepository(db)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.FindActive(ctx, nil, f.Vendor.ID, now, false)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	lapsed, err := repo.HasLapsed(ctx, nil, f.Vendor.ID, now)
	require.NoError(t, err)
	assert.False(t, lapsed)

	old := newSub(f.Vendor.ID, f.Starter.ID, model.SubscriptionActive, now.AddDate(0, -2, 0), now.AddDate(0, 0, -1))
	require.NoError(t, repo.Create(ctx, nil, old))

	_, err = repo.FindActive(ctx, nil, f.Vendor.ID, now, false)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "expired rows are never active")

	lapsed, err = repo.HasLapsed(ctx, nil, f.Vendor.ID, now)
	require.NoError(t, err)
	assert.True(t, lapsed)

	n, err := repo.ExpireLapsed(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	pending := newSub(f.Vendor.ID, f.Starter.ID, model.SubscriptionPending, now, now.AddDate(0, 1, 0))
	require.NoError(t, repo.Create(ctx, nil, pending))

	_, err = repo.FindActive(ctx, nil, f.Vendor.ID, now, true)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	live, err := repo.FindLive(ctx, nil, f.Vendor.ID, now, true)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, live.ID)

	require.NoError(t, repo.MarkPaid(ctx, nil, pending.ID, true))
	active, err := repo.FindActive(ctx, nil, f.Vendor.ID, now, false)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, active.PaymentStatus)

	newEnd := active.EndDate.AddDate(0, 1, 0)
	require.NoError(t, repo.ApplyUpgrade(ctx, nil, active.ID, 9, newEnd, decimal.RequireFromString("1234.50"), true))
	got, err := repo.FindByID(ctx, nil, active.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 9, got.SlotCount)
	assert.Equal(t, model.PaymentPending, got.PaymentStatus)
	assert.True(t, newEnd.Equal(got.EndDate))
	assert.True(t, decimal.RequireFromString("1234.50").Equal(got.AmountPaid))

	require.NoError(t, repo.Cancel(ctx, nil, active.ID, now))
	got, err = repo.FindByID(ctx, nil, active.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, got.Status)

	assert.ErrorIs(t, repo.ApplyUpgrade(ctx, nil, 9999, 1, now, decimal.Zero, false), gorm.ErrRecordNotFound)
}

func TestProductRepositoryCountExcludesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := repository.NewProductRepository(db)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, nil, &model.Product{VendorID: f.Vendor.ID, Name: name, Price: decimal.NewFromInt(1)}))
	}

	products, err := repo.ListByVendor(ctx, f.Vendor.ID)
	require.NoError(t, err)
	require.Len(t, products, 3)

	require.NoError(t, repo.Delete(ctx, products[0].ID))
	assert.ErrorIs(t, repo.Delete(ctx, products[0].ID), gorm.ErrRecordNotFound)

	count, err := repo.CountByVendor(ctx, nil, f.Vendor.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestPaymentRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := repository.NewPaymentRepository(db)
	now := time.Now().UTC()

	p := &model.PaymentRecord{
		Reference:      "ref-1",
		SubscriptionID: 1,
		VendorID:       f.Vendor.ID,
		Kind:           model.PaymentKindInitial,
		Amount:         decimal.RequireFromString("99.90"),
		Status:         model.PaymentRecordPending,
	}
	require.NoError(t, repo.Create(ctx, nil, p))

	pending, err := repo.CountPending(ctx, nil, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	byRef, err := repo.FindByReference(ctx, nil, "ref-1", true)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byRef.ID)

	require.NoError(t, repo.SetProviderOrder(ctx, p.ID, "ORDER-1"))
	byOrder, err := repo.FindByProviderOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byOrder.ID)

	require.NoError(t, repo.MarkCompleted(ctx, nil, p.ID, now))
	assert.ErrorIs(t, repo.SetProviderOrder(ctx, p.ID, "ORDER-2"), gorm.ErrRecordNotFound, "settled payments keep their order")
	assert.ErrorIs(t, repo.MarkCompleted(ctx, nil, p.ID, now), gorm.ErrRecordNotFound, "only pending rows flip")

	got, err := repo.FindByID(ctx, nil, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRecordCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	list, err := repo.ListBySubscription(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestVendorTypeAndPackageSeedsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	vendorTypes := repository.NewVendorTypeRepository(db)
	packages := repository.NewPackageRepository(db)

	require.NoError(t, vendorTypes.Seed(ctx))
	require.NoError(t, vendorTypes.Seed(ctx))
	require.NoError(t, packages.Seed(ctx))
	require.NoError(t, packages.Seed(ctx))

	vt, err := vendorTypes.FindByID(ctx, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, model.BillingBiweekly, vt.BillingCycle)

	all, err := packages.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	realEstate, err := packages.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, realEstate, 1)
	assert.True(t, decimal.NewFromInt(95).Equal(realEstate[0].BiweeklyPrice))

	require.NoError(t, vendorTypes.EnsureAffiliation(ctx, nil, 7, 2))
	require.NoError(t, vendorTypes.EnsureAffiliation(ctx, nil, 7, 2))
	affiliations, err := vendorTypes.ListAffiliations(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, affiliations, 1)
}

func TestPaymentEventRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewPaymentEventRepository(db)

	seen, err := repo.Exists(ctx, nil, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, repo.MarkProcessed(ctx, nil, "evt-1", "payment.completed"))
	seen, err = repo.Exists(ctx, nil, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.Error(t, repo.MarkProcessed(ctx, nil, "evt-1", "payment.completed"))
}
