package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-api/internal/model"
	"marketplace-api/internal/service"
	"marketplace-api/internal/testutil"
)

func TestSubscribeSelfServiceStartsPending(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res, err := e.subscriptions.Subscribe(ctx, service.SubscribeParams{
		VendorID:  e.f.Vendor.ID,
		PackageID: e.f.Starter.ID,
		Months:    2,
		Flow:      service.FlowSelfService,
	})
	require.NoError(t, err)

	sub := res.Subscription
	assert.Equal(t, model.SubscriptionPending, sub.Status)
	assert.Equal(t, model.PaymentPending, sub.PaymentStatus)
	assert.Equal(t, e.f.Starter.MaxProducts, sub.SlotCount)
	assert.Equal(t, t0.AddDate(0, 2, 0), sub.EndDate)
	assertMoney(t, "1000.00", sub.AmountPaid)

	assert.Equal(t, model.PaymentKindInitial, res.Payment.Kind)
	assert.Equal(t, model.PaymentRecordPending, res.Payment.Status)
	assert.NotEmpty(t, res.Payment.Reference)
	assertMoney(t, "1000.00", res.Payment.Amount)

	var affiliations int64
	require.NoError(t, e.db.Model(&model.VendorTypeAffiliation{}).
		Where("vendor_id = ? AND vendor_type_id = ?", e.f.Vendor.ID, e.f.Monthly.ID).
		Count(&affiliations).Error)
	assert.EqualValues(t, 1, affiliations)
}

func TestSubscribeAdminAssignedIsActiveAndPaid(t *testing.T) {
	e := newTestEnv(t)

	res := e.assign(t, service.SubscribeParams{Slots: 7, Months: 3})

	assert.Equal(t, model.SubscriptionActive, res.Subscription.Status)
	assert.Equal(t, model.PaymentPaid, res.Subscription.PaymentStatus)
	assert.Equal(t, 7, res.Subscription.SlotCount)
	assertMoney(t, "2100.00", res.Subscription.AmountPaid)
	assert.Equal(t, model.PaymentRecordCompleted, res.Payment.Status)
	require.NotNil(t, res.Payment.CompletedAt)
}

func TestSubscribeBiweeklyVendorTypeUsesDays(t *testing.T) {
	e := newTestEnv(t)
	agent := testutil.NewVendor(t, e.db, "agent@example.com", model.RoleRealEstateVendor)

	res := e.assign(t, service.SubscribeParams{VendorID: agent.ID, PackageID: e.f.RealEstate.ID, Days: 28})

	// 95 per 14 days * 10 slots * 2 units
	assertMoney(t, "1900.00", res.Subscription.AmountPaid)
	assert.Equal(t, t0.AddDate(0, 0, 28), res.Subscription.EndDate)
	assert.Equal(t, e.f.Biweekly.ID, res.Subscription.VendorTypeID)
}

func TestSubscribeRejections(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	base := service.SubscribeParams{VendorID: e.f.Vendor.ID, PackageID: e.f.Starter.ID, Months: 1}

	p := base
	p.VendorID = e.f.Customer.ID
	_, err := e.subscriptions.Subscribe(ctx, p)
	assert.ErrorIs(t, err, service.ErrInvalidRole)

	p = base
	p.VendorID = 9999
	_, err = e.subscriptions.Subscribe(ctx, p)
	assert.ErrorIs(t, err, service.ErrNotFound)

	p = base
	p.PackageID = 9999
	_, err = e.subscriptions.Subscribe(ctx, p)
	assert.ErrorIs(t, err, service.ErrNotFound)

	p = base
	p.VendorTypeID = e.f.Biweekly.ID
	_, err = e.subscriptions.Subscribe(ctx, p)
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	p = base
	p.Months, p.Days = 1, 14
	_, err = e.subscriptions.Subscribe(ctx, p)
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	var subs int64
	require.NoError(t, e.db.Model(&model.Subscription{}).Count(&subs).Error)
	assert.Zero(t, subs)
}

func TestSubscribeAlreadyActiveUnlessForced(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	first := e.assign(t, service.SubscribeParams{})

	_, err := e.subscriptions.Subscribe(ctx, service.SubscribeParams{
		VendorID:  e.f.Vendor.ID,
		PackageID: e.f.Pro.ID,
		Months:    1,
		Flow:      service.FlowAdmin,
	})
	assert.ErrorIs(t, err, service.ErrAlreadyActive)

	e.now = t0.AddDate(0, 0, 5)
	second := e.assign(t, service.SubscribeParams{PackageID: e.f.Pro.ID, Force: true})

	require.NotNil(t, second.Replaced)
	assert.Equal(t, first.Subscription.ID, second.Replaced.ID)

	old := e.reload(t, first.Subscription.ID)
	assert.Equal(t, model.SubscriptionCancelled, old.Status)
	assert.True(t, old.EndDate.Equal(e.now), "cancelled subscriptions end now")

	// no credit for the unused part of the old plan
	assertMoney(t, "5000.00", second.Subscription.AmountPaid)
	assert.Equal(t, 20, second.Subscription.SlotCount)
}

func TestSubscribeConcurrentRequestsLeaveOneActive(t *testing.T) {
	for name, open := range raceBackends {
		t.Run(name, func(t *testing.T) {
			testSubscribeConcurrentRequests(t, newTestEnvOn(t, open(t)))
		})
	}
}

func testSubscribeConcurrentRequests(t *testing.T, e *testEnv) {
	const attempts = 6

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.subscriptions.Subscribe(context.Background(), service.SubscribeParams{
				VendorID:  e.f.Vendor.ID,
				PackageID: e.f.Starter.ID,
				Months:    1,
				Flow:      service.FlowAdmin,
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, service.ErrAlreadyActive):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, rejected)

	var active int64
	require.NoError(t, e.db.Model(&model.Subscription{}).
		Where("vendor_id = ? AND status = ?", e.f.Vendor.ID, model.SubscriptionActive).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)
}

func TestUpgradeSlotsAndDuration(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res := e.assign(t, service.SubscribeParams{})
	end := res.Subscription.EndDate
	e.now = end.Add(-10 * 24 * time.Hour)

	up, err := e.subscriptions.Upgrade(ctx, service.UpgradeParams{
		VendorID:  e.f.Vendor.ID,
		AddSlots:  3,
		AddMonths: 1,
		Flow:      service.FlowSelfService,
	})
	require.NoError(t, err)
	require.NotNil(t, up.Quote)

	assertMoney(t, "100.00", up.Quote.SlotCharge)
	assertMoney(t, "800.00", up.Quote.DurationCharge)
	assertMoney(t, "900.00", up.Payment.Amount)
	assert.Equal(t, model.PaymentKindUpgradeExtension, up.Payment.Kind)
	assert.Equal(t, model.PaymentRecordPending, up.Payment.Status)

	stored := e.reload(t, res.Subscription.ID)
	assert.Equal(t, 8, stored.SlotCount)
	assert.True(t, end.AddDate(0, 1, 0).Equal(stored.EndDate))
	assertMoney(t, "1400.00", stored.AmountPaid)

	payments, err := e.subscriptions.ListPayments(ctx, res.Subscription.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestUpgradeSlotsOnlyAndDurationOnly(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res := e.assign(t, service.SubscribeParams{})
	end := res.Subscription.EndDate
	e.now = end.Add(-15 * 24 * time.Hour)

	up, err := e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Vendor.ID, AddSlots: 2, Flow: service.FlowAdmin})
	require.NoError(t, err)
	stored := e.reload(t, res.Subscription.ID)
	assert.True(t, end.Equal(stored.EndDate), "slots-only upgrade keeps end date")
	assert.Equal(t, 7, stored.SlotCount)
	assertMoney(t, "100.00", up.Payment.Amount)
	assert.Equal(t, model.PaymentRecordCompleted, up.Payment.Status)

	up, err = e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Vendor.ID, AddDays: 15, Flow: service.FlowAdmin})
	require.NoError(t, err)
	stored = e.reload(t, res.Subscription.ID)
	assert.Equal(t, 7, stored.SlotCount, "duration-only upgrade keeps slot count")
	assert.True(t, end.AddDate(0, 0, 15).Equal(stored.EndDate))
	// 100 * 7 * 15 / 14
	assertMoney(t, "750.00", up.Payment.Amount)
	assert.Equal(t, model.PaymentKindExtension, up.Payment.Kind)
}

func TestUpgradeRejections(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	_, err := e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Vendor.ID, AddSlots: 1})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Customer.ID, AddSlots: 1})
	assert.ErrorIs(t, err, service.ErrInvalidRole)

	res := e.assign(t, service.SubscribeParams{})

	_, err = e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Vendor.ID})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Vendor.ID, PackageID: e.f.Pro.ID, AddSlots: 1})
	assert.ErrorIs(t, err, service.ErrPackageMismatch)

	// forced replacement without a duration fails and rolls back the cancellation
	_, err = e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Vendor.ID, PackageID: e.f.Pro.ID, Force: true})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
	assert.Equal(t, model.SubscriptionActive, e.reload(t, res.Subscription.ID).Status)
}

func TestUpgradeForcedPackageChangeReplaces(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res := e.assign(t, service.SubscribeParams{Months: 6})
	e.now = t0.AddDate(0, 1, 0)

	up, err := e.subscriptions.Upgrade(ctx, service.UpgradeParams{
		VendorID:  e.f.Vendor.ID,
		PackageID: e.f.Pro.ID,
		AddMonths: 1,
		Force:     true,
		Flow:      service.FlowSelfService,
	})
	require.NoError(t, err)

	assert.Nil(t, up.Quote)
	require.NotNil(t, up.Replaced)
	assert.Equal(t, res.Subscription.ID, up.Replaced.ID)
	assert.Equal(t, model.SubscriptionCancelled, e.reload(t, res.Subscription.ID).Status)

	assert.Equal(t, e.f.Pro.ID, up.Subscription.PackageID)
	assert.Equal(t, model.SubscriptionPending, up.Subscription.Status)
	assertMoney(t, "5000.00", up.Subscription.AmountPaid)
	assert.Equal(t, model.PaymentKindInitial, up.Payment.Kind)
}

func TestCancelAndGetCurrent(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	_, err := e.subscriptions.Cancel(ctx, e.f.Vendor.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	res := e.assign(t, service.SubscribeParams{})
	current, err := e.subscriptions.GetCurrent(ctx, e.f.Vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Subscription.ID, current.ID)

	e.now = t0.AddDate(0, 0, 3)
	cancelled, err := e.subscriptions.Cancel(ctx, e.f.Vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, cancelled.Status)

	_, err = e.subscriptions.GetCurrent(ctx, e.f.Vendor.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestExpireLapsed(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res := e.assign(t, service.SubscribeParams{})

	n, err := e.subscriptions.ExpireLapsed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	e.now = res.Subscription.EndDate.Add(time.Minute)
	n, err = e.subscriptions.ExpireLapsed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, model.SubscriptionExpired, e.reload(t, res.Subscription.ID).Status)
}

func TestListPackages(t *testing.T) {
	e := newTestEnv(t)

	all, err := e.subscriptions.ListPackages(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	monthly, err := e.subscriptions.ListPackages(context.Background(), e.f.Monthly.ID)
	require.NoError(t, err)
	assert.Len(t, monthly, 2)
}
