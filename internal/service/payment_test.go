package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-api/internal/dto"
	"marketplace-api/internal/entitlement"
	"marketplace-api/internal/model"
	"marketplace-api/internal/service"
)

func TestCompletePaymentActivatesSelfServiceSubscription(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res, err := e.subscriptions.Subscribe(ctx, service.SubscribeParams{
		VendorID:  e.f.Vendor.ID,
		PackageID: e.f.Starter.ID,
		Months:    1,
	})
	require.NoError(t, err)

	d, err := e.entitlements.CanAddProduct(ctx, e.f.Vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.ReasonNoSubscription, d.Reason, "pending subscriptions grant nothing")

	payment, err := e.settlements.Complete(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRecordCompleted, payment.Status)

	sub := e.reload(t, res.Subscription.ID)
	assert.Equal(t, model.SubscriptionActive, sub.Status)
	assert.Equal(t, model.PaymentPaid, sub.PaymentStatus)

	d, err = e.entitlements.CanAddProduct(ctx, e.f.Vendor.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 5, d.Remaining)

	// completing twice is a no-op
	_, err = e.settlements.Complete(ctx, res.Payment.ID)
	require.NoError(t, err)

	_, err = e.settlements.Complete(ctx, 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCompletePaymentWaitsForAllPending(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res := e.assign(t, service.SubscribeParams{DeferPayment: true, Months: 2})
	up, err := e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Vendor.ID, AddSlots: 1})
	require.NoError(t, err)

	_, err = e.settlements.Complete(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, e.reload(t, res.Subscription.ID).PaymentStatus)

	_, err = e.settlements.Complete(ctx, up.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, e.reload(t, res.Subscription.ID).PaymentStatus)
}

func TestHandleWebhookIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res, err := e.subscriptions.Subscribe(ctx, service.SubscribeParams{
		VendorID:  e.f.Vendor.ID,
		PackageID: e.f.Starter.ID,
		Months:    1,
	})
	require.NoError(t, err)

	event := dto.PaymentWebhookEvent{ID: "evt-42", Type: dto.PaymentCompletedEvent, Reference: res.Payment.Reference}
	require.NoError(t, e.settlements.HandleWebhook(ctx, event))
	require.NoError(t, e.settlements.HandleWebhook(ctx, event))

	assert.Equal(t, model.SubscriptionActive, e.reload(t, res.Subscription.ID).Status)

	var processed int64
	require.NoError(t, e.db.Model(&model.PaymentEvent{}).Count(&processed).Error)
	assert.EqualValues(t, 1, processed)

	require.NoError(t, e.settlements.HandleWebhook(ctx, dto.PaymentWebhookEvent{ID: "evt-43", Type: "payment.refunded", Reference: "x"}))

	err = e.settlements.HandleWebhook(ctx, dto.PaymentWebhookEvent{ID: "evt-44", Type: dto.PaymentCompletedEvent, Reference: "missing"})
	assert.ErrorIs(t, err, service.ErrNotFound)

	err = e.settlements.HandleWebhook(ctx, dto.PaymentWebhookEvent{Type: dto.PaymentCompletedEvent})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestSelfServiceUpgradeLeavesSubscriptionUnpaid(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	res := e.assign(t, service.SubscribeParams{Months: 3})
	require.Equal(t, model.PaymentPaid, res.Subscription.PaymentStatus)

	e.now = t0.AddDate(0, 0, 10)
	up, err := e.subscriptions.Upgrade(ctx, service.UpgradeParams{VendorID: e.f.Vendor.ID, AddSlots: 2})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRecordPending, up.Payment.Status)
	assert.Equal(t, model.PaymentPending, up.Subscription.PaymentStatus)
	assert.Equal(t, model.PaymentPending, e.reload(t, res.Subscription.ID).PaymentStatus)

	d, err := e.entitlements.CanAddProduct(ctx, e.f.Vendor.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "inside the first month")
	assert.Equal(t, 7, d.Remaining)

	e.now = t0.AddDate(0, 1, 10)
	d, err = e.entitlements.CanAddProduct(ctx, e.f.Vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.ReasonPaymentRequired, d.Reason)

	_, err = e.settlements.Complete(ctx, up.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, e.reload(t, res.Subscription.ID).PaymentStatus)

	d, err = e.entitlements.CanAddProduct(ctx, e.f.Vendor.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAdminUpgradeKeepsSubscriptionPaid(t *testing.T) {
	e := newTestEnv(t)

	res := e.assign(t, service.SubscribeParams{Months: 2})
	up, err := e.subscriptions.Upgrade(context.Background(), service.UpgradeParams{
		VendorID:  e.f.Vendor.ID,
		AddMonths: 1,
		Flow:      service.FlowAdmin,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentRecordCompleted, up.Payment.Status)
	assert.Equal(t, model.PaymentPaid, e.reload(t, res.Subscription.ID).PaymentStatus)
}
