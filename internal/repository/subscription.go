package repository

import (
	"context"
	"marketplace-api/internal/model"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error
	FindByID(ctx context.Context, tx *gorm.DB, subscriptionID uint, lock bool) (*model.Subscription, error)

	// FindActive returns the vendor's active, unexpired subscription.
	FindActive(ctx context.Context, tx *gorm.DB, vendorID uint, now time.Time, lock bool) (*model.Subscription, error)
	// FindLive returns the vendor's pending or active, unexpired subscription.
	FindLive(ctx context.Context, tx *gorm.DB, vendorID uint, now time.Time, lock bool) (*model.Subscription, error)
	HasLapsed(ctx context.Context, tx *gorm.DB, vendorID uint, now time.Time) (bool, error)

	// ApplyUpgrade stores the new term. paymentPending marks the subscription unpaid until
	// the upgrade's payment record completes.
	ApplyUpgrade(ctx context.Context, tx *gorm.DB, subscriptionID uint, slots int, endDate time.Time, amountPaid decimal.Decimal, paymentPending bool) error
	Cancel(ctx context.Context, tx *gorm.DB, subscriptionID uint, at time.Time) error
	MarkPaid(ctx context.Context, tx *gorm.DB, subscriptionID uint, activate bool) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{
		db: db,
	}
}

func (r *subscriptionRepoImpl) Create(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	return pick(r.db, tx).WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, subscriptionID uint, lock bool) (*model.Subscription, error) {
	var sub model.Subscription
	err := forUpdate(pick(r.db, tx).WithContext(ctx), lock).
		Where("id = ?", subscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepoImpl) FindActive(ctx context.Context, tx *gorm.DB, vendorID uint, now time.Time, lock bool) (*model.Subscription, error) {
	return r.findCurrent(ctx, tx, vendorID, now, lock, model.SubscriptionActive)
}

func (r *subscriptionRepoImpl) FindLive(ctx context.Context, tx *gorm.DB, vendorID uint, now time.Time, lock bool) (*model.Subscription, error) {
	return r.findCurrent(ctx, tx, vendorID, now, lock, model.SubscriptionActive, model.SubscriptionPending)
}

func (r *subscriptionRepoImpl) findCurrent(ctx context.Context, tx *gorm.DB, vendorID uint, now time.Time, lock bool, statuses ...model.SubscriptionStatus) (*model.Subscription, error) {
	var sub model.Subscription
	err := forUpdate(pick(r.db, tx).WithContext(ctx), lock).
		Where(`
			vendor_id = ?
			AND status IN ?
			AND end_date > ?
		`,
			vendorID,
			statuses,
			now,
		).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

// HasLapsed reports whether the vendor held a subscription that ran out without being cancelled.
func (r *subscriptionRepoImpl) HasLapsed(ctx context.Context, tx *gorm.DB, vendorID uint, now time.Time) (bool, error) {
	var count int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.Subscription{}).
		Where("vendor_id = ?", vendorID).
		Where("status IN ?", []model.SubscriptionStatus{model.SubscriptionActive, model.SubscriptionExpired}).
		Where("end_date <= ?", now).
		Count(&count).Error

	return count > 0, err
}

func (r *subscriptionRepoImpl) ApplyUpgrade(ctx context.Context, tx *gorm.DB, subscriptionID uint, slots int, endDate time.Time, amountPaid decimal.Decimal, paymentPending bool) error {
	updates := map[string]interface{}{
		"slot_count":  slots,
		"end_date":    endDate,
		"amount_paid": amountPaid,
		"updated_at":  time.Now(),
	}
	if paymentPending {
		updates["payment_status"] = model.PaymentPending
	}

	result := pick(r.db, tx).WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *subscriptionRepoImpl) Cancel(ctx context.Context, tx *gorm.DB, subscriptionID uint, at time.Time) error {
	return pick(r.db, tx).WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"status":     model.SubscriptionCancelled,
			"end_date":   at,
			"updated_at": time.Now(),
		}).Error
}

func (r *subscriptionRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, subscriptionID uint, activate bool) error {
	updates := map[string]interface{}{
		"payment_status": model.PaymentPaid,
		"updated_at":     time.Now(),
	}
	if activate {
		updates["status"] = model.SubscriptionActive
	}

	return pick(r.db, tx).WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(updates).Error
}

func (r *subscriptionRepoImpl) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("status = ?", model.SubscriptionActive).
		Where("end_date <= ?", now).
		Updates(map[string]interface{}{
			"status":     model.SubscriptionExpired,
			"updated_at": time.Now(),
		})

	return result.RowsAffected, result.Error
}
