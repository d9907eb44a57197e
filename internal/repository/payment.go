package repository

import (
	"context"
	"marketplace-api/internal/model"
	"time"

	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *model.PaymentRecord) error
	FindByID(ctx context.Context, tx *gorm.DB, paymentID uint, lock bool) (*model.PaymentRecord, error)
	FindByReference(ctx context.Context, tx *gorm.DB, reference string, lock bool) (*model.PaymentRecord, error)
	FindByProviderOrder(ctx context.Context, orderID string) (*model.PaymentRecord, error)
	SetProviderOrder(ctx context.Context, paymentID uint, orderID string) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, paymentID uint, at time.Time) error
	CountPending(ctx context.Context, tx *gorm.DB, subscriptionID uint) (int64, error)
	ListBySubscription(ctx context.Context, subscriptionID uint) ([]*model.PaymentRecord, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{
		db: db,
	}
}

func (r *paymentRepoImpl) Create(ctx context.Context, tx *gorm.DB, payment *model.PaymentRecord) error {
	return pick(r.db, tx).WithContext(ctx).Create(payment).Error
}

func (r *paymentRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, paymentID uint, lock bool) (*model.PaymentRecord, error) {
	return r.findOne(ctx, tx, lock, "id = ?", paymentID)
}

func (r *paymentRepoImpl) FindByReference(ctx context.Context, tx *gorm.DB, reference string, lock bool) (*model.PaymentRecord, error) {
	return r.findOne(ctx, tx, lock, "reference = ?", reference)
}

func (r *paymentRepoImpl) FindByProviderOrder(ctx context.Context, orderID string) (*model.PaymentRecord, error) {
	return r.findOne(ctx, nil, false, "provider_order = ?", orderID)
}

// SetProviderOrder attaches a checkout order to a payment that is still pending.
func (r *paymentRepoImpl) SetProviderOrder(ctx context.Context, paymentID uint, orderID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where(`
			id = ?
			AND status = ?
		`,
			paymentID,
			model.PaymentRecordPending,
		).
		Update("provider_order", orderID)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *paymentRepoImpl) findOne(ctx context.Context, tx *gorm.DB, lock bool, query string, arg interface{}) (*model.PaymentRecord, error) {
	var payment model.PaymentRecord
	err := forUpdate(pick(r.db, tx).WithContext(ctx), lock).
		Where(query, arg).
		First(&payment).Error
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) MarkCompleted(ctx context.Context, tx *gorm.DB, paymentID uint, at time.Time) error {
	result := pick(r.db, tx).WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where(`
			id = ?
			AND status = ?
		`,
			paymentID,
			model.PaymentRecordPending,
		).
		Updates(map[string]interface{}{
			"status":       model.PaymentRecordCompleted,
			"completed_at": at,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *paymentRepoImpl) CountPending(ctx context.Context, tx *gorm.DB, subscriptionID uint) (int64, error) {
	var count int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.PaymentRecord{}).
		Where("subscription_id = ?", subscriptionID).
		Where("status = ?", model.PaymentRecordPending).
		Count(&count).Error

	return count, err
}

func (r *paymentRepoImpl) ListBySubscription(ctx context.Context, subscriptionID uint) ([]*model.PaymentRecord, error) {
	var payments []*model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("id").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	return payments, nil
}
