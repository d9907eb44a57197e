package repository

import (
	"context"
	"marketplace-api/internal/model"
	"time"

	"gorm.io/gorm"
)

type PaymentEventRepository interface {
	Exists(ctx context.Context, tx *gorm.DB, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, eventID, eventType string) error
}

type paymentEventRepoImpl struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) PaymentEventRepository {
	return &paymentEventRepoImpl{db: db}
}

func (r *paymentEventRepoImpl) Exists(ctx context.Context, tx *gorm.DB, eventID string) (bool, error) {
	var count int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.PaymentEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error

	return count > 0, err
}

func (r *paymentEventRepoImpl) MarkProcessed(ctx context.Context, tx *gorm.DB, eventID string, eventType string) error {
	return pick(r.db, tx).WithContext(ctx).Create(&model.PaymentEvent{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}).Error
}
