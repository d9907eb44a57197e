package repository

import (
	"context"
	"marketplace-api/internal/model"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, tx *gorm.DB, product *model.Product) error
	FindByID(ctx context.Context, productID uint) (*model.Product, error)
	ListByVendor(ctx context.Context, vendorID uint) ([]*model.Product, error)
	// CountByVendor counts live products; soft-deleted rows are excluded.
	CountByVendor(ctx context.Context, tx *gorm.DB, vendorID uint) (int64, error)
	Delete(ctx context.Context, productID uint) error
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Create(ctx context.Context, tx *gorm.DB, product *model.Product) error {
	return pick(r.db, tx).WithContext(ctx).Create(product).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID uint) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) ListByVendor(ctx context.Context, vendorID uint) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("id").
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepoImpl) CountByVendor(ctx context.Context, tx *gorm.DB, vendorID uint) (int64, error) {
	var count int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.Product{}).
		Where("vendor_id = ?", vendorID).
		Count(&count).Error

	return count, err
}

func (r *productRepoImpl) Delete(ctx context.Context, productID uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Product{}, productID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
