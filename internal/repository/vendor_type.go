package repository

import (
	"context"
	"marketplace-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VendorTypeRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, tx *gorm.DB, vendorTypeID uint) (*model.VendorType, error)
	EnsureAffiliation(ctx context.Context, tx *gorm.DB, vendorID, vendorTypeID uint) error
	ListAffiliations(ctx context.Context, vendorID uint) ([]*model.VendorTypeAffiliation, error)
}

type vendorTypeRepoImpl struct {
	db *gorm.DB
}

func NewVendorTypeRepository(db *gorm.DB) VendorTypeRepository {
	return &vendorTypeRepoImpl{
		db: db,
	}
}

func (r *vendorTypeRepoImpl) Seed(ctx context.Context) error {
	types := []model.VendorType{
		{ID: 1, Name: "standard", BillingCycle: model.BillingMonthly},
		{ID: 2, Name: "real_estate", BillingCycle: model.BillingBiweekly},
		{ID: 3, Name: "services", BillingCycle: model.BillingMonthly},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&types).Error
}

func (r *vendorTypeRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, vendorTypeID uint) (*model.VendorType, error) {
	var vt model.VendorType
	err := pick(r.db, tx).WithContext(ctx).
		Where("id = ?", vendorTypeID).
		First(&vt).Error
	if err != nil {
		return nil, err
	}

	return &vt, nil
}

func (r *vendorTypeRepoImpl) EnsureAffiliation(ctx context.Context, tx *gorm.DB, vendorID, vendorTypeID uint) error {
	return pick(r.db, tx).WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.VendorTypeAffiliation{
			VendorID:     vendorID,
			VendorTypeID: vendorTypeID,
		}).Error
}

func (r *vendorTypeRepoImpl) ListAffiliations(ctx context.Context, vendorID uint) ([]*model.VendorTypeAffiliation, error) {
	var affiliations []*model.VendorTypeAffiliation
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Find(&affiliations).Error
	if err != nil {
		return nil, err
	}

	return affiliations, nil
}
