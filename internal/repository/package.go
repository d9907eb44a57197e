package repository

import (
	"context"
	"marketplace-api/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PackageRepository interface {
	Seed(ctx context.Context) error
	Create(ctx context.Context, pkg *model.Package) error
	FindByID(ctx context.Context, tx *gorm.DB, packageID uint) (*model.Package, error)
	List(ctx context.Context, vendorTypeID uint) ([]*model.Package, error)
}

type packageRepoImpl struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepoImpl{
		db: db,
	}
}

func (r *packageRepoImpl) Seed(ctx context.Context) error {
	packages := []model.Package{
		{ID: 1, Name: "Starter", VendorTypeID: 1, Price: decimal.NewFromInt(100), BiweeklyPrice: decimal.Zero, MaxProducts: 5, IsActive: true},
		{ID: 2, Name: "Business", VendorTypeID: 1, Price: decimal.NewFromInt(250), BiweeklyPrice: decimal.Zero, MaxProducts: 20, IsActive: true},
		{ID: 3, Name: "Real estate listings", VendorTypeID: 2, Price: decimal.NewFromInt(180), BiweeklyPrice: decimal.NewFromInt(95), MaxProducts: 10, IsActive: true},
		{ID: 4, Name: "Services", VendorTypeID: 3, Price: decimal.NewFromInt(60), BiweeklyPrice: decimal.Zero, MaxProducts: 3, IsActive: true},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&packages).Error
}

func (r *packageRepoImpl) Create(ctx context.Context, pkg *model.Package) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *packageRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, packageID uint) (*model.Package, error) {
	var pkg model.Package
	err := pick(r.db, tx).WithContext(ctx).
		Where("id = ?", packageID).
		First(&pkg).Error
	if err != nil {
		return nil, err
	}

	return &pkg, nil
}

func (r *packageRepoImpl) List(ctx context.Context, vendorTypeID uint) ([]*model.Package, error) {
	var packages []*model.Package
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if vendorTypeID != 0 {
		q = q.Where("vendor_type_id = ?", vendorTypeID)
	}

	if err := q.Order("id").Find(&packages).Error; err != nil {
		return nil, err
	}

	return packages, nil
}
