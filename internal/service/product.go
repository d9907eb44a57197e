package service

import (
	"context"
	"fmt"
	"marketplace-api/internal/entitlement"
	"marketplace-api/internal/metrics"
	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductParams struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

type ProductService interface {
	Create(ctx context.Context, vendorID uint, params CreateProductParams) (*model.Product, error)
	List(ctx context.Context, vendorID uint) ([]*model.Product, error)
	Delete(ctx context.Context, actor model.Actor, productID uint) error
}

type productServiceImpl struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	subRepo     repository.SubscriptionRepository
	productRepo repository.ProductRepository
	settings
}

func NewProductService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	productRepo repository.ProductRepository,
	opts ...Option,
) ProductService {
	return &productServiceImpl{
		db:          db,
		userRepo:    userRepo,
		subRepo:     subRepo,
		productRepo: productRepo,
		settings:    newSettings(opts),
	}
}

// Create inserts a product only if the vendor is entitled to one more. The check and
// the insert share a transaction holding the subscription row lock.
func (s *productServiceImpl) Create(ctx context.Context, vendorID uint, params CreateProductParams) (*model.Product, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" || params.Price.IsNegative() {
		return nil, ErrInvalidRequest
	}

	now := s.clock()
	product := &model.Product{
		VendorID:    vendorID,
		Name:        name,
		Description: params.Description,
		Price:       params.Price,
	}

	var (
		decision entitlement.Decision
		decided  bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vendor, err := s.userRepo.FindByID(ctx, tx, vendorID, false)
		if err != nil {
			return notFound(err, "vendor")
		}
		if !vendor.RoleID.IsVendor() {
			return ErrInvalidRole
		}

		state, err := loadEntitlementState(ctx, tx, s.subRepo, s.productRepo, vendorID, now, true)
		if err != nil {
			return err
		}

		decision = entitlement.Decide(state, now)
		decided = true
		if !decision.Allowed {
			return decision.Err()
		}

		if err := s.productRepo.Create(ctx, tx, product); err != nil {
			return fmt.Errorf("store product: %w", err)
		}
		return nil
	})

	if decided {
		metrics.RecordDecision(decision.Allowed, string(decision.Reason))
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Uint("vendor_id", vendorID).
		Uint("product_id", product.ID).
		Int("remaining", decision.Remaining-1).
		Msg("product created")

	return product, nil
}

func (s *productServiceImpl) List(ctx context.Context, vendorID uint) ([]*model.Product, error) {
	return s.productRepo.ListByVendor(ctx, vendorID)
}

func (s *productServiceImpl) Delete(ctx context.Context, actor model.Actor, productID uint) error {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return notFound(err, "product")
	}

	if !actor.CanActForVendor(product.VendorID) {
		return ErrForbidden
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return notFound(err, "product")
	}

	log.Info().Uint("product_id", productID).Uint("actor_id", actor.UserID).Msg("product deleted")
	return nil
}
