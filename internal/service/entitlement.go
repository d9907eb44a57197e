package service

import (
	"context"
	"errors"
	"fmt"
	"marketplace-api/internal/entitlement"
	"marketplace-api/internal/metrics"
	"marketplace-api/internal/repository"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type EntitlementService interface {
	CanAddProduct(ctx context.Context, vendorID uint) (entitlement.Decision, error)
}

type entitlementServiceImpl struct {
	userRepo    repository.UserRepository
	subRepo     repository.SubscriptionRepository
	productRepo repository.ProductRepository
	settings
}

func NewEntitlementService(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	productRepo repository.ProductRepository,
	opts ...Option,
) EntitlementService {
	return &entitlementServiceImpl{
		userRepo:    userRepo,
		subRepo:     subRepo,
		productRepo: productRepo,
		settings:    newSettings(opts),
	}
}

// CanAddProduct is a read-only check. Product creation repeats it under lock.
func (s *entitlementServiceImpl) CanAddProduct(ctx context.Context, vendorID uint) (entitlement.Decision, error) {
	vendor, err := s.userRepo.FindByID(ctx, nil, vendorID, false)
	if err != nil {
		return entitlement.Decision{}, notFound(err, "vendor")
	}
	if !vendor.RoleID.IsVendor() {
		return entitlement.Decision{}, ErrInvalidRole
	}

	now := s.clock()
	state, err := loadEntitlementState(ctx, nil, s.subRepo, s.productRepo, vendorID, now, false)
	if err != nil {
		return entitlement.Decision{}, err
	}

	d := entitlement.Decide(state, now)
	metrics.RecordDecision(d.Allowed, string(d.Reason))
	if !d.Allowed {
		log.Debug().Uint("vendor_id", vendorID).Str("reason", string(d.Reason)).Msg("product entitlement denied")
	}

	return d, nil
}

// loadEntitlementState reads the active subscription and live product count. With lock
// set, the subscription row stays locked until tx ends.
func loadEntitlementState(
	ctx context.Context,
	tx *gorm.DB,
	subRepo repository.SubscriptionRepository,
	productRepo repository.ProductRepository,
	vendorID uint,
	now time.Time,
	lock bool,
) (entitlement.State, error) {
	var state entitlement.State

	active, err := subRepo.FindActive(ctx, tx, vendorID, now, lock)
	switch {
	case err == nil:
		state.Active = active
	case errors.Is(err, gorm.ErrRecordNotFound):
		lapsed, err := subRepo.HasLapsed(ctx, tx, vendorID, now)
		if err != nil {
			return state, fmt.Errorf("check lapsed subscription: %w", err)
		}
		state.Lapsed = lapsed
	default:
		return state, fmt.Errorf("get active subscription: %w", err)
	}

	count, err := productRepo.CountByVendor(ctx, tx, vendorID)
	if err != nil {
		return state, fmt.Errorf("count products: %w", err)
	}
	state.ProductCount = count

	return state, nil
}
