package service

import (
	"context"
	"errors"
	"fmt"
	"marketplace-api/internal/entitlement"
	"marketplace-api/internal/metrics"
	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Flow selects how a subscription change is billed.
type Flow int

const (
	// FlowSelfService: vendor-initiated, payment records start pending.
	FlowSelfService Flow = iota
	// FlowAdmin: admin-assigned, treated as paid on the spot.
	FlowAdmin
)

type SubscribeParams struct {
	VendorID     uint
	PackageID    uint
	VendorTypeID uint // defaults to the package's vendor type
	Months       int
	Days         int
	Slots        int // defaults to the package's MaxProducts
	AutoRenew    bool
	Force        bool // cancel a live subscription instead of failing with ErrAlreadyActive
	Flow         Flow
	DeferPayment bool // admin flow only
}

type SubscribeResult struct {
	Subscription *model.Subscription
	Payment      *model.PaymentRecord
	Replaced     *model.Subscription
}

type UpgradeParams struct {
	VendorID  uint
	PackageID uint // 0 or the current package keeps the subscription
	AddSlots  int
	AddDays   int
	AddMonths int
	Force     bool
	Flow      Flow
}

type UpgradeResult struct {
	Subscription *model.Subscription
	Payment      *model.PaymentRecord
	Quote        *entitlement.Quote // nil when the subscription was replaced
	Replaced     *model.Subscription
}

type SubscriptionService interface {
	Subscribe(ctx context.Context, params SubscribeParams) (*SubscribeResult, error)
	Upgrade(ctx context.Context, params UpgradeParams) (*UpgradeResult, error)
	Cancel(ctx context.Context, vendorID uint) (*model.Subscription, error)
	GetCurrent(ctx context.Context, vendorID uint) (*model.Subscription, error)
	ListPayments(ctx context.Context, subscriptionID uint) ([]*model.PaymentRecord, error)
	ListPackages(ctx context.Context, vendorTypeID uint) ([]*model.Package, error)
	ExpireLapsed(ctx context.Context) (int64, error)
}

type subscriptionServiceImpl struct {
	db             *gorm.DB
	userRepo       repository.UserRepository
	packageRepo    repository.PackageRepository
	vendorTypeRepo repository.VendorTypeRepository
	subRepo        repository.SubscriptionRepository
	paymentRepo    repository.PaymentRepository
	settings
}

func NewSubscriptionService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	packageRepo repository.PackageRepository,
	vendorTypeRepo repository.VendorTypeRepository,
	subRepo repository.SubscriptionRepository,
	paymentRepo repository.PaymentRepository,
	opts ...Option,
) SubscriptionService {
	return &subscriptionServiceImpl{
		db:             db,
		userRepo:       userRepo,
		packageRepo:    packageRepo,
		vendorTypeRepo: vendorTypeRepo,
		subRepo:        subRepo,
		paymentRepo:    paymentRepo,
		settings:       newSettings(opts),
	}
}

func (s *subscriptionServiceImpl) Subscribe(ctx context.Context, params SubscribeParams) (*SubscribeResult, error) {
	now := s.clock()

	var result *SubscribeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.subscribe(ctx, tx, params, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logCreated(result)
	return result, nil
}

func (s *subscriptionServiceImpl) Upgrade(ctx context.Context, params UpgradeParams) (*UpgradeResult, error) {
	now := s.clock()

	var result *UpgradeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// vendor row first, then subscription row: same lock order as Subscribe
		if _, err := s.lockVendor(ctx, tx, params.VendorID); err != nil {
			return err
		}

		current, err := s.subRepo.FindActive(ctx, tx, params.VendorID, now, true)
		if err != nil {
			return notFound(err, "active subscription")
		}

		if params.PackageID != 0 && params.PackageID != current.PackageID {
			if !params.Force {
				return ErrPackageMismatch
			}

			replaced, err := s.subscribe(ctx, tx, SubscribeParams{
				VendorID:  params.VendorID,
				PackageID: params.PackageID,
				Months:    params.AddMonths,
				Days:      params.AddDays,
				Slots:     params.AddSlots,
				AutoRenew: current.AutoRenew,
				Force:     true,
				Flow:      params.Flow,
			}, now)
			if err != nil {
				return err
			}

			result = &UpgradeResult{
				Subscription: replaced.Subscription,
				Payment:      replaced.Payment,
				Replaced:     replaced.Replaced,
			}
			return nil
		}

		pkg, err := s.packageRepo.FindByID(ctx, tx, current.PackageID)
		if err != nil {
			return notFound(err, "package")
		}
		vt, err := s.vendorTypeRepo.FindByID(ctx, tx, current.VendorTypeID)
		if err != nil {
			return notFound(err, "vendor type")
		}

		quote, err := entitlement.QuoteUpgrade(
			entitlement.Term{Slots: current.SlotCount, EndDate: current.EndDate},
			entitlement.UpgradeRequest{
				AddSlots: params.AddSlots,
				Extend:   entitlement.Duration{Days: params.AddDays, Months: params.AddMonths},
			},
			entitlement.RatesFor(pkg, vt),
			now,
		)
		if err != nil {
			return err
		}

		// self-service charges stay unpaid until settled; the first-month grace still applies
		paymentPending := params.Flow != FlowAdmin && quote.Charge.IsPositive()

		amountPaid := current.AmountPaid.Add(quote.Charge)
		if err := s.subRepo.ApplyUpgrade(ctx, tx, current.ID, quote.NewSlots, quote.NewEndDate, amountPaid, paymentPending); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}

		payment := newPayment(current, quote.Kind.PaymentKind(), quote.Charge, !paymentPending, now)
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("store payment record: %w", err)
		}

		current.SlotCount = quote.NewSlots
		current.EndDate = quote.NewEndDate
		current.AmountPaid = amountPaid
		if paymentPending {
			current.PaymentStatus = model.PaymentPending
		}

		result = &UpgradeResult{
			Subscription: current,
			Payment:      payment,
			Quote:        &quote,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Quote == nil {
		s.logCreated(&SubscribeResult{Subscription: result.Subscription, Payment: result.Payment, Replaced: result.Replaced})
		return result, nil
	}

	metrics.SubscriptionEventsTotal.WithLabelValues("upgraded").Inc()
	metrics.RecordCharge(string(result.Payment.Kind), result.Payment.Amount)
	log.Info().
		Uint("vendor_id", result.Subscription.VendorID).
		Uint("subscription_id", result.Subscription.ID).
		Str("kind", string(result.Quote.Kind)).
		Int("slot_count", result.Subscription.SlotCount).
		Time("end_date", result.Subscription.EndDate).
		Str("charge", result.Quote.Charge.StringFixed(2)).
		Msg("subscription upgraded")

	return result, nil
}

func (s *subscriptionServiceImpl) Cancel(ctx context.Context, vendorID uint) (*model.Subscription, error) {
	now := s.clock()

	var sub *model.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockVendor(ctx, tx, vendorID); err != nil {
			return err
		}

		var err error
		sub, err = s.subRepo.FindLive(ctx, tx, vendorID, now, true)
		if err != nil {
			return notFound(err, "subscription")
		}

		if err := s.subRepo.Cancel(ctx, tx, sub.ID, now); err != nil {
			return fmt.Errorf("cancel subscription: %w", err)
		}

		sub.Status = model.SubscriptionCancelled
		sub.EndDate = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SubscriptionEventsTotal.WithLabelValues("cancelled").Inc()
	log.Info().Uint("vendor_id", vendorID).Uint("subscription_id", sub.ID).Msg("subscription cancelled")

	return sub, nil
}

func (s *subscriptionServiceImpl) GetCurrent(ctx context.Context, vendorID uint) (*model.Subscription, error) {
	sub, err := s.subRepo.FindLive(ctx, nil, vendorID, s.clock(), false)
	if err != nil {
		return nil, notFound(err, "subscription")
	}
	return sub, nil
}

func (s *subscriptionServiceImpl) ListPayments(ctx context.Context, subscriptionID uint) ([]*model.PaymentRecord, error) {
	if _, err := s.subRepo.FindByID(ctx, nil, subscriptionID, false); err != nil {
		return nil, notFound(err, "subscription")
	}
	return s.paymentRepo.ListBySubscription(ctx, subscriptionID)
}

func (s *subscriptionServiceImpl) ListPackages(ctx context.Context, vendorTypeID uint) ([]*model.Package, error) {
	return s.packageRepo.List(ctx, vendorTypeID)
}

// ExpireLapsed flips lapsed active rows to expired. Reads compare end_date themselves,
// so running this is bookkeeping only.
func (s *subscriptionServiceImpl) ExpireLapsed(ctx context.Context) (int64, error) {
	n, err := s.subRepo.ExpireLapsed(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("expire lapsed subscriptions: %w", err)
	}

	metrics.SubscriptionEventsTotal.WithLabelValues("expired").Add(float64(n))
	log.Info().Int64("count", n).Msg("expired lapsed subscriptions")
	return n, nil
}

func (s *subscriptionServiceImpl) lockVendor(ctx context.Context, tx *gorm.DB, vendorID uint) (*model.User, error) {
	vendor, err := s.userRepo.FindByID(ctx, tx, vendorID, true)
	if err != nil {
		return nil, notFound(err, "vendor")
	}
	if !vendor.RoleID.IsVendor() {
		return nil, ErrInvalidRole
	}
	return vendor, nil
}

func (s *subscriptionServiceImpl) subscribe(ctx context.Context, tx *gorm.DB, params SubscribeParams, now time.Time) (*SubscribeResult, error) {
	if _, err := s.lockVendor(ctx, tx, params.VendorID); err != nil {
		return nil, err
	}

	pkg, err := s.packageRepo.FindByID(ctx, tx, params.PackageID)
	if err != nil {
		return nil, notFound(err, "package")
	}

	vendorTypeID := params.VendorTypeID
	if vendorTypeID == 0 {
		vendorTypeID = pkg.VendorTypeID
	}
	if vendorTypeID != pkg.VendorTypeID {
		return nil, fmt.Errorf("package %d is not offered to vendor type %d: %w", pkg.ID, vendorTypeID, ErrInvalidRequest)
	}

	vt, err := s.vendorTypeRepo.FindByID(ctx, tx, vendorTypeID)
	if err != nil {
		return nil, notFound(err, "vendor type")
	}

	slots := params.Slots
	if slots == 0 {
		slots = pkg.MaxProducts
	}

	quote, err := entitlement.QuoteNew(
		slots,
		entitlement.Duration{Days: params.Days, Months: params.Months},
		entitlement.RatesFor(pkg, vt),
		now,
	)
	if err != nil {
		return nil, err
	}

	result := &SubscribeResult{}

	live, err := s.subRepo.FindLive(ctx, tx, params.VendorID, now, true)
	switch {
	case err == nil:
		if !params.Force {
			return nil, ErrAlreadyActive
		}
		if err := s.subRepo.Cancel(ctx, tx, live.ID, now); err != nil {
			return nil, fmt.Errorf("cancel replaced subscription: %w", err)
		}
		live.Status = model.SubscriptionCancelled
		live.EndDate = now
		result.Replaced = live
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("get live subscription: %w", err)
	}

	paid := params.Flow == FlowAdmin && !params.DeferPayment

	sub := &model.Subscription{
		VendorID:      params.VendorID,
		PackageID:     pkg.ID,
		VendorTypeID:  vt.ID,
		StartDate:     quote.StartDate,
		EndDate:       quote.EndDate,
		Status:        model.SubscriptionPending,
		PaymentStatus: model.PaymentPending,
		SlotCount:     quote.Slots,
		AmountPaid:    quote.Charge,
		AutoRenew:     params.AutoRenew,
	}
	if params.Flow == FlowAdmin {
		sub.Status = model.SubscriptionActive
	}
	if paid {
		sub.PaymentStatus = model.PaymentPaid
	}

	if err := s.subRepo.Create(ctx, tx, sub); err != nil {
		return nil, fmt.Errorf("store subscription: %w", err)
	}

	payment := newPayment(sub, model.PaymentKindInitial, quote.Charge, paid, now)
	if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("store payment record: %w", err)
	}

	if err := s.vendorTypeRepo.EnsureAffiliation(ctx, tx, params.VendorID, vt.ID); err != nil {
		return nil, fmt.Errorf("store vendor type affiliation: %w", err)
	}

	result.Subscription = sub
	result.Payment = payment
	return result, nil
}

func (s *subscriptionServiceImpl) logCreated(result *SubscribeResult) {
	event := "created"
	if result.Replaced != nil {
		event = "replaced"
	}
	metrics.SubscriptionEventsTotal.WithLabelValues(event).Inc()
	metrics.RecordCharge(string(result.Payment.Kind), result.Payment.Amount)

	l := log.Info().
		Uint("vendor_id", result.Subscription.VendorID).
		Uint("subscription_id", result.Subscription.ID).
		Uint("package_id", result.Subscription.PackageID).
		Str("status", string(result.Subscription.Status)).
		Int("slot_count", result.Subscription.SlotCount).
		Str("charge", result.Payment.Amount.StringFixed(2))
	if result.Replaced != nil {
		l = l.Uint("replaced_subscription_id", result.Replaced.ID)
	}
	l.Msg("subscription " + event)
}

func newPayment(sub *model.Subscription, kind model.PaymentKind, amount decimal.Decimal, completed bool, now time.Time) *model.PaymentRecord {
	p := &model.PaymentRecord{
		Reference:      uuid.NewString(),
		SubscriptionID: sub.ID,
		VendorID:       sub.VendorID,
		Kind:           kind,
		Amount:         amount,
		Status:         model.PaymentRecordPending,
	}
	if completed {
		p.Status = model.PaymentRecordCompleted
		p.CompletedAt = &now
	}
	return p
}
