package service

import (
	"context"
	"fmt"
	"marketplace-api/internal/dto"
	"marketplace-api/internal/metrics"
	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type PaymentService interface {
	Complete(ctx context.Context, paymentID uint) (*model.PaymentRecord, error)
	HandleWebhook(ctx context.Context, event dto.PaymentWebhookEvent) error
}

type paymentServiceImpl struct {
	db          *gorm.DB
	subRepo     repository.SubscriptionRepository
	paymentRepo repository.PaymentRepository
	eventRepo   repository.PaymentEventRepository
	settings
}

func NewPaymentService(
	db *gorm.DB,
	subRepo repository.SubscriptionRepository,
	paymentRepo repository.PaymentRepository,
	eventRepo repository.PaymentEventRepository,
	opts ...Option,
) PaymentService {
	return &paymentServiceImpl{
		db:          db,
		subRepo:     subRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		settings:    newSettings(opts),
	}
}

func (s *paymentServiceImpl) Complete(ctx context.Context, paymentID uint) (*model.PaymentRecord, error) {
	now := s.clock()

	var payment *model.PaymentRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.paymentRepo.FindByID(ctx, tx, paymentID, true)
		if err != nil {
			return notFound(err, "payment")
		}
		return s.complete(ctx, tx, payment, now)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, event dto.PaymentWebhookEvent) error {
	if event.ID == "" || event.Reference == "" {
		return fmt.Errorf("webhook event missing id or reference: %w", ErrInvalidRequest)
	}

	if event.Type != dto.PaymentCompletedEvent {
		log.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("ignoring payment event")
		return nil
	}

	now := s.clock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, err := s.eventRepo.Exists(ctx, tx, event.ID)
		if err != nil {
			return fmt.Errorf("check payment event: %w", err)
		}
		if seen {
			return nil
		}

		payment, err := s.paymentRepo.FindByReference(ctx, tx, event.Reference, true)
		if err != nil {
			return notFound(err, "payment")
		}

		if err := s.complete(ctx, tx, payment, now); err != nil {
			return err
		}

		if err := s.eventRepo.MarkProcessed(ctx, tx, event.ID, event.Type); err != nil {
			return fmt.Errorf("mark payment event processed: %w", err)
		}
		return nil
	})
}

// complete settles a pending payment. Once nothing is pending the subscription is paid,
// and a self-service subscription still waiting on its first payment becomes active.
func (s *paymentServiceImpl) complete(ctx context.Context, tx *gorm.DB, payment *model.PaymentRecord, now time.Time) error {
	if payment.Status == model.PaymentRecordCompleted {
		return nil
	}

	if err := s.paymentRepo.MarkCompleted(ctx, tx, payment.ID, now); err != nil {
		return fmt.Errorf("mark payment completed: %w", err)
	}
	payment.Status = model.PaymentRecordCompleted
	payment.CompletedAt = &now

	sub, err := s.subRepo.FindByID(ctx, tx, payment.SubscriptionID, true)
	if err != nil {
		return notFound(err, "subscription")
	}

	pending, err := s.paymentRepo.CountPending(ctx, tx, sub.ID)
	if err != nil {
		return fmt.Errorf("count pending payments: %w", err)
	}
	if pending > 0 || sub.PaymentStatus == model.PaymentPaid {
		return nil
	}

	activate := sub.Status == model.SubscriptionPending && sub.EndDate.After(now)
	if err := s.subRepo.MarkPaid(ctx, tx, sub.ID, activate); err != nil {
		return fmt.Errorf("mark subscription paid: %w", err)
	}

	if activate {
		metrics.SubscriptionEventsTotal.WithLabelValues("activated").Inc()
	}
	log.Info().
		Uint("subscription_id", sub.ID).
		Uint("payment_id", payment.ID).
		Bool("activated", activate).
		Msg("subscription paid")

	return nil
}
