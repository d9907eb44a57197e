package service

import (
	"context"
	"fmt"
	"marketplace-api/internal/client"
	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"

	"github.com/rs/zerolog/log"
)

const CheckoutReturnPath = "/api/payments/paypal/return"

type Checkout struct {
	PaymentID  uint   `json:"payment_id"`
	OrderID    string `json:"order_id,omitempty"`
	ApproveURL string `json:"approve_url,omitempty"`
	Settled    bool   `json:"settled"`
}

// CheckoutService collects pending payment records through PayPal.
type CheckoutService interface {
	Start(ctx context.Context, actor model.Actor, paymentID uint) (*Checkout, error)
	Capture(ctx context.Context, orderID string) (*model.PaymentRecord, error)
}

type checkoutServiceImpl struct {
	paypalClient   client.PaypalClient
	serviceBaseUrl string
	paymentRepo    repository.PaymentRepository
	payments       PaymentService
}

func NewCheckoutService(
	paypalClient client.PaypalClient,
	serviceBaseUrl string,
	paymentRepo repository.PaymentRepository,
	payments PaymentService,
) CheckoutService {
	return &checkoutServiceImpl{
		paypalClient:   paypalClient,
		serviceBaseUrl: serviceBaseUrl,
		paymentRepo:    paymentRepo,
		payments:       payments,
	}
}

func (s *checkoutServiceImpl) Start(ctx context.Context, actor model.Actor, paymentID uint) (*Checkout, error) {
	payment, err := s.paymentRepo.FindByID(ctx, nil, paymentID, false)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	if !actor.CanActForVendor(payment.VendorID) {
		return nil, ErrForbidden
	}
	if payment.Status == model.PaymentRecordCompleted {
		return nil, ErrPaymentSettled
	}

	// nothing to collect
	if !payment.Amount.IsPositive() {
		if _, err := s.payments.Complete(ctx, payment.ID); err != nil {
			return nil, err
		}
		return &Checkout{PaymentID: payment.ID, Settled: true}, nil
	}

	order, err := s.paypalClient.CreateOrder(ctx, client.CreateOrderParams{
		Reference:   payment.Reference,
		Description: fmt.Sprintf("subscription %d %s", payment.SubscriptionID, payment.Kind),
		Amount:      payment.Amount,
		ReturnURL:   s.serviceBaseUrl + CheckoutReturnPath,
		CancelURL:   s.serviceBaseUrl, // cancelling on paypal returns the vendor to our homepage
	})
	if err != nil {
		return nil, fmt.Errorf("paypal api create order: %w", err)
	}

	if err := s.paymentRepo.SetProviderOrder(ctx, payment.ID, order.OrderID); err != nil {
		return nil, notFound(err, "pending payment")
	}

	log.Info().
		Uint("payment_id", payment.ID).
		Str("order_id", order.OrderID).
		Str("amount", payment.Amount.StringFixed(2)).
		Msg("checkout started")

	return &Checkout{
		PaymentID:  payment.ID,
		OrderID:    order.OrderID,
		ApproveURL: order.ApproveURL,
	}, nil
}

// Capture runs when PayPal sends the buyer back. Returning twice for the same order is harmless.
func (s *checkoutServiceImpl) Capture(ctx context.Context, orderID string) (*model.PaymentRecord, error) {
	if orderID == "" {
		return nil, fmt.Errorf("missing order id: %w", ErrInvalidRequest)
	}

	payment, err := s.paymentRepo.FindByProviderOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	if payment.Status == model.PaymentRecordCompleted {
		return payment, nil
	}

	resp, err := s.paypalClient.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("paypal api capture order: %w", err)
	}
	if resp.Status != client.PaypalOrderCompleted {
		return nil, fmt.Errorf("order %s status %s: %w", orderID, resp.Status, ErrNotCaptured)
	}
	if resp.Reference != "" && resp.Reference != payment.Reference {
		return nil, fmt.Errorf("order %s belongs to payment %s: %w", orderID, resp.Reference, ErrInvalidRequest)
	}

	completed, err := s.payments.Complete(ctx, payment.ID)
	if err != nil {
		return nil, err
	}

	log.Info().Uint("payment_id", payment.ID).Str("order_id", orderID).Msg("checkout captured")
	return completed, nil
}
