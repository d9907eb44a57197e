package entitlement

import (
	"errors"
	"fmt"
	"time"

	"marketplace-api/internal/model"
)

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoSubscription  Reason = "no_subscription"
	ReasonExpired         Reason = "expired"
	ReasonPaymentRequired Reason = "payment_required"
	ReasonLimitReached    Reason = "limit_reached"
)

var (
	ErrNoSubscription  = errors.New("no active subscription")
	ErrExpired         = errors.New("subscription expired")
	ErrPaymentRequired = errors.New("subscription payment required")
	ErrLimitReached    = errors.New("product limit reached")
)

// DeniedError carries the reason a vendor may not add a product.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("product creation denied: %s", e.Reason)
}

func (e *DeniedError) Unwrap() error {
	switch e.Reason {
	case ReasonNoSubscription:
		return ErrNoSubscription
	case ReasonExpired:
		return ErrExpired
	case ReasonPaymentRequired:
		return ErrPaymentRequired
	case ReasonLimitReached:
		return ErrLimitReached
	}
	return nil
}

// FreeMonths is the grace window after start during which an unpaid subscription still counts.
const FreeMonths = 1

type Decision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining,omitempty"`
	Reason    Reason `json:"reason,omitempty"`
	SlotCount int    `json:"slot_count,omitempty"`
	Used      int64  `json:"used"`
}

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// State is everything Decide needs, read fresh from the store at decision time.
type State struct {
	Active       *model.Subscription
	Lapsed       bool // a subscription existed but its end date has passed
	ProductCount int64
}

func Decide(state State, now time.Time) Decision {
	sub := state.Active
	if sub == nil {
		if state.Lapsed {
			return deny(ReasonExpired, state.ProductCount)
		}
		return deny(ReasonNoSubscription, state.ProductCount)
	}

	if !sub.EndDate.After(now) {
		return deny(ReasonExpired, state.ProductCount)
	}

	if sub.Status != model.SubscriptionActive {
		return deny(ReasonNoSubscription, state.ProductCount)
	}

	if sub.PaymentStatus != model.PaymentPaid && !now.Before(GraceEnds(sub)) {
		return deny(ReasonPaymentRequired, state.ProductCount)
	}

	if state.ProductCount >= int64(sub.SlotCount) {
		d := deny(ReasonLimitReached, state.ProductCount)
		d.SlotCount = sub.SlotCount
		return d
	}

	return Decision{
		Allowed:   true,
		Remaining: sub.SlotCount - int(state.ProductCount),
		SlotCount: sub.SlotCount,
		Used:      state.ProductCount,
	}
}

// GraceEnds is when an unpaid subscription stops allowing product creation.
func GraceEnds(sub *model.Subscription) time.Time {
	return sub.StartDate.AddDate(0, FreeMonths, 0)
}

func deny(reason Reason, used int64) Decision {
	return Decision{Allowed: false, Reason: reason, Used: used}
}
