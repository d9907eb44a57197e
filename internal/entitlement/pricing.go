package entitlement

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-api/internal/model"
)

var ErrInvalidRequest = errors.New("invalid subscription request")

// Rates are the package price tiers together with the vendor type's billing cycle.
type Rates struct {
	Monthly  decimal.Decimal
	Biweekly decimal.Decimal
	Cycle    model.BillingCycle
}

func RatesFor(pkg *model.Package, vt *model.VendorType) Rates {
	return Rates{Monthly: pkg.Price, Biweekly: pkg.BiweeklyPrice, Cycle: vt.BillingCycle}
}

// unit returns the price of one billing unit and its length in days.
func (r Rates) unit() (decimal.Decimal, int64) {
	if r.Cycle == model.BillingBiweekly {
		return r.Biweekly, int64(model.BillingBiweekly.Days())
	}
	return r.Monthly, int64(model.BillingMonthly.Days())
}

// Duration is a term length in either days or months, never both.
type Duration struct {
	Days   int
	Months int
}

func (d Duration) IsZero() bool {
	return d.Days == 0 && d.Months == 0
}

func (d Duration) validate() error {
	if d.Days < 0 || d.Months < 0 {
		return ErrInvalidRequest
	}
	if d.Days > 0 && d.Months > 0 {
		return ErrInvalidRequest
	}
	return nil
}

func (d Duration) addTo(t time.Time) time.Time {
	if d.Months > 0 {
		return t.AddDate(0, d.Months, 0)
	}
	return t.AddDate(0, 0, d.Days)
}

// charge prices the duration for the given number of slots.
func (d Duration) charge(r Rates, slots int) decimal.Decimal {
	n := decimal.NewFromInt(int64(slots))
	if d.Months > 0 {
		return r.Monthly.Mul(n).Mul(decimal.NewFromInt(int64(d.Months)))
	}
	// day extensions are billed in two-week units whatever the cycle; the cycle picks the tier
	price, _ := r.unit()
	return price.Mul(n).Mul(decimal.NewFromInt(int64(d.Days))).Div(decimal.NewFromInt(extensionDays))
}

// extensionDays is the length of the unit day-based extensions are priced in.
const extensionDays = 14

type UpgradeKind string

const (
	UpgradeSlots    UpgradeKind = "slots"
	UpgradeDuration UpgradeKind = "duration"
	UpgradeBoth     UpgradeKind = "both"
)

// PaymentKind is the ledger kind recorded for this upgrade.
func (k UpgradeKind) PaymentKind() model.PaymentKind {
	switch k {
	case UpgradeSlots:
		return model.PaymentKindUpgrade
	case UpgradeDuration:
		return model.PaymentKindExtension
	}
	return model.PaymentKindUpgradeExtension
}

type Term struct {
	Slots   int
	EndDate time.Time
}

type UpgradeRequest struct {
	AddSlots int
	Extend   Duration
}

type Quote struct {
	Kind           UpgradeKind     `json:"kind"`
	NewSlots       int             `json:"new_slot_count"`
	NewEndDate     time.Time       `json:"new_end_date"`
	RemainingDays  int64           `json:"remaining_days"`
	SlotCharge     decimal.Decimal `json:"slot_charge"`
	DurationCharge decimal.Decimal `json:"duration_charge"`
	Charge         decimal.Decimal `json:"charge"`
}

// RemainingDays is the whole days left on a term, never less than 1.
func RemainingDays(end, now time.Time) int64 {
	days := int64(math.Ceil(end.Sub(now).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// QuoteUpgrade prices adding slots, extending the term, or both on an existing subscription.
// When both change, the duration component is charged over the post-upgrade slot total.
func QuoteUpgrade(current Term, req UpgradeRequest, rates Rates, now time.Time) (Quote, error) {
	if req.AddSlots < 0 {
		return Quote{}, ErrInvalidRequest
	}
	if err := req.Extend.validate(); err != nil {
		return Quote{}, err
	}

	var kind UpgradeKind
	switch {
	case req.AddSlots > 0 && req.Extend.IsZero():
		kind = UpgradeSlots
	case req.AddSlots == 0 && !req.Extend.IsZero():
		kind = UpgradeDuration
	case req.AddSlots > 0:
		kind = UpgradeBoth
	default:
		return Quote{}, ErrInvalidRequest
	}

	q := Quote{
		Kind:           kind,
		NewSlots:       current.Slots + req.AddSlots,
		NewEndDate:     current.EndDate,
		SlotCharge:     decimal.Zero,
		DurationCharge: decimal.Zero,
	}

	slotCharge, durationCharge := decimal.Zero, decimal.Zero

	if req.AddSlots > 0 {
		price, length := rates.unit()
		q.RemainingDays = RemainingDays(current.EndDate, now)
		slotCharge = price.
			Mul(decimal.NewFromInt(q.RemainingDays)).
			Mul(decimal.NewFromInt(int64(req.AddSlots))).
			Div(decimal.NewFromInt(length))
	}

	if !req.Extend.IsZero() {
		// both: new slot total; duration only: NewSlots == current.Slots
		durationCharge = req.Extend.charge(rates, q.NewSlots)
		q.NewEndDate = req.Extend.addTo(current.EndDate)
	}

	// components are rounded for display only; the charge rounds the exact sum once
	q.SlotCharge = slotCharge.Round(2)
	q.DurationCharge = durationCharge.Round(2)
	q.Charge = slotCharge.Add(durationCharge).Round(2)
	return q, nil
}

type NewQuote struct {
	Slots     int             `json:"slot_count"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	Charge    decimal.Decimal `json:"charge"`
}

// QuoteNew prices a fresh subscription: unit price × slots × duration in billing units.
func QuoteNew(slots int, term Duration, rates Rates, start time.Time) (NewQuote, error) {
	if slots <= 0 {
		return NewQuote{}, ErrInvalidRequest
	}
	if err := term.validate(); err != nil {
		return NewQuote{}, err
	}
	if term.IsZero() {
		return NewQuote{}, ErrInvalidRequest
	}

	return NewQuote{
		Slots:     slots,
		StartDate: start,
		EndDate:   term.addTo(start),
		Charge:    term.charge(rates, slots).Round(2),
	}, nil
}
