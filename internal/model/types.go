package model

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
)

type PaymentKind string

const (
	PaymentKindInitial          PaymentKind = "initial"
	PaymentKindUpgrade          PaymentKind = "upgrade"
	PaymentKindExtension        PaymentKind = "extension"
	PaymentKindUpgradeExtension PaymentKind = "upgrade_extension"
)

type BillingCycle string

const (
	BillingMonthly  BillingCycle = "monthly"
	BillingBiweekly BillingCycle = "biweekly"
)

// Days is the length of one billing unit used for proration.
func (b BillingCycle) Days() int {
	if b == BillingBiweekly {
		return 14
	}
	return 30
}
