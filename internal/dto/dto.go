package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscribeRequest struct {
	PackageID    uint `json:"package_id"`
	VendorTypeID uint `json:"vendor_type_id"`
	Months       int  `json:"months"`
	Days         int  `json:"days"`
	Slots        int  `json:"slots"`
	AutoRenew    bool `json:"auto_renew"`
	Force        bool `json:"force"`
	// admin only: grant the subscription now, collect payment after the free first month
	DeferPayment bool `json:"defer_payment"`
}

type UpgradeRequest struct {
	PackageID uint `json:"package_id"`
	AddSlots  int  `json:"add_slots"`
	AddDays   int  `json:"add_days"`
	AddMonths int  `json:"add_months"`
	Force     bool `json:"force"`
}

type SubscriptionResponse struct {
	ID            uint            `json:"id"`
	VendorID      uint            `json:"vendor_id"`
	PackageID     uint            `json:"package_id"`
	VendorTypeID  uint            `json:"vendor_type_id"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	SlotCount     int             `json:"slot_count"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	AutoRenew     bool            `json:"auto_renew"`
}

type PaymentResponse struct {
	ID             uint            `json:"id"`
	Reference      string          `json:"reference"`
	SubscriptionID uint            `json:"subscription_id"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type SubscribeResponse struct {
	Subscription *SubscriptionResponse `json:"subscription"`
	Payment      *PaymentResponse      `json:"payment"`
	ReplacedID   *uint                 `json:"replaced_subscription_id,omitempty"`
}

type UpgradeResponse struct {
	NewSlotCount int                   `json:"new_slot_count"`
	NewEndDate   time.Time             `json:"new_end_date"`
	Charge       decimal.Decimal       `json:"charge"`
	Subscription *SubscriptionResponse `json:"subscription"`
	Payment      *PaymentResponse      `json:"payment"`
	ReplacedID   *uint                 `json:"replaced_subscription_id,omitempty"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type ProductResponse struct {
	ID          uint            `json:"id"`
	VendorID    uint            `json:"vendor_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

type PackageResponse struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	VendorTypeID  uint            `json:"vendor_type_id"`
	Price         decimal.Decimal `json:"price"`
	BiweeklyPrice decimal.Decimal `json:"biweekly_price"`
	MaxProducts   int             `json:"max_products"`
}

// PaymentWebhookEvent is posted by the payment provider once a charge settles.
type PaymentWebhookEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // payment.completed
	Reference string `json:"reference"`
}

const PaymentCompletedEvent = "payment.completed"
