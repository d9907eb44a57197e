package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	Email     string `gorm:"size:191;uniqueIndex;not null"`
	RoleID    Role   `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type VendorType struct {
	ID           uint         `gorm:"primaryKey"`
	Name         string       `gorm:"size:64;uniqueIndex;not null"`
	BillingCycle BillingCycle `gorm:"size:16;not null"` // monthly, biweekly
}

// VendorTypeAffiliation records which vendor types a vendor sells under.
type VendorTypeAffiliation struct {
	VendorID     uint `gorm:"primaryKey"`
	VendorTypeID uint `gorm:"primaryKey"`
	CreatedAt    time.Time
}

type Package struct {
	ID            uint            `gorm:"primaryKey"`
	Name          string          `gorm:"size:128;not null"`
	VendorTypeID  uint            `gorm:"index;not null"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null"` // per month
	BiweeklyPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"` // per 14 days, biweekly vendor types only
	MaxProducts   int             `gorm:"not null"`
	IsActive      bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Subscription struct {
	ID            uint               `gorm:"primaryKey"`
	VendorID      uint               `gorm:"index;not null"`
	PackageID     uint               `gorm:"index;not null"`
	VendorTypeID  uint               `gorm:"not null"`
	StartDate     time.Time          `gorm:"not null"`
	EndDate       time.Time          `gorm:"index;not null"`
	Status        SubscriptionStatus `gorm:"size:16;index;not null"`
	PaymentStatus PaymentStatus      `gorm:"size:16;not null"`
	SlotCount     int                `gorm:"not null"`
	AmountPaid    decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	AutoRenew     bool               `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PaymentRecord struct {
	ID             uint                `gorm:"primaryKey"`
	Reference      string              `gorm:"size:64;uniqueIndex;not null"`
	SubscriptionID uint                `gorm:"index;not null"`
	VendorID       uint                `gorm:"index;not null"`
	Kind           PaymentKind         `gorm:"size:32;not null"`
	Amount         decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	Status         PaymentRecordStatus `gorm:"size:16;index;not null"` // pending, completed
	ProviderOrder  *string             `gorm:"size:64;uniqueIndex"`     // paypal order id once checkout starts
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

type Product struct {
	ID          uint            `gorm:"primaryKey"`
	VendorID    uint            `gorm:"index;not null"`
	Name        string          `gorm:"size:255;not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// PaymentEvent marks a payment callback as handled so redeliveries are ignored.
type PaymentEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
