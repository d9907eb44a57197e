package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"marketplace-api/internal/entitlement"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRole     = errors.New("user is not a vendor")
	ErrAlreadyActive   = errors.New("vendor already has an active subscription")
	ErrPackageMismatch = errors.New("cannot change package while active")
	ErrForbidden       = errors.New("forbidden")
	ErrPaymentSettled  = errors.New("payment already completed")
	ErrNotCaptured     = errors.New("payment was not captured")
	ErrInvalidRequest  = entitlement.ErrInvalidRequest
)

// notFound converts gorm's missing-row error into ErrNotFound naming the entity.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
