package handler

import (
	"marketplace-api/internal/dto"
	"marketplace-api/internal/model"
)

func toSubscriptionResponse(s *model.Subscription) *dto.SubscriptionResponse {
	if s == nil {
		return nil
	}
	return &dto.SubscriptionResponse{
		ID:            s.ID,
		VendorID:      s.VendorID,
		PackageID:     s.PackageID,
		VendorTypeID:  s.VendorTypeID,
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		SlotCount:     s.SlotCount,
		AmountPaid:    s.AmountPaid,
		AutoRenew:     s.AutoRenew,
	}
}

func toPaymentResponse(p *model.PaymentRecord) *dto.PaymentResponse {
	if p == nil {
		return nil
	}
	return &dto.PaymentResponse{
		ID:             p.ID,
		Reference:      p.Reference,
		SubscriptionID: p.SubscriptionID,
		Kind:           string(p.Kind),
		Amount:         p.Amount,
		Status:         string(p.Status),
		CompletedAt:    p.CompletedAt,
		CreatedAt:      p.CreatedAt,
	}
}

func toProductResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:          p.ID,
		VendorID:    p.VendorID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		CreatedAt:   p.CreatedAt,
	}
}

func toPackageResponse(p *model.Package) *dto.PackageResponse {
	return &dto.PackageResponse{
		ID:            p.ID,
		Name:          p.Name,
		VendorTypeID:  p.VendorTypeID,
		Price:         p.Price,
		BiweeklyPrice: p.BiweeklyPrice,
		MaxProducts:   p.MaxProducts,
	}
}

func replacedID(s *model.Subscription) *uint {
	if s == nil {
		return nil
	}
	id := s.ID
	return &id
}
