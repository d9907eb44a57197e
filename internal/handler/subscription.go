package handler

import (
	"net/http"
	"strconv"

	"marketplace-api/internal/dto"
	"marketplace-api/internal/service"

	"github.com/labstack/echo/v4"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

func (h *SubscriptionHandler) ListPackages(c echo.Context) error {
	var vendorTypeID uint
	if raw := c.QueryParam("vendor_type_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid vendor_type_id")
		}
		vendorTypeID = uint(v)
	}

	packages, err := h.subscriptionService.ListPackages(c.Request().Context(), vendorTypeID)
	if err != nil {
		return httpError(err)
	}

	resp := make([]*dto.PackageResponse, 0, len(packages))
	for _, p := range packages {
		resp = append(resp, toPackageResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) GetCurrent(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	sub, err := h.subscriptionService.GetCurrent(c.Request().Context(), actor.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toSubscriptionResponse(sub))
}

// Subscribe starts a self-service subscription. It stays pending until its payment completes.
func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req dto.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	req.DeferPayment = false

	return h.subscribe(c, actor.UserID, req, service.FlowSelfService)
}

// AssignToVendor lets an admin grant a subscription that is active immediately.
func (h *SubscriptionHandler) AssignToVendor(c echo.Context) error {
	vendorID, err := uintParam(c, "vendorID")
	if err != nil {
		return err
	}

	var req dto.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	return h.subscribe(c, vendorID, req, service.FlowAdmin)
}

func (h *SubscriptionHandler) subscribe(c echo.Context, vendorID uint, req dto.SubscribeRequest, flow service.Flow) error {
	if req.PackageID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "package_id is required")
	}

	result, err := h.subscriptionService.Subscribe(c.Request().Context(), service.SubscribeParams{
		VendorID:     vendorID,
		PackageID:    req.PackageID,
		VendorTypeID: req.VendorTypeID,
		Months:       req.Months,
		Days:         req.Days,
		Slots:        req.Slots,
		AutoRenew:    req.AutoRenew,
		Force:        req.Force,
		Flow:         flow,
		DeferPayment: req.DeferPayment,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, dto.SubscribeResponse{
		Subscription: toSubscriptionResponse(result.Subscription),
		Payment:      toPaymentResponse(result.Payment),
		ReplacedID:   replacedID(result.Replaced),
	})
}

func (h *SubscriptionHandler) Upgrade(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req dto.UpgradeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	return h.upgrade(c, actor.UserID, req, service.FlowSelfService)
}

func (h *SubscriptionHandler) UpgradeForVendor(c echo.Context) error {
	vendorID, err := uintParam(c, "vendorID")
	if err != nil {
		return err
	}

	var req dto.UpgradeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	return h.upgrade(c, vendorID, req, service.FlowAdmin)
}

func (h *SubscriptionHandler) upgrade(c echo.Context, vendorID uint, req dto.UpgradeRequest, flow service.Flow) error {
	result, err := h.subscriptionService.Upgrade(c.Request().Context(), service.UpgradeParams{
		VendorID:  vendorID,
		PackageID: req.PackageID,
		AddSlots:  req.AddSlots,
		AddDays:   req.AddDays,
		AddMonths: req.AddMonths,
		Force:     req.Force,
		Flow:      flow,
	})
	if err != nil {
		return httpError(err)
	}

	resp := dto.UpgradeResponse{
		NewSlotCount: result.Subscription.SlotCount,
		NewEndDate:   result.Subscription.EndDate,
		Charge:       result.Payment.Amount,
		Subscription: toSubscriptionResponse(result.Subscription),
		Payment:      toPaymentResponse(result.Payment),
		ReplacedID:   replacedID(result.Replaced),
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	sub, err := h.subscriptionService.Cancel(c.Request().Context(), actor.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toSubscriptionResponse(sub))
}

func (h *SubscriptionHandler) ListPayments(c echo.Context) error {
	subscriptionID, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	payments, err := h.subscriptionService.ListPayments(c.Request().Context(), subscriptionID)
	if err != nil {
		return httpError(err)
	}

	resp := make([]*dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}
