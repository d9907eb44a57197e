package handler

import (
	"net/http"

	"marketplace-api/internal/service"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// Start opens a PayPal order for one of the caller's pending payment records.
func (h *CheckoutHandler) Start(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	paymentID, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	checkout, err := h.checkoutService.Start(c.Request().Context(), actor, paymentID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, checkout)
}

// Return is where PayPal redirects the buyer after approval; token is the order id.
func (h *CheckoutHandler) Return(c echo.Context) error {
	payment, err := h.checkoutService.Capture(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}
