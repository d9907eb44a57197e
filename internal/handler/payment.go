package handler

import (
	"net/http"

	"marketplace-api/internal/dto"
	"marketplace-api/internal/service"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Complete marks a payment record as settled on behalf of an admin.
func (h *PaymentHandler) Complete(c echo.Context) error {
	paymentID, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.paymentService.Complete(c.Request().Context(), paymentID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) Webhook(c echo.Context) error {
	var event dto.PaymentWebhookEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}

	if err := h.paymentService.HandleWebhook(c.Request().Context(), event); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}
