package handler

import (
	"net/http"
	"strings"

	"marketplace-api/internal/dto"
	"marketplace-api/internal/service"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	productService     service.ProductService
	entitlementService service.EntitlementService
}

func NewProductHandler(productService service.ProductService, entitlementService service.EntitlementService) *ProductHandler {
	return &ProductHandler{
		productService:     productService,
		entitlementService: entitlementService,
	}
}

// Entitlement reports whether the caller may add another product right now.
func (h *ProductHandler) Entitlement(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	return h.entitlement(c, actor.UserID)
}

func (h *ProductHandler) EntitlementForVendor(c echo.Context) error {
	vendorID, err := uintParam(c, "vendorID")
	if err != nil {
		return err
	}
	return h.entitlement(c, vendorID)
}

func (h *ProductHandler) entitlement(c echo.Context, vendorID uint) error {
	decision, err := h.entitlementService.CanAddProduct(c.Request().Context(), vendorID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, decision)
}

func (h *ProductHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req dto.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	product, err := h.productService.Create(c.Request().Context(), actor.UserID, service.CreateProductParams{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, toProductResponse(product))
}

func (h *ProductHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	products, err := h.productService.List(c.Request().Context(), actor.UserID)
	if err != nil {
		return httpError(err)
	}

	resp := make([]*dto.ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	productID, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.productService.Delete(c.Request().Context(), actor, productID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
