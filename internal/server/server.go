package server

import (
	"context"
	"net/http"

	"marketplace-api/internal/config"
	"marketplace-api/internal/handler"
	authmw "marketplace-api/internal/middleware"
	"marketplace-api/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Subscriptions service.SubscriptionService
	Entitlements  service.EntitlementService
	Products      service.ProductService
	Payments      service.PaymentService
	Checkout      service.CheckoutService // nil when PayPal is not configured
}

type Server struct {
	echo                *echo.Echo
	auth                config.Auth
	payments            config.Payments
	subscriptionHandler *handler.SubscriptionHandler
	productHandler      *handler.ProductHandler
	paymentHandler      *handler.PaymentHandler
	checkoutHandler     *handler.CheckoutHandler
}

func NewServer(auth config.Auth, payments config.Payments, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:                e,
		auth:                auth,
		payments:            payments,
		subscriptionHandler: handler.NewSubscriptionHandler(services.Subscriptions),
		productHandler:      handler.NewProductHandler(services.Products, services.Entitlements),
		paymentHandler:      handler.NewPaymentHandler(services.Payments),
	}

	if services.Checkout != nil {
		s.checkoutHandler = handler.NewCheckoutHandler(services.Checkout)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- payment provider callbacks --------
	api.POST("/payments/webhook", s.paymentHandler.Webhook, authmw.WebhookSecret(s.payments.WebhookSecret))
	if s.checkoutHandler != nil {
		api.GET("/payments/paypal/return", s.checkoutHandler.Return)
	}

	authed := api.Group("", authmw.AuthMiddleware(s.auth.JWTSecret))
	authed.GET("/packages", s.subscriptionHandler.ListPackages)

	// -------- vendor --------
	vendor := authed.Group("/vendor", authmw.RequireVendor())
	vendor.GET("/subscription", s.subscriptionHandler.GetCurrent)
	vendor.GET("/entitlement", s.productHandler.Entitlement)
	vendor.POST("/subscriptions", s.subscriptionHandler.Subscribe)
	vendor.POST("/subscriptions/upgrade", s.subscriptionHandler.Upgrade)
	vendor.POST("/subscriptions/cancel", s.subscriptionHandler.Cancel)
	vendor.GET("/products", s.productHandler.List)
	vendor.POST("/products", s.productHandler.Create)
	vendor.DELETE("/products/:id", s.productHandler.Delete)
	if s.checkoutHandler != nil {
		vendor.POST("/payments/:id/checkout", s.checkoutHandler.Start)
	}

	// -------- admin --------
	admin := authed.Group("/admin", authmw.RequireAdmin())
	admin.POST("/vendors/:vendorID/subscriptions", s.subscriptionHandler.AssignToVendor)
	admin.POST("/vendors/:vendorID/subscriptions/upgrade", s.subscriptionHandler.UpgradeForVendor)
	admin.GET("/vendors/:vendorID/entitlement", s.productHandler.EntitlementForVendor)
	admin.GET("/subscriptions/:id/payments", s.subscriptionHandler.ListPayments)
	admin.POST("/payments/:id/complete", s.paymentHandler.Complete)
	admin.DELETE("/products/:id", s.productHandler.Delete)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
