package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"marketplace-api/internal/client"
	"marketplace-api/internal/repository"
	"marketplace-api/internal/server"
	"marketplace-api/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close(db) }()

	if err := client.Migrate(db); err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.Payments.WebhookSecret == "" {
		log.Warn().Msg("PAYMENTS_WEBHOOK_SECRET not set, payment webhook disabled")
	}

	userRepo := repository.NewUserRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	vendorTypeRepo := repository.NewVendorTypeRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	productRepo := repository.NewProductRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)

	services := server.Services{
		Subscriptions: service.NewSubscriptionService(db, userRepo, packageRepo, vendorTypeRepo, subRepo, paymentRepo),
		Entitlements:  service.NewEntitlementService(userRepo, subRepo, productRepo),
		Products:      service.NewProductService(db, userRepo, subRepo, productRepo),
		Payments:      service.NewPaymentService(db, subRepo, paymentRepo, eventRepo),
	}
	if cfg.Paypal.Enabled() {
		paypalClient := client.NewPaypalClient(cfg.Paypal)
		services.Checkout = service.NewCheckoutService(paypalClient, cfg.BaseURL, paymentRepo, services.Payments)
	} else {
		log.Warn().Msg("PAYPAL_CLIENT_ID not set, paypal checkout disabled")
	}

	srv := server.NewServer(cfg.Auth, cfg.Payments, services)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Str("version", Version).Msg("starting HTTP server")
		if err := srv.Start(cfg.HTTP.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("signal received, starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
