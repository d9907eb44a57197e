package main

import (
	"marketplace-api/internal/client"
	"marketplace-api/internal/repository"
	"marketplace-api/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var seed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close(db) }()

		if err := client.Migrate(db); err != nil {
			return err
		}
		log.Info().Msg("schema migrated")

		if !seed {
			return nil
		}

		ctx := cmd.Context()
		if err := repository.NewVendorTypeRepository(db).Seed(ctx); err != nil {
			return err
		}
		if err := repository.NewPackageRepository(db).Seed(ctx); err != nil {
			return err
		}
		log.Info().Msg("vendor types and packages seeded")
		return nil
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Mark active subscriptions past their end date as expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close(db) }()

		subscriptions := service.NewSubscriptionService(db,
			repository.NewUserRepository(db),
			repository.NewPackageRepository(db),
			repository.NewVendorTypeRepository(db),
			repository.NewSubscriptionRepository(db),
			repository.NewPaymentRepository(db),
		)

		n, err := subscriptions.ExpireLapsed(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int64("expired", n).Msg("lapsed subscriptions expired")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&seed, "seed", false, "insert the default vendor types and packages")
}
