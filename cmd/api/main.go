package main

import (
	"fmt"
	"os"

	"marketplace-api/internal/client"
	"marketplace-api/internal/config"
	"marketplace-api/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "marketplace-api",
	Short:   "Marketplace vendor subscription and entitlement API",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, initializes logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logging.Init(cfg.Log.Level, cfg.Log.Format)

	db, err := client.InitDBClient(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	log.Debug().
		Str("environment", cfg.Environment.Name).
		Str("driver", cfg.Database.Driver).
		Msg("database connected")

	return cfg, db, nil
}
