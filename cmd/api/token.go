package main

import (
	"errors"
	"fmt"
	"time"

	"marketplace-api/internal/client"
	"marketplace-api/internal/middleware"
	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"

	"github.com/spf13/cobra"
)

var (
	tokenUserID uint
	tokenTTL    time.Duration
)

// tokenCmd issues a bearer token for an existing user, for operators and local testing.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close(db) }()

		if cfg.Auth.JWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is required")
		}

		user, err := repository.NewUserRepository(db).FindByID(cmd.Context(), nil, tokenUserID, false)
		if err != nil {
			return fmt.Errorf("find user %d: %w", tokenUserID, err)
		}

		token, err := middleware.IssueToken(cfg.Auth.JWTSecret, model.Actor{UserID: user.ID, Role: user.RoleID}, tokenTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().UintVar(&tokenUserID, "user", 0, "user id")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
