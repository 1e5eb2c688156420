package main

import (
	"time"

	"github.com/spf13/cobra"

	"barriada/internal/auth"
	"barriada/internal/services"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token for the HTTP API",
		Long: `Mint a JWT carrying the admin role, signed with JWT_SECRET and valid for
ADMIN_TOKEN_TTL (or --ttl). Send it as "Authorization: Bearer <token>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.AdminTokenTTL
			}
			tokens, err := auth.NewTokens(cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, expires, err := tokens.IssueAdmin(subject)
			if err != nil {
				return err
			}
			component("token").Info().Str("subject", subject).Time("expires_at", expires).Msg("Admin token issued")
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"token":      token,
				"expires_at": expires.Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().String("subject", "admin", "Who the token is for")
	cmd.Flags().Duration("ttl", 0, "Token lifetime (default: ADMIN_TOKEN_TTL)")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and check the store",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string, ledger *services.LedgerService) error {
			// Opening the store already migrated it.
			if err := ledger.Ping(cmd.Context()); err != nil {
				return err
			}
			component("migrate").Info().Msg("Schema is up to date")
			return nil
		}),
	}
}
