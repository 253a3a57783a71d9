package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"assura/internal/platform/config"
	"assura/internal/platform/database"
	"assura/migrations"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema to a PostgreSQL database",
		Long: `migrate runs every embedded *.up.sql file in order. The statements are
idempotent, so running it against an up-to-date database changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				return errors.New("database URL required: set DATABASE_URL or pass --database-url")
			}
			ctx := cmd.Context()
			pool, err := database.New(ctx, database.Config{URL: databaseURL})
			if err != nil {
				return err
			}
			defer pool.Close() //nolint:errcheck // best-effort on exit

			if err := migrations.Apply(ctx, pool.DB()); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return err
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	return cmd
}

type configReport struct {
	Environment    string   `json:"environment"`
	Storage        string   `json:"storage"`
	Addr           string   `json:"addr"`
	TermsVersion   string   `json:"terms_version"`
	TrustedProxies []string `json:"trusted_proxies"`
	SeedDemo       bool     `json:"seed_demo_data"`
}

// newConfigCmd validates the configuration the server would load from
// CONFIG_FILE and the environment. Secrets are never printed.
func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect server configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate the server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			storage := "memory"
			if cfg.Database.URL != "" {
				storage = "postgres"
			}
			report := configReport{
				Environment:    cfg.Environment,
				Storage:        storage,
				Addr:           cfg.Server.Addr,
				TermsVersion:   cfg.Consent.TermsVersion,
				TrustedProxies: cfg.Server.TrustedProxies,
				SeedDemo:       cfg.SeedDemo,
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"configuration ok\n  environment: %s\n  storage:     %s\n  addr:        %s\n  terms:       %s\n",
				report.Environment, report.Storage, report.Addr, report.TermsVersion)
			return err
		},
	})
	return cmd
}
