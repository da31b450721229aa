package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"geomarket/internal/db"
	"geomarket/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the MySQL schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DB.Driver != "mysql" {
			return fmt.Errorf("migrate requires db.driver=mysql, got %q", cfg.DB.Driver)
		}
		ctx := cmd.Context()
		gdb, err := db.Open(ctx, db.Config{
			DSN:             cfg.DB.DSN,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(gdb)
		if err := repository.Migrate(gdb.WithContext(ctx)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
