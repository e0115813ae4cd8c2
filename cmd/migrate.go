package cmd

import (
	"fmt"

	"github.com/fmuoria/nexushire/internal/storage"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := storage.MigrateUp(cfg.Database.URL); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := storage.MigrateDown(cfg.Database.URL); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "last migration rolled back")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v, dirty, err := storage.MigrationVersion(cfg.Database.URL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", v, dirty)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
