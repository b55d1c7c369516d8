package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortlink/config"
	"shortlink/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("migrations only apply to the postgres driver (got %q)", cfg.Database.Driver)
		}
		if err := database.Migrate(cfg.MigrateURL()); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
