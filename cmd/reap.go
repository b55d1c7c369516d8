package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortlink/config"
	"shortlink/database"
	"shortlink/reaper"
	"shortlink/storage"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Purge expired links once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		db, err := database.Connect(cfg, logger)
		if err != nil {
			return err
		}

		r := reaper.New(storage.NewLinkStore(db), cfg.Reaper.Interval, logger)
		purged := r.Sweep(cmd.Context())
		fmt.Printf("purged %d expired links\n", purged)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reapCmd)
}
