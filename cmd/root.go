package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"batchup/internal/config"
	"batchup/internal/db"
	"batchup/internal/logger"
	"batchup/internal/remote"
	"batchup/internal/store"
)

var (
	cfg   *config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "batchup",
	Short: "Batch scan, upload, and verified delete through a remote executor",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// Only commands that record or read run history touch the db.
		dbCmds := map[string]bool{
			"scan": true, "upload": true,
			"delete": true, "history": true, "watch": true,
		}
		if dbCmds[cmd.Name()] {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newStore() *store.Store {
	return store.New(time.Duration(cfg.NotifyTickMS) * time.Millisecond)
}

func newClient() *remote.Client {
	return remote.New(cfg.ExecutorURL, time.Duration(cfg.RequestTimeout)*time.Second)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
}
