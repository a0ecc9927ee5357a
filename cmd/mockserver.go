package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"batchup/internal/logger"
	"batchup/internal/mockexec"
)

var (
	mockPort  int
	mockRoot  string
	mockDelay int
)

var mockServerCmd = &cobra.Command{
	Use:    "mock-server",
	Short:  "Run a local mock executor for development",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		srv := mockexec.New(mockRoot, time.Duration(mockDelay)*time.Millisecond)
		srv.Start(mockPort)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	mockServerCmd.Flags().IntVar(&mockPort, "port", 8750, "Port to listen on")
	mockServerCmd.Flags().StringVar(&mockRoot, "root", ".", "Folder root served by the mock")
	mockServerCmd.Flags().IntVar(&mockDelay, "delay", 50, "Delay between event frames in milliseconds")
	rootCmd.AddCommand(mockServerCmd)
}
