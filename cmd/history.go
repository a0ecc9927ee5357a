package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"batchup/internal/repository"
	"batchup/internal/view"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent job runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := repository.NewHistoryRepository()
		records, err := repo.GetRecent(historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}

		view.RenderHistory(os.Stdout, records)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
