package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"batchup/internal/job"
	"batchup/internal/logger"
	"batchup/internal/model"
	"batchup/internal/remote"
	"batchup/internal/repository"
	"batchup/internal/store"
	"batchup/internal/view"
)

var (
	scanExclude []string
	scanSort    string
	scanDesc    bool
	scanFilter  string
	scanSearch  string
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder]",
	Short: "Scan a remote folder and review its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		st := newStore()
		client := newClient()

		done := make(chan model.JobSummary, 1)
		ctrl := job.NewScan(st, client, func(s model.JobSummary) { done <- s })

		if err := ctrl.Start(cmd.Context(), remote.ScanParams{
			Folder:  args[0],
			Exclude: scanExclude,
		}); err != nil {
			return err
		}

		summary := <-done
		saveHistory(summary)

		applyProjectionFlags(st, scanSort, scanDesc, scanFilter, scanSearch)
		view.RenderRows(os.Stdout, st.Snapshot())
		view.RenderSummary(os.Stdout, summary)

		if summary.Outcome != model.OutcomeCompleted {
			return fmt.Errorf("scan ended with %s: %s", summary.Outcome, summary.ErrMsg)
		}
		return nil
	},
}

// applyProjectionFlags maps the shared --sort/--desc/--filter/--search flags
// onto the store's projection state before rendering.
func applyProjectionFlags(st *store.Store, sortKey string, desc bool, filter, search string) {
	if sortKey != "" {
		st.SetSortDirection(store.SortKey(sortKey), !desc)
	}
	if filter != "" {
		st.SetFilter(model.RowStatus(filter))
	}
	if search != "" {
		st.SetSearch(search)
	}
}

func saveHistory(s model.JobSummary) {
	repo := repository.NewHistoryRepository()
	if err := repo.Save(s); err != nil {
		logger.Log.Warn("failed to save history",
			zap.Error(err))
	}
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "Glob patterns to skip")
	scanCmd.Flags().StringVar(&scanSort, "sort", "", "Sort key (name|folder|size|mod_time|status|progress)")
	scanCmd.Flags().BoolVar(&scanDesc, "desc", false, "Sort descending")
	scanCmd.Flags().StringVar(&scanFilter, "filter", "", "Show only rows with this status")
	scanCmd.Flags().StringVar(&scanSearch, "search", "", "Substring match on name and folder")
	rootCmd.AddCommand(scanCmd)
}
