package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"batchup/internal/job"
	"batchup/internal/logger"
	"batchup/internal/model"
	"batchup/internal/remote"
	"batchup/internal/view"
)

var (
	deleteVerify bool
	deleteAll    bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete [folder]",
	Short: "Delete a folder's uploaded files from remote storage, with verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		st := newStore()
		client := newClient()
		folder := args[0]

		scanDone := make(chan model.JobSummary, 1)
		scan := job.NewScan(st, client, func(s model.JobSummary) { scanDone <- s })
		if err := scan.Start(cmd.Context(), remote.ScanParams{Folder: folder}); err != nil {
			return err
		}

		scanSummary := <-scanDone
		if scanSummary.Outcome != model.OutcomeCompleted {
			return fmt.Errorf("scan ended with %s: %s", scanSummary.Outcome, scanSummary.ErrMsg)
		}

		selected := make(map[string]bool)
		var paths []string
		for _, r := range st.Snapshot() {
			if deleteAll || r.Status == model.StatusAlreadyPresent {
				selected[r.Path] = true
				paths = append(paths, r.Path)
			}
		}

		if len(paths) == 0 {
			fmt.Println("nothing to delete")
			return nil
		}

		st.MarkSelectedPending(selected)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		done := make(chan model.JobSummary, 1)
		del := job.NewDelete(st, client, func(s model.JobSummary) { done <- s })

		if err := del.Start(ctx, remote.DeleteParams{
			Folder: folder,
			Paths:  paths,
			Verify: deleteVerify,
		}); err != nil {
			return err
		}

		var summary model.JobSummary
		select {
		case summary = <-done:
		case <-ctx.Done():
			_ = del.Cancel(context.Background())
			summary = <-done
		}

		saveHistory(summary)
		view.RenderRows(os.Stdout, st.Snapshot())
		view.RenderSummary(os.Stdout, summary)

		if summary.Outcome == model.OutcomeFailed {
			return fmt.Errorf("delete ended with %s: %s", summary.Outcome, summary.ErrMsg)
		}
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteVerify, "verify", true, "Verify each file is gone after deletion")
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every scanned file, not just already-present ones")
	rootCmd.AddCommand(deleteCmd)
}
