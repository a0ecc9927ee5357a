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

var uploadPolicy string

var uploadCmd = &cobra.Command{
	Use:   "upload [folder]",
	Short: "Scan a folder and upload every new file",
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
			if r.Status == model.StatusNew {
				selected[r.Path] = true
				paths = append(paths, r.Path)
			}
		}

		if len(paths) == 0 {
			fmt.Println("nothing to upload")
			return nil
		}

		st.MarkSelectedPending(selected)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		done := make(chan model.JobSummary, 1)
		up := job.NewUpload(st, client, func(s model.JobSummary) { done <- s })

		unsub := st.Subscribe(func() {
			s := up.Summary()
			fmt.Printf("\r%d completed, %d skipped, %d failed of %d",
				s.Completed, s.Skipped, s.Failed, s.TotalItems)
		})
		defer unsub()

		if err := up.Start(ctx, remote.UploadParams{
			Folder:          folder,
			Paths:           paths,
			DuplicatePolicy: uploadPolicy,
		}); err != nil {
			return err
		}

		var summary model.JobSummary
		select {
		case summary = <-done:
		case <-ctx.Done():
			_ = up.Cancel(context.Background())
			summary = <-done
		}
		fmt.Println()

		saveHistory(summary)
		view.RenderRows(os.Stdout, st.Snapshot())
		view.RenderSummary(os.Stdout, summary)

		if summary.Outcome == model.OutcomeFailed {
			return fmt.Errorf("upload ended with %s: %s", summary.Outcome, summary.ErrMsg)
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadPolicy, "duplicates", "skip", "Duplicate handling policy (skip|replace|rename)")
	rootCmd.AddCommand(uploadCmd)
}
