package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"batchup/internal/job"
	"batchup/internal/logger"
	"batchup/internal/model"
	"batchup/internal/remote"
	"batchup/internal/view"
)

var watchCmd = &cobra.Command{
	Use:   "watch [local-dir] [folder]",
	Short: "Re-scan the remote folder whenever the local staging dir changes",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	localDir, folder := args[0], args[1]

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = fw.Close()
	}()

	if err := addRecursive(fw, localDir); err != nil {
		return err
	}

	logger.Log.Info("watching for changes",
		zap.String("dir", localDir),
		zap.String("folder", folder))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	settle := time.Duration(cfg.WatchSettleMS) * time.Millisecond
	var timer *time.Timer
	rescan := make(chan struct{}, 1)

	for {
		var timerCh <-chan time.Time
		if timer != nil {
			timerCh = timer.C
		}

		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = fw.Add(ev.Name)
				}
			}
			// Restart the settle window; a burst of writes triggers one scan.
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(settle)

		case <-timerCh:
			timer = nil
			select {
			case rescan <- struct{}{}:
			default:
			}

		case <-rescan:
			if err := runScanOnce(cmd, folder); err != nil {
				logger.Log.Warn("scan failed",
					zap.Error(err))
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("watcher error",
				zap.Error(err))

		case sig := <-sigCh:
			logger.Log.Info("shutting down",
				zap.String("signal", sig.String()))
			return nil
		}
	}
}

func addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func runScanOnce(cmd *cobra.Command, folder string) error {
	st := newStore()
	client := newClient()

	done := make(chan model.JobSummary, 1)
	ctrl := job.NewScan(st, client, func(s model.JobSummary) { done <- s })

	if err := ctrl.Start(cmd.Context(), remote.ScanParams{Folder: folder}); err != nil {
		return err
	}

	summary := <-done
	saveHistory(summary)
	view.RenderRows(os.Stdout, st.Snapshot())

	if summary.Outcome != model.OutcomeCompleted {
		return fmt.Errorf("scan ended with %s: %s", summary.Outcome, summary.ErrMsg)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
