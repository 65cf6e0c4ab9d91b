package cli

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// watchDebounce coalesces bursts of file events into one report refresh.
const watchDebounce = 250 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously preview selection as files change",
		Long: `Watch the project tree and reprint the selection preview whenever
a file changes. Like status, nothing is executed and nothing is
written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd)
		},
	}
	return cmd
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}
	defer watcher.Close()

	if err := addWatchTree(watcher, opts.Root); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch project tree", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	refresh := func() {
		report, err := buildStatusReport(opts, cmd)
		if err != nil {
			slog.Error("selection preview failed", "error", err)
			return
		}
		if err := report.Print(cmd.OutOrStdout(), opts.Format); err != nil {
			slog.Error("write report", "error", err)
		}
	}
	refresh()

	// The timer is drained inside the select so refresh always runs on
	// this goroutine and report writes never overlap.
	var (
		debounce  *time.Timer
		debounceC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-debounceC:
			debounceC = nil
			refresh()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoredPath(event.Name) {
				continue
			}
			// New directories must be watched too.
			if event.Has(fsnotify.Create) {
				_ = addWatchTree(watcher, event.Name)
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				if !debounce.Stop() && debounceC != nil {
					<-debounce.C
				}
				debounce.Reset(watchDebounce)
			}
			debounceC = debounce.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

// addWatchTree registers path and every directory under it. Non-directory
// paths and unreadable subtrees are skipped silently.
func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if ignoredPath(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// ignoredPath filters out noise that would make the watcher refresh on
// its own database writes or VCS churn.
func ignoredPath(path string) bool {
	base := filepath.Base(path)
	if base == ".git" || base == ".siftdata" {
		return true
	}
	return strings.HasPrefix(base, ".siftdata-")
}
