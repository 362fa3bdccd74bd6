package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hexosearch/internal/engine"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
	"github.com/Aman-CERP/hexosearch/internal/watcher"
)

type watchOptions struct {
	poll  bool
	retry synerr.Backoff
}

func newWatchCmd(a *app) *cobra.Command {
	opts := watchOptions{retry: synerr.EngineBackoff()}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync now and again whenever db.json changes",
		Long: `Run a sync, then watch db.json, _config.yml and the exclude list and run
again once they have been quiet for the debounce window (watch.debounce).

Pair it with 'hexo generate --watch'. Each run behaves exactly like 'sync'.
A run that fails is reported and the watcher keeps going. Before each run
the engine is pinged with backoff, so a restarting cluster does not need a
manual re-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.poll, "poll", false, "Poll file metadata instead of using fsnotify")

	return cmd
}

func (a *app) runWatch(ctx context.Context, opts watchOptions) error {
	if err := a.cfg.Validate(); err != nil {
		return synerr.ConfigError(err.Error(), err)
	}

	var eng engine.Engine
	if !a.flags.dryRun {
		var err error
		eng, err = a.openEngine()
		if err != nil {
			return err
		}
		defer func() { _ = eng.Close() }()
	}

	w, err := watcher.NewFileWatcher(watcher.Options{
		Debounce:     a.cfg.DebounceDuration(),
		PollInterval: a.cfg.DebounceDuration(),
		ForcePolling: opts.poll,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	files := []string{a.cfg.Paths.Cache, a.cfg.Paths.SiteConfig}
	if a.cfg.Paths.ExcludeFile != "" {
		files = append(files, a.cfg.Paths.ExcludeFile)
	}

	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, files) }()

	a.watchRun(ctx, eng, opts.retry)

	a.out.Newline()
	a.out.Dimf("Watching %s for changes (%s). Press Ctrl+C to stop.", a.cfg.Paths.Cache, w.WatcherType())

	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			if n := w.DroppedBatches(); n > 0 {
				slog.Warn("watch_batches_dropped", slog.Uint64("count", n))
			}
			a.out.Dim("Stopped watching.")
			return nil
		case err := <-startErr:
			if err == nil || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watcher stopped: %w", err)
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, e := range batch {
				slog.Info("file_changed",
					slog.String("path", e.Path),
					slog.String("op", e.Operation.String()))
			}
			a.out.Newline()
			a.watchRun(ctx, eng, opts.retry)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// watchRun waits for the engine, then runs one sync. Errors are printed,
// not returned, so the watch loop survives them.
func (a *app) watchRun(ctx context.Context, eng engine.Engine, retry synerr.Backoff) {
	if eng != nil {
		err := synerr.Retry(ctx, retry, func() error { return eng.Ping(ctx) })
		if err != nil {
			if ctx.Err() == nil {
				a.printError(err)
			}
			return
		}
	}

	if err := a.syncOnce(ctx, eng); err != nil && ctx.Err() == nil {
		a.printError(err)
	}
}

func (a *app) printError(err error) {
	a.out.Error(strings.TrimRight(synerr.FormatForCLI(err), "\n"))
}
