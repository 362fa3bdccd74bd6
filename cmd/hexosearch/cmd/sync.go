package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hexosearch/internal/config"
	"github.com/Aman-CERP/hexosearch/internal/engine"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
	"github.com/Aman-CERP/hexosearch/internal/history"
	"github.com/Aman-CERP/hexosearch/internal/lock"
	"github.com/Aman-CERP/hexosearch/internal/pipeline"
	"github.com/Aman-CERP/hexosearch/internal/state"
)

// historyKeep bounds the number of runs kept in the history database.
const historyKeep = 500

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Index posts and pages changed since the last run",
		Long: `Load db.json, select posts and pages updated since the last index time,
and submit them to the search engine in one bulk request.

On success (including partial per-document failures) the current time is
written to the watermark file. Engine or input failures leave it untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd.Context())
		},
	}
}

// runSync performs one run with a freshly opened engine.
func (a *app) runSync(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return synerr.ConfigError(err.Error(), err).
			WithSuggestion("Pass --index and --doctype, or set engine.index and engine.doctype in .hexosearch.yaml")
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

	return a.syncOnce(ctx, eng)
}

// openEngine constructs the configured backend. No request is sent.
func (a *app) openEngine() (engine.Engine, error) {
	cfg := a.cfg.Engine
	eng, err := engine.New(engine.Config{
		Backend:  cfg.Backend,
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Timeout:  a.cfg.TimeoutDuration(),
		BleveDir: cfg.BlevePath,
		Index:    cfg.Index,
	})
	if err != nil {
		return nil, err
	}

	target := cfg.BlevePath
	if es, ok := eng.(*engine.Elastic); ok {
		target = es.Address()
	}
	slog.Debug("engine_opened",
		slog.String("backend", eng.Name()),
		slog.String("target", target))
	return eng, nil
}

// syncOnce reads the run inputs, runs the pipeline and records history.
// eng may be nil in dry-run mode.
func (a *app) syncOnce(ctx context.Context, eng engine.Engine) error {
	cfg := a.cfg

	site, err := config.LoadSiteConfig(cfg.Paths.SiteConfig)
	if err != nil {
		return err
	}
	if !site.HasCategoryMap() {
		a.out.Warningf("category_map not defined in %s, categories are used as-is", cfg.Paths.SiteConfig)
	}

	wmFile := state.NewWatermarkFile(cfg.Paths.WatermarkFile)
	watermark, err := wmFile.Read()
	if err != nil {
		slog.Warn("watermark_unreadable", slog.Any("error", synerr.FormatForLog(err)))
		msg := err.Error()
		if se, ok := synerr.As(err); ok {
			msg = se.Message
		}
		a.out.Warningf("%s, indexing all articles", msg)
		watermark = 0
	}

	excludes, err := state.LoadExcludes(cfg.Paths.ExcludeFile)
	if err != nil {
		return synerr.New(synerr.ErrCodeFilePermission, err.Error(), err).
			WithDetail("path", cfg.Paths.ExcludeFile)
	}

	if !a.flags.dryRun {
		runLock := lock.ForFile(wmFile.Path())
		if err := runLock.Acquire(); err != nil {
			return err
		}
		defer func() { _ = runLock.Release() }()
	}

	rc := &pipeline.RunContext{
		Watermark:   watermark,
		CategoryMap: site.CategoryMap,
		Excludes:    excludes,
		Index:       cfg.Engine.Index,
		DocType:     cfg.Engine.DocType,
	}

	runner := pipeline.NewRunner(pipeline.Options{
		CachePath: cfg.Paths.Cache,
		Watermark: wmFile,
		Engine:    eng,
		DryRun:    a.flags.dryRun,
		Out:       a.out,
	})

	report, runErr := runner.Run(ctx, rc)
	a.recordRun(ctx, report, runErr)
	return runErr
}

// recordRun stores the report in the history database. Failures to record
// are logged and never change the run's outcome.
func (a *app) recordRun(ctx context.Context, report *pipeline.Report, runErr error) {
	path := a.cfg.Paths.HistoryDB
	if path == "" || report == nil {
		return
	}

	store, err := history.Open(path)
	if err != nil {
		slog.Warn("history_open_failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	defer func() { _ = store.Close() }()

	run := &history.Run{
		StartedAt: report.StartedAt,
		Duration:  report.Duration,
		Backend:   a.cfg.Engine.Backend,
		Index:     a.cfg.Engine.Index,
		Outcome:   report.Result.Outcome.String(),
		Selected:  report.Selected,
		Omitted:   report.Omitted,
		Total:     report.Result.Total,
		Failed:    len(report.Result.Failures),
		DryRun:    report.DryRun,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	for _, f := range report.Result.Failures {
		run.Failures = append(run.Failures, history.Failure{
			DocID:    f.DocID,
			Title:    f.Title,
			Reason:   f.Reason,
			CausedBy: f.CausedBy,
		})
	}

	if _, err := store.Record(ctx, run); err != nil {
		slog.Warn("history_record_failed", slog.String("error", err.Error()))
		return
	}
	if _, err := store.Prune(ctx, historyKeep); err != nil {
		slog.Warn("history_prune_failed", slog.String("error", err.Error()))
	}
}
