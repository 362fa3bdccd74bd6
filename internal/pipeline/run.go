package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Aman-CERP/hexosearch/internal/cache"
	"github.com/Aman-CERP/hexosearch/internal/engine"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
	"github.com/Aman-CERP/hexosearch/internal/output"
	"github.com/Aman-CERP/hexosearch/internal/state"
)

// RunContext carries the per-invocation inputs every stage reads.
// It is built once and never mutated during a run.
type RunContext struct {
	// Watermark is the lower bound on shifted update times.
	Watermark state.Watermark

	// CategoryMap maps category names to path aliases; nil disables aliasing.
	CategoryMap map[string]string

	// Excludes lists paths that are never indexed.
	Excludes state.ExcludeSet

	// Index and DocType address every action.
	Index   string
	DocType string

	// Now is the clock used for the new watermark; nil means time.Now.
	Now func() time.Time
}

func (rc *RunContext) now() time.Time {
	if rc.Now != nil {
		return rc.Now()
	}
	return time.Now()
}

// Stage is a step of the run state machine.
type Stage int

const (
	// StageIdle is the state before the cache is read.
	StageIdle Stage = iota
	// StageLoaded means db.json was parsed.
	StageLoaded
	// StageSelected means changed, published articles were picked.
	StageSelected
	// StageJoined means categories and tags were attached.
	StageJoined
	// StageCompiled means index actions were built.
	StageCompiled
	// StageSubmitted means the batch reached the engine.
	StageSubmitted
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLoaded:
		return "loaded"
	case StageSelected:
		return "selected"
	case StageJoined:
		return "joined"
	case StageCompiled:
		return "compiled"
	case StageSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Options configures a Runner.
type Options struct {
	// CachePath is the db.json to load.
	CachePath string

	// Watermark receives the new watermark after a completed run.
	Watermark *state.WatermarkFile

	// Engine receives the batch. Unused in dry-run mode.
	Engine engine.Engine

	// DryRun compiles and prints actions without contacting the engine
	// or writing the watermark.
	DryRun bool

	// Out receives the human-readable run report.
	Out *output.Writer
}

// Report summarizes a run for the CLI and run history.
type Report struct {
	Stage            Stage
	Selected         int
	Omitted          int
	Result           Result
	DryRun           bool
	WatermarkWritten bool
	StartedAt        time.Time
	Duration         time.Duration
}

// Runner executes one pipeline run.
type Runner struct {
	opts  Options
	stage Stage
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = output.New(io.Discard)
	}
	return &Runner{opts: opts}
}

// Stage returns the last stage reached.
func (r *Runner) Stage() Stage {
	return r.stage
}

func (r *Runner) advance(s Stage) {
	r.stage = s
	slog.Debug("run_stage", slog.String("stage", s.String()))
}

// Run loads the cache, compiles actions, submits them and advances the
// watermark. The returned error is non-nil exactly when the run is fatal;
// the report is always non-nil.
func (r *Runner) Run(ctx context.Context, rc *RunContext) (*Report, error) {
	report := &Report{StartedAt: rc.now(), DryRun: r.opts.DryRun}
	defer func() {
		report.Stage = r.stage
		report.Duration = time.Since(report.StartedAt)
	}()
	r.advance(StageIdle)

	fatal := func(err error) (*Report, error) {
		report.Result = Result{Outcome: Fatal, Err: err}
		return report, err
	}

	c, err := cache.Load(r.opts.CachePath)
	if err != nil {
		return fatal(err)
	}
	r.advance(StageLoaded)

	selected, err := SelectChanged(c.Posts(), c.Pages(), rc.Watermark)
	if err != nil {
		return fatal(err)
	}
	report.Selected = len(selected)
	r.printSelected(selected)
	r.advance(StageSelected)

	if err := JoinMetadata(selected, c); err != nil {
		return fatal(err)
	}
	r.advance(StageJoined)

	compiled, err := Compile(selected, rc)
	if err != nil {
		return fatal(err)
	}
	report.Omitted = len(compiled.Omitted) + len(compiled.Duplicates)
	for _, a := range compiled.Omitted {
		r.opts.Out.Warningf("- Article %s omitted", a.Title)
	}
	for _, d := range compiled.Duplicates {
		r.opts.Out.Warningf("- Article %s skipped: document ID %s is already used by %s",
			d.Article.Title, d.ID, d.Kept.Title)
	}
	r.advance(StageCompiled)

	if r.opts.DryRun {
		r.printDryRun(compiled)
		report.Result = Result{Outcome: AllSucceeded, Total: len(compiled.Actions)}
		return report, nil
	}

	if r.opts.Engine == nil {
		return fatal(synerr.New(synerr.ErrCodeInternal, "no search engine configured", nil))
	}
	indexer := NewBulkIndexer(r.opts.Engine)
	if err := indexer.Ping(ctx); err != nil {
		return fatal(err)
	}

	result := indexer.Submit(ctx, compiled)
	report.Result = result
	r.advance(StageSubmitted)
	r.printResult(result)

	if !result.Outcome.AdvancesWatermark() {
		return report, result.Err
	}

	if err := r.opts.Watermark.Write(rc.now()); err != nil {
		// The batch is already indexed; the next run re-indexes the same window.
		slog.Warn("watermark_write_failed",
			slog.String("path", r.opts.Watermark.Path()),
			slog.String("error", err.Error()))
		r.opts.Out.Warningf("failed to save index time to %s: %v", r.opts.Watermark.Path(), err)
		return report, nil
	}
	report.WatermarkWritten = true

	return report, nil
}

func (r *Runner) printSelected(selected []*cache.Article) {
	for _, a := range selected {
		r.opts.Out.Dimf("Loaded %s: %s", a.Kind, a.Title)
	}
	r.opts.Out.Newline()
	r.opts.Out.Linef("Loaded %d articles", len(selected))
}

func (r *Runner) printDryRun(compiled *Compiled) {
	r.opts.Out.Newline()
	for _, a := range compiled.Actions {
		r.opts.Out.Linef("Would index %s (%s)", a.ID, a.Source.Path)
	}
	r.opts.Out.Newline()
	r.opts.Out.Successf("%d articles would be indexed (dry run).", len(compiled.Actions))
}

func (r *Runner) printResult(result Result) {
	out := r.opts.Out
	switch result.Outcome {
	case AllSucceeded:
		out.Newline()
		out.Successf("%d articles indexed successfully.", result.Total)
	case PartiallyFailed:
		out.Newline()
		out.Errorf("%d document(s) failed to index:", len(result.Failures))
		for _, f := range result.Failures {
			out.Error(FormatFailure(f))
		}
		out.Newline()
		out.Warningf("%d articles indexed successfully, %d failed.", result.Succeeded(), len(result.Failures))
		out.Dim("Failed articles are retried only if they are updated again.")
	case Fatal:
		out.Newline()
		out.Errorf("%d articles indexed successfully, %d failed.", 0, result.Total)
	}
}

// FormatFailure renders a failure as "# <title>> <reason> (<caused by>)".
func FormatFailure(f Failure) string {
	line := "# " + f.Title + "> " + f.Reason
	if f.CausedBy != "" {
		line += " (" + f.CausedBy + ")"
	}
	return line
}
