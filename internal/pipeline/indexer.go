package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/hexosearch/internal/engine"
)

// Outcome classifies a finished run.
type Outcome int

const (
	// AllSucceeded means every action was indexed.
	AllSucceeded Outcome = iota
	// PartiallyFailed means the batch went through but some documents failed.
	PartiallyFailed
	// Fatal means nothing can be assumed indexed.
	Fatal
)

// String returns the outcome name used in logs and history.
func (o Outcome) String() string {
	switch o {
	case AllSucceeded:
		return "all_succeeded"
	case PartiallyFailed:
		return "partially_failed"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// AdvancesWatermark reports whether the run completed far enough to record it.
func (o Outcome) AdvancesWatermark() bool {
	return o == AllSucceeded || o == PartiallyFailed
}

// Failure is one document the engine refused.
type Failure struct {
	DocID    string
	Title    string
	Reason   string
	CausedBy string
}

// Result is the outcome of submitting one batch.
type Result struct {
	Outcome  Outcome
	Total    int
	Failures []Failure
	Took     time.Duration

	// Err is set when Outcome is Fatal.
	Err error
}

// Succeeded returns the number of documents indexed.
func (r Result) Succeeded() int {
	if r.Outcome == Fatal {
		return 0
	}
	return r.Total - len(r.Failures)
}

// BulkIndexer submits compiled actions to an engine as one batch.
type BulkIndexer struct {
	engine engine.Engine
}

// NewBulkIndexer creates a BulkIndexer for e.
func NewBulkIndexer(e engine.Engine) *BulkIndexer {
	return &BulkIndexer{engine: e}
}

// Ping checks engine liveness. A failure must abort the run.
func (b *BulkIndexer) Ping(ctx context.Context) error {
	if err := b.engine.Ping(ctx); err != nil {
		slog.Error("engine_ping_failed",
			slog.String("engine", b.engine.Name()),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Submit sends all actions in one batch and classifies the response.
// An empty batch succeeds without contacting the engine.
func (b *BulkIndexer) Submit(ctx context.Context, compiled *Compiled) Result {
	total := len(compiled.Actions)
	if total == 0 {
		return Result{Outcome: AllSucceeded}
	}

	start := time.Now()
	resp, err := b.engine.Bulk(ctx, compiled.Actions)
	if err != nil {
		slog.Error("bulk_submit_failed",
			slog.String("engine", b.engine.Name()),
			slog.Int("actions", total),
			slog.String("error", err.Error()))
		return Result{Outcome: Fatal, Total: total, Took: time.Since(start), Err: err}
	}

	result := Result{Outcome: AllSucceeded, Total: total, Took: time.Since(start)}
	for _, ie := range resp.Errors {
		f := Failure{DocID: ie.DocID, Reason: ie.Reason, CausedBy: ie.CausedBy}
		if a, ok := compiled.ByDocID[ie.DocID]; ok {
			f.Title = a.Title
		} else {
			f.Title = ie.DocID
		}
		result.Failures = append(result.Failures, f)
	}
	if len(result.Failures) > 0 {
		result.Outcome = PartiallyFailed
	}

	slog.Info("bulk_submitted",
		slog.String("engine", b.engine.Name()),
		slog.String("outcome", result.Outcome.String()),
		slog.Int("succeeded", result.Succeeded()),
		slog.Int("failed", len(result.Failures)),
		slog.Int64("took_ms", result.Took.Milliseconds()))

	return result
}
