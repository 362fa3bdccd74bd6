package cmd

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
	"github.com/Aman-CERP/hexosearch/internal/history"
	"github.com/Aman-CERP/hexosearch/internal/pipeline"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit      int
		runID      int64
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		Long: `List recent sync runs recorded in the history database (paths.history_db).

Use --run to list the documents that failed in one run.`,
		Example: `  # Last 10 runs
  hexosearch history

  # Failed documents of run 42
  hexosearch history --run 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.Paths.HistoryDB
			if path == "" {
				return synerr.ConfigError("run history is disabled (paths.history_db is empty)", nil)
			}
			if !fileExists(path) {
				a.out.Dim("No runs recorded yet.")
				return nil
			}

			store, err := history.Open(path)
			if err != nil {
				return synerr.New(synerr.ErrCodeFilePermission, "failed to open history database", err).
					WithDetail("path", path)
			}
			defer func() { _ = store.Close() }()

			if runID > 0 {
				failures, err := store.Failures(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, failures)
				}
				a.printFailures(runID, failures)
				return nil
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			a.printRuns(runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().Int64Var(&runID, "run", 0, "Show failed documents of this run")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *app) printRuns(runs []history.Run) {
	if len(runs) == 0 {
		a.out.Dim("No runs recorded yet.")
		return
	}

	rows := [][]string{{"ID", "STARTED", "OUTCOME", "BACKEND", "INDEX", "SELECTED", "INDEXED", "FAILED", "DURATION"}}
	for _, r := range runs {
		outcome := r.Outcome
		if r.DryRun {
			outcome += " (dry run)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			outcome,
			r.Backend,
			r.Index,
			strconv.Itoa(r.Selected),
			strconv.Itoa(r.Total - r.Failed),
			strconv.Itoa(r.Failed),
			r.Duration.String(),
		})
	}
	a.out.Table(rows)
}

func (a *app) printFailures(runID int64, failures []history.Failure) {
	if len(failures) == 0 {
		a.out.Dimf("Run %d has no failed documents.", runID)
		return
	}

	a.out.Errorf("%d document(s) failed to index in run %d:", len(failures), runID)
	for _, f := range failures {
		a.out.Error(pipeline.FormatFailure(pipeline.Failure{
			DocID:    f.DocID,
			Title:    f.Title,
			Reason:   f.Reason,
			CausedBy: f.CausedBy,
		}))
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
