package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hexosearch/internal/engine"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		limit int
		ids   []string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the local bleve index",
		Long: `Run a match query over title, content and excerpt of a local bleve index
and print the matching document IDs. With --id, report whether the given
document IDs are indexed instead.

Useful to check a --backend=bleve sync. Elasticsearch indexes are not queried.`,
		Example: `  hexosearch search -i blog "incremental indexing"
  hexosearch search -i blog --id t.hello --id about.index`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(ids) == 0 {
				return fmt.Errorf("requires a query or at least one --id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			index := a.cfg.Engine.Index
			if index == "" {
				return synerr.New(synerr.ErrCodeInvalidInput, "engine.index is required (use -i/--index)", nil)
			}
			dir := a.cfg.Engine.BlevePath
			if !engine.BleveIndexExists(dir, index) {
				return synerr.NotFound("bleve index", engine.BleveIndexPath(dir, index)).
					WithSuggestion("Run 'hexosearch --backend bleve' to build it first")
			}

			b, err := engine.NewBleve(dir, index)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			if len(ids) > 0 {
				return a.printIndexed(cmd, b, ids)
			}

			query := strings.Join(args, " ")
			found, err := b.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			total, err := b.Count()
			if err != nil {
				return err
			}

			if len(found) == 0 {
				a.out.Dimf("No matches for %q in %d documents.", query, total)
				return nil
			}
			rows := [][]string{{"#", "ID"}}
			for i, id := range found {
				rows = append(rows, []string{strconv.Itoa(i + 1), id})
			}
			a.out.Table(rows)
			a.out.Newline()
			a.out.Dimf("%d of %d documents matched.", len(found), total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringArrayVar(&ids, "id", nil, "Check whether a document ID is indexed (repeatable)")

	return cmd
}

// printIndexed lists each id with whether it is in the index. Any missing
// id makes the command fail.
func (a *app) printIndexed(cmd *cobra.Command, b *engine.Bleve, ids []string) error {
	rows := [][]string{{"ID", "INDEXED"}}
	var missing []string
	for _, id := range ids {
		ok, err := b.Contains(cmd.Context(), id)
		if err != nil {
			return err
		}
		state := "yes"
		if !ok {
			state = "no"
			missing = append(missing, id)
		}
		rows = append(rows, []string{id, state})
	}
	a.out.Table(rows)

	if len(missing) > 0 {
		return synerr.New(synerr.ErrCodeInvalidInput,
			fmt.Sprintf("%d of %d documents not indexed: %s", len(missing), len(ids), strings.Join(missing, ", ")), nil)
	}
	return nil
}
