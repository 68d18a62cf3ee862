package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"foodprice/internal/domain"
	"foodprice/internal/storage"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
)

func newHistoryCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded rename runs",
		Long: `List rename runs recorded in the history database, newest first.

Runs are only recorded when history is enabled (--history or history.enabled).`,
		Example: `  $ renamer history
  $ renamer history --limit 5`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logCloser, err := o.setup()
			if err != nil {
				return err
			}
			defer logCloser.Close()

			if _, err := os.Stat(cfg.History.Path); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no run history at %s (enable it with --history)", cfg.History.Path)
			}
			db, err := storage.New(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer db.Close()

			runs, err := storage.NewRunStore(db).ListRunLogs("", limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum runs to show")
	return cmd
}

func printRuns(out io.Writer, runs []domain.RunLog) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTRIGGER\tSTATUS\tFILES\tROWS\tDURATION\tMANIFEST\tERROR")
	for _, r := range runs {
		status := successColor.Sprint(r.Status)
		if r.Status != domain.RunSuccess {
			status = errorColor.Sprint(r.Status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Trigger,
			status,
			r.FilesWritten,
			r.RowsWritten,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.ManifestPath,
			r.Error,
		)
	}
	return w.Flush()
}
