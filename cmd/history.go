package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"listingpilot/config"
	"listingpilot/journal"
	"listingpilot/output"
	"listingpilot/review"
)

var (
	historyBatch  string
	historyFormat string
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded commits or export the cell outcomes of one",
	Long: `Read the session journal and list every commit with its counts.

The journal lives in memory by default and is gone when the command exits. Set
journal.dsn to a file (for example "file:listingpilot-journal.db") to keep history
across runs; this command only works with such a file journal.

With --batch the cell outcomes of one commit are printed, or exported with --output.
Output format can be selected explicitly via --format or inferred from --output extension.`,
	Example: `
  # List commits
  listingpilot history

  # Export the outcomes of one commit to Excel
  listingpilot history --batch 6f1c2a0e-3d4b-4f5a-9b8c-7d6e5f4a3b2c --output outcomes.xlsx
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		if isMemoryDSN(cfg.Journal.DSN) {
			return fmt.Errorf("journal.dsn is %q; set a file DSN to keep history across runs", journal.MemoryDSN)
		}

		store, err := journal.Open(cfg.Journal.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if strings.TrimSpace(historyBatch) == "" {
			return printHistory(out, store)
		}

		batchID, err := uuid.Parse(strings.TrimSpace(historyBatch))
		if err != nil {
			return fmt.Errorf("invalid --batch %q: %w", historyBatch, err)
		}
		return exportOutcomes(out, store, batchID, historyFormat, historyOutput)
	},
}

func isMemoryDSN(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return dsn == "" || dsn == journal.MemoryDSN || strings.Contains(dsn, "mode=memory")
}

func printHistory(out io.Writer, store *journal.Store) error {
	commits, err := store.ListCommits()
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Fprintln(out, "No commits recorded.")
		return nil
	}
	for _, commit := range commits {
		fmt.Fprintf(out, "%s  %s  %-12s rows=%d written=%d skipped=%d failed=%d",
			commit.CommittedAt.Local().Format("2006-01-02 15:04:05"),
			commit.BatchID,
			commit.Mode,
			commit.RowsCommitted,
			commit.Written,
			commit.Skipped,
			commit.Failed,
		)
		if commit.FlushError != "" {
			fmt.Fprintf(out, " flush-error=%q", commit.FlushError)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func exportOutcomes(out io.Writer, store *journal.Store, batchID uuid.UUID, format, path string) error {
	outcomes, err := store.CellOutcomes(batchID)
	if err != nil {
		return err
	}

	if strings.TrimSpace(path) == "" {
		for _, entry := range outcomes {
			fmt.Fprintf(out, "row %d  %-20s %-8s %q %s\n", entry.Row+1, entry.Field, entry.Status, entry.Value, entry.Err)
		}
		return nil
	}

	if strings.TrimSpace(format) == "" {
		format = output.FormatForPath(path)
	}
	writer, err := output.WriterForFormat(format)
	if err != nil {
		return err
	}
	if err := writer.Write(path, review.CommitReport{BatchID: batchID, Entries: outcomes}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Export completed. Cells: %d, Format: %s, File: %s\n", len(outcomes), format, path)
	return nil
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "Batch ID of the commit to show or export")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "", "Output format: csv|excel (optional, inferred from output extension)")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Export the cell outcomes of --batch to this file")
}
