package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"listingpilot/header"
	"listingpilot/output"
	"listingpilot/review"
	"listingpilot/sheet"
	"listingpilot/web"
)

var (
	batchFile        string
	batchSheet       string
	batchSelect      string
	batchReject      []int
	batchDryRun      bool
	batchReport      string
	batchOutput      string
	batchInstruction string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Propose edits for a range of rows, review them and commit the approved ones",
	Long: `Run a bulk edit over the rows of --select.

Every non-blank row is sent to the transformer one at a time. A row that fails is
reported and left out; the rest of the batch continues. The proposals are printed
with their target cells, all approved by default. Use --reject with the proposal
numbers from the listing to leave some out, or --dry-run to write nothing.

Approved fields are written to the cells whose header matches the field name and
highlighted with review.changed_color. Fields that match no header are skipped.`,
}

var batchOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Propose a new title and description for every row of the selection",
	Example: `
  # Preview proposals for rows 5 to 40
  listingpilot batch optimize --file listings.xlsx --select A5:I40 --dry-run

  # Commit all but proposals 2 and 5, then export the commit report
  listingpilot batch optimize --file listings.xlsx --select 5:40 --reject 2,5 --report commit.xlsx
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatchCommand(cmd, review.ModeOptimize)
	},
}

var batchSmartEditCmd = &cobra.Command{
	Use:   "smart-edit",
	Short: "Apply a free-form instruction to every row of the selection",
	Example: `
  # Set a column from an instruction
  listingpilot batch smart-edit --file listings.xlsx --select 5:40 --instruction "set Marca to Ubiquiti"

  # Save the result to a copy
  listingpilot batch smart-edit --file listings.xlsx --select 5:40 --instruction "translate the title to English" --output listings-en.xlsx
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatchCommand(cmd, review.ModeSmartEdit)
	},
}

type batchRequest struct {
	Mode        review.Mode
	Selection   string
	Instruction string
	Reject      []int
	DryRun      bool
	Report      string
}

func runBatchCommand(cmd *cobra.Command, mode review.Mode) error {
	s, err := openSession(cmd.ErrOrStderr(), batchFile, batchSheet, batchOutput)
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = runBatch(context.Background(), cmd.OutOrStdout(), s.controller, batchRequest{
		Mode:        mode,
		Selection:   batchSelect,
		Instruction: batchInstruction,
		Reject:      batchReject,
		DryRun:      batchDryRun,
		Report:      batchReport,
	})
	return err
}

// runBatch drives one extract, review and commit cycle on c. It returns the
// commit report, or nil when nothing was written.
func runBatch(ctx context.Context, out io.Writer, c *review.Controller, req batchRequest) (*review.CommitReport, error) {
	sel, err := sheet.ParseSelection(req.Selection)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case review.ModeOptimize:
		_, err = c.BulkOptimize(ctx, sel)
	case review.ModeSmartEdit:
		_, err = c.BulkSmartEdit(ctx, sel, req.Instruction)
	default:
		return nil, fmt.Errorf("unsupported batch mode: %s", req.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("%s", review.StatusMessage(err))
	}

	fmt.Fprintln(out, c.Status())
	proposals := c.Proposals()
	printProposals(out, c.Headers(), proposals, c.Record)

	if len(proposals) == 0 {
		return nil, c.Discard()
	}
	if err := rejectProposals(c, proposals, req.Reject); err != nil {
		_ = c.Discard()
		return nil, err
	}

	if req.DryRun {
		if err := c.Discard(); err != nil {
			return nil, err
		}
		fmt.Fprintln(out, "Dry run: nothing written.")
		return nil, nil
	}

	report, err := c.Commit(ctx)
	if errors.Is(err, review.ErrNothingApproved) {
		fmt.Fprintln(out, "All proposals rejected: nothing written.")
		return nil, c.Discard()
	}
	if err != nil {
		return nil, fmt.Errorf("%s", review.StatusMessage(err))
	}
	fmt.Fprintln(out, c.Status())
	for _, entry := range report.Entries {
		if entry.Status != review.StatusWritten {
			fmt.Fprintf(out, "  row %d %s: %s %s\n", entry.Row+1, entry.Field, entry.Status, entry.Err)
		}
	}

	if req.Report != "" {
		format := output.FormatForPath(req.Report)
		writer, err := output.WriterForFormat(format)
		if err != nil {
			return &report, err
		}
		if err := writer.Write(req.Report, report); err != nil {
			return &report, err
		}
		fmt.Fprintf(out, "Report written. Cells: %d, Format: %s, File: %s\n", len(report.Entries), format, req.Report)
	}
	if report.FlushErr != nil {
		return &report, report.FlushErr
	}
	return &report, nil
}

func printProposals(out io.Writer, headers *header.Map, proposals []review.ProposalView, records func(int) (header.Record, bool)) {
	rows := web.BuildProposalRows(headers, proposals, func(id int) header.Record {
		record, _ := records(id)
		return record
	})
	for _, row := range rows {
		fmt.Fprintf(out, "[%d] row %d", row.ID+1, row.Row)
		if row.Unmatched > 0 {
			fmt.Fprintf(out, " (%d field(s) match no column)", row.Unmatched)
		}
		fmt.Fprintln(out)
		for _, field := range row.Fields {
			cell := field.Cell
			if cell == "" {
				cell = "-"
			}
			fmt.Fprintf(out, "    %-5s %s: %q -> %q [%s]\n", cell, field.Field, field.Current, field.Proposed, field.Kind)
		}
		if row.Tips != "" {
			fmt.Fprintf(out, "    tips: %s\n", strings.TrimSpace(row.Tips))
		}
	}
}

// rejectProposals unapproves the proposals numbered as in the listing
// (1-based). Unknown numbers are an error so a typo never commits a row.
func rejectProposals(c *review.Controller, proposals []review.ProposalView, numbers []int) error {
	known := make(map[int]bool, len(proposals))
	for _, p := range proposals {
		known[p.ID] = true
	}
	seen := make(map[int]bool, len(numbers))
	for _, number := range numbers {
		id := number - 1
		if !known[id] {
			return fmt.Errorf("--reject: no proposal [%d]", number)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := c.Toggle(id); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.AddCommand(batchOptimizeCmd)
	batchCmd.AddCommand(batchSmartEditCmd)

	batchCmd.PersistentFlags().StringVarP(&batchFile, "file", "i", "", "Workbook to edit (.xlsx, .xlsm, .csv)")
	batchCmd.PersistentFlags().StringVar(&batchSheet, "sheet", "", "Worksheet name (default: sheet.name from config, else the active sheet)")
	batchCmd.PersistentFlags().StringVarP(&batchSelect, "select", "s", "", "Rows to process as shown in the spreadsheet, e.g. A5:I40 or 5:40")
	batchCmd.PersistentFlags().IntSliceVar(&batchReject, "reject", nil, "Proposal numbers to leave out, e.g. 2,5")
	batchCmd.PersistentFlags().BoolVar(&batchDryRun, "dry-run", false, "Print proposals without writing")
	batchCmd.PersistentFlags().StringVar(&batchReport, "report", "", "Export the commit report (.csv or .xlsx)")
	batchCmd.PersistentFlags().StringVarP(&batchOutput, "output", "o", "", "Save the edited workbook here instead of overwriting --file")
	batchSmartEditCmd.Flags().StringVar(&batchInstruction, "instruction", "", "Edit instruction sent with every row")

	_ = batchCmd.MarkPersistentFlagRequired("file")
	_ = batchCmd.MarkPersistentFlagRequired("select")
	_ = batchSmartEditCmd.MarkFlagRequired("instruction")
}
