package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"listingpilot/review"
)

var (
	optimizeRowFile   string
	optimizeRowSheet  string
	optimizeRowNumber int
	optimizeRowOutput string
)

var optimizeRowCmd = &cobra.Command{
	Use:   "optimize-row",
	Short: "Optimize the title and description of one row and write them immediately",
	Long: `Send the title and description of one row to the transformer and write the answer
back to the same cells without a review step. Written cells get the applied highlight
(review.applied_color).

An empty answer field keeps the current value. A transformer failure leaves the sheet
untouched.`,
	Example: `
  # Optimize row 7 in place
  listingpilot optimize-row --file listings.xlsx --row 7

  # Write the result to a copy of the workbook
  listingpilot optimize-row --file listings.xlsx --row 7 --output listings-optimized.xlsx
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if optimizeRowNumber < 1 {
			return fmt.Errorf("--row must be >= 1, got %d", optimizeRowNumber)
		}

		s, err := openSession(cmd.ErrOrStderr(), optimizeRowFile, optimizeRowSheet, optimizeRowOutput)
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := s.controller.OptimizeRow(context.Background(), optimizeRowNumber-1)
		if err != nil {
			return fmt.Errorf("%s", review.StatusMessage(err))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Row %d optimized.\n", optimizeRowNumber)
		fmt.Fprintf(out, "Title:       %s\n", result.Title)
		fmt.Fprintf(out, "Description: %s\n", result.Description)
		if result.Optimization.Tips != "" {
			fmt.Fprintf(out, "Tips:        %s\n", result.Optimization.Tips)
		}
		fmt.Fprintf(out, "%s.\n", result.Report.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optimizeRowCmd)

	optimizeRowCmd.Flags().StringVarP(&optimizeRowFile, "file", "i", "", "Workbook to edit (.xlsx, .xlsm, .csv)")
	optimizeRowCmd.Flags().StringVar(&optimizeRowSheet, "sheet", "", "Worksheet name (default: sheet.name from config, else the active sheet)")
	optimizeRowCmd.Flags().IntVar(&optimizeRowNumber, "row", 0, "Row number as shown in the spreadsheet (1-based)")
	optimizeRowCmd.Flags().StringVarP(&optimizeRowOutput, "output", "o", "", "Save the edited workbook here instead of overwriting --file")

	_ = optimizeRowCmd.MarkFlagRequired("file")
	_ = optimizeRowCmd.MarkFlagRequired("row")
}
