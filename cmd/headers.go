package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"listingpilot/config"
	"listingpilot/header"
	"listingpilot/review"
	"listingpilot/sheet"
)

var (
	headersFile  string
	headersSheet string
)

var headersCmd = &cobra.Command{
	Use:   "headers",
	Short: "Show the detected header row of a worksheet",
	Long: `Scan the top-left window of the worksheet (sheet.header_rows x sheet.header_cols) for
the first row containing a header marker and print the column mapping found there.

The title and description columns used by optimize are marked. Use this to check a
workbook before running a batch.`,
	Example: `
  # Show headers of the active sheet
  listingpilot headers --file listings.xlsx

  # Show headers of a named sheet
  listingpilot headers --file listings.xlsx --sheet Productos
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		if headersSheet != "" {
			cfg.Sheet.Name = headersSheet
		}

		host, err := sheet.Open(headersFile, cfg.Sheet.Name, "")
		if err != nil {
			return err
		}
		defer host.Close()

		extractor := &review.Extractor{
			Host:    host,
			Window:  sheet.Window{Rows: cfg.Sheet.HeaderRows, Columns: cfg.Sheet.HeaderCols},
			Markers: cfg.Sheet.HeaderMarkers,
		}
		headers, err := extractor.Headers()
		if err != nil {
			return fmt.Errorf("%s", review.StatusMessage(err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Sheet: %s\n", host.SheetName())
		printHeaders(cmd.OutOrStdout(), headers, cfg)
		return nil
	},
}

func printHeaders(out io.Writer, headers *header.Map, cfg *config.Config) {
	title, _ := headers.Find(cfg.Review.TitleMarkers...)
	description, _ := headers.Find(cfg.Review.DescriptionMarkers...)

	fmt.Fprintf(out, "Header row: %d\n", headers.HeaderRow()+1)
	for _, column := range headers.Columns() {
		role := ""
		switch column.Name {
		case title:
			role = " (title)"
		case description:
			role = " (description)"
		}
		fmt.Fprintf(out, "  %-4s %s%s\n", sheet.ColumnName(column.Index), column.Name, role)
	}
	for _, name := range headers.Duplicates() {
		col, _ := headers.Index(name)
		fmt.Fprintf(out, "Warning: %q appears in more than one column; only column %s is used.\n", name, sheet.ColumnName(col))
	}
}

func init() {
	rootCmd.AddCommand(headersCmd)

	headersCmd.Flags().StringVarP(&headersFile, "file", "i", "", "Workbook to read (.xlsx, .xlsm, .csv)")
	headersCmd.Flags().StringVar(&headersSheet, "sheet", "", "Worksheet name (default: sheet.name from config, else the active sheet)")

	_ = headersCmd.MarkFlagRequired("file")
}
