package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"listingpilot/web"
)

var (
	serveFile   string
	serveSheet  string
	servePort   int
	serveOutput string
	serveNoOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local review panel for a workbook",
	Long: `Start a local HTTP server with the review panel.

The panel runs bulk optimize and smart-edit batches over a row selection, streams
progress while rows are processed, lets you approve or reject each proposal and
commits the approved ones to the workbook. It listens on localhost only and has no
authentication.`,
	Example: `
  # Start the panel on the default port
  listingpilot serve --file listings.xlsx

  # Keep the source untouched and write to a copy
  listingpilot serve --file listings.xlsx --output listings-reviewed.xlsx --port 9090 --no-open
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.ErrOrStderr(), serveFile, serveSheet, serveOutput)
		if err != nil {
			return err
		}
		defer s.Close()

		workbook := serveFile
		if serveOutput != "" {
			workbook = fmt.Sprintf("%s -> %s", serveFile, serveOutput)
		}

		server := &http.Server{
			Addr:              serveAddr(servePort),
			Handler:           web.NewServer(s.controller, s.journal, *s.cfg, workbook),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		listenURL := fmt.Sprintf("http://localhost:%d", servePort)
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s (sheet %s)\n", listenURL, s.host.SheetName())
		s.logger.WithField("addr", server.Addr).Debug("review panel started")
		if !serveNoOpen {
			if openErr := openURLInBrowser(listenURL); openErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to open browser: %v\n", openErr)
			}
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sigCh:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			err := <-errCh
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	},
}

// serveAddr binds to the loopback interface only.
func serveAddr(port int) string {
	return net.JoinHostPort("127.0.0.1", fmt.Sprint(port))
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFile, "file", "i", "", "Workbook to review (.xlsx, .xlsm, .csv)")
	serveCmd.Flags().StringVar(&serveSheet, "sheet", "", "Worksheet name (default: sheet.name from config, else the active sheet)")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port for the local web server")
	serveCmd.Flags().StringVarP(&serveOutput, "output", "o", "", "Save the edited workbook here instead of overwriting --file")
	serveCmd.Flags().BoolVar(&serveNoOpen, "no-open", false, "Do not open browser automatically")

	_ = serveCmd.MarkFlagRequired("file")
}

func openURLInBrowser(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}
