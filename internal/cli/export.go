package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var exportTimeout time.Duration

var exportCmd = &cobra.Command{
	Use:   "export <report-id>",
	Short: "Export a stored report and print the document URL",
	Long: `Export creates the external document of a report with the configured
exporter. A report that was exported before prints its stored URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 2*time.Minute, "export timeout")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	res, err := a.Service.Export(ctx, args[0])
	if err != nil {
		return err
	}

	state := "created"
	if res.Cached {
		state = "existing"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", state, res.DocumentID, res.URL)
	return nil
}
