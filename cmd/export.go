package cmd

import (
	"fmt"

	"github.com/fakeyudi/encore/internal/report"
	"github.com/spf13/cobra"
)

var (
	exportFormat     string
	exportWeekOffset int
	exportOutput     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a shareable report for one week",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openJournal(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		r, err := buildWeekReport(ctx, store, weekStart(exportWeekOffset))
		if err != nil {
			return err
		}

		// Select renderer based on --format flag or config DefaultFormat.
		format := exportFormat
		if format == "" {
			format = cfg.DefaultFormat
		}
		renderer, ext, err := report.RendererFor(format)
		if err != nil {
			return err
		}
		data, err := renderer.Render(r)
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}

		dir := exportOutput
		if dir == "" {
			dir = cfg.OutputDir
		}
		if dir == "" {
			dir = "."
		}
		path, err := report.WriteFile(dir, report.FileName(r, ext), data)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Report written: %s\n", path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: markdown or json (overrides config)")
	exportCmd.Flags().IntVar(&exportWeekOffset, "week-offset", 0, "shift by this many weeks (-1 is last week)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "directory to write the report to (overrides config)")
	rootCmd.AddCommand(exportCmd)
}
