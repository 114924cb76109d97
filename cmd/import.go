package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fakeyudi/encore/internal/inbox"
	"github.com/fakeyudi/encore/internal/report"
	"github.com/spf13/cobra"
)

var (
	importDir   string
	importWatch bool
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Add the takes from exported reports to the journal",
	Long: `Add the takes from exported reports to the journal.

Import a single report file, or every report in a folder with --dir. With
--watch, encore keeps importing reports as they appear in the folder until
interrupted. Takes already in the journal are skipped, so importing the same
report twice is harmless. Reports do not carry audio.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (importDir != "") {
			return errors.New("give either a report file or --dir")
		}
		if importWatch && importDir == "" {
			return errors.New("--watch needs --dir")
		}

		var r *report.Report
		if len(args) == 1 {
			var err error
			// Parse before opening the journal so a bad file fails fast.
			if r, err = report.ReadFile(args[0]); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		store, err := openJournal(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		out := cmd.OutOrStdout()

		if r != nil {
			added, err := store.Import(ctx, r.Records)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d of %d takes.\n", added, len(r.Records))
			return nil
		}

		ib := &inbox.Inbox{Dir: importDir, Store: store, Logger: logger.Named("inbox")}
		res, err := ib.Scan(ctx)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			warn(cmd, "%s", w)
		}
		fmt.Fprintf(out, "Imported %d new takes from %d reports.\n", res.Added, res.Files)
		if !importWatch {
			return nil
		}

		fmt.Fprintf(out, "Watching %s for new reports (Ctrl-C to stop)...\n", importDir)
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		return ib.Watch(sigCtx, func(path string, added int, err error) {
			if err != nil {
				warn(cmd, "%s", err)
				return
			}
			fmt.Fprintf(out, "%s: %d new takes\n", path, added)
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", "", "import every report in this folder")
	importCmd.Flags().BoolVar(&importWatch, "watch", false, "with --dir, keep importing new reports until interrupted")
	rootCmd.AddCommand(importCmd)
}
