package cmd

import (
	"errors"
	"fmt"
	"mime"
	"os"

	"github.com/fakeyudi/encore/internal/journal"
	"github.com/spf13/cobra"
)

var audioOutput string

var audioCmd = &cobra.Command{
	Use:   "audio <id>",
	Short: "Write the kept audio of a take to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openJournal(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		e, err := resolveEntry(ctx, store, args[0])
		if err != nil {
			return err
		}
		a, err := store.Audio(ctx, e.ID)
		if err != nil {
			if errors.Is(err, journal.ErrNotFound) {
				return fmt.Errorf("no audio kept for %q", e.Title)
			}
			return err
		}

		path := audioOutput
		if path == "" {
			path = "encore-" + shortID(e.ID) + audioExt(a.ContentType)
		}
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Audio written: %s\n", path)
		return nil
	},
}

func audioExt(contentType string) string {
	switch contentType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func init() {
	audioCmd.Flags().StringVarP(&audioOutput, "output", "o", "", "file to write (default encore-<id><ext>)")
	rootCmd.AddCommand(audioCmd)
}
