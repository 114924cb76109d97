package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fakeyudi/encore/internal/journal"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a take from the journal",
	Long: `Delete a take from the journal.

The id may be shortened to any prefix that matches exactly one take, such as
the eight characters shown by 'encore log'.`,
	Args: cobra.ExactArgs(1),
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
		if err := store.Delete(ctx, e.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q (%s).\n", e.Title, e.Timestamp.Format("2006-01-02 15:04"))
		return nil
	},
}

// resolveEntry finds the entry whose id is, or uniquely starts with, ref.
func resolveEntry(ctx context.Context, store *journal.Store, ref string) (journal.Entry, error) {
	e, err := store.Get(ctx, ref)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, journal.ErrNotFound) {
		return journal.Entry{}, err
	}

	all, err := store.List(ctx, journal.Query{})
	if err != nil {
		return journal.Entry{}, err
	}
	var matches []journal.Entry
	for _, e := range all {
		if strings.HasPrefix(e.ID, ref) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return journal.Entry{}, fmt.Errorf("no take with id %s", ref)
	case 1:
		return matches[0], nil
	}
	return journal.Entry{}, fmt.Errorf("id %s is ambiguous: %d takes match", ref, len(matches))
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
