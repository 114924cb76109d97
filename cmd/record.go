package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/fakeyudi/encore/internal/analysis"
	"github.com/fakeyudi/encore/internal/capture"
	"github.com/fakeyudi/encore/internal/journal"
	"github.com/fakeyudi/encore/internal/session"
	"github.com/fakeyudi/encore/internal/tui"
	"github.com/spf13/cobra"
)

var (
	recordFor        time.Duration
	recordTitle      string
	recordInstrument string
	recordNotes      string
	recordSuggest    bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a practice take and save it to the journal",
	Long: `Record a practice take and save it to the journal.

Without --for, a full-screen recorder opens. With --for, encore records for
the given duration (Ctrl-C stops early), then saves the take using the
--title, --instrument and --notes flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if recordFor <= 0 && !term.IsTerminal(os.Stdin.Fd()) {
			return errors.New("record needs a terminal; use --for to record without one")
		}

		store, err := openJournal(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ctrl, err := newController(ctx, store)
		if err != nil {
			return err
		}

		if recordFor > 0 {
			r, err := recordHeadless(cmd, ctrl)
			if err != nil {
				return err
			}
			reportSaved(cmd, store, r)
			return nil
		}

		saved, err := tui.RunRecorder(ctx, ctrl)
		if err != nil {
			return err
		}
		for _, r := range saved {
			reportSaved(cmd, store, r)
		}
		return nil
	},
}

func reportSaved(cmd *cobra.Command, store *journal.Store, r session.Record) {
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %q: %s of playing (%s)\n", r.Title, journal.FormatHuman(r.DurationSeconds), r.ID)
	if store.HasAudio() && r.Audio != nil && !store.KeepsAudio(r.Audio) {
		warn(cmd, "%q is too long to keep its audio; saved without it", r.Title)
	}
}

// newController wires a controller to the configured recorder, analyzers
// and sink.
func newController(ctx context.Context, sink session.Sink) (*session.Controller, error) {
	ai, err := analysis.New(ctx, analysis.Options{
		Provider:        cfg.AI.Provider,
		Model:           cfg.AI.Model,
		AudioModel:      cfg.AI.AudioModel,
		GeminiAPIKey:    cfg.AI.GeminiAPIKey,
		OpenAIAPIKey:    cfg.AI.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AI.AnthropicAPIKey,
		Timeout:         time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		MockLatency:     time.Duration(cfg.AI.MockLatencyMS) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring analysis: %w", err)
	}

	instrument := ""
	if activeProfile != nil {
		instrument = activeProfile.Instrument
	}
	return session.New(session.Config{
		Recorder:          capture.New(capture.NewCommandSource(cfg.Recorder.Command, cfg.Recorder.ContentType)),
		Durations:         ai.Durations,
		Notes:             ai.Notes,
		Sink:              sink,
		Logger:            logger.Named("session"),
		DefaultInstrument: instrument,
	}), nil
}

// recordHeadless records for recordFor, then fills in the metadata from
// flags and saves. If the journal refuses the take its audio is written to
// the unsaved folder before the take is discarded.
func recordHeadless(cmd *cobra.Command, ctrl *session.Controller) (session.Record, error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if err := ctrl.Start(ctx); err != nil {
		return session.Record{}, err
	}
	fmt.Fprintf(out, "Recording for %s (Ctrl-C to stop early)...\n", recordFor)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	timer := time.NewTimer(recordFor)
	select {
	case <-timer.C:
	case <-sigCtx.Done():
	}
	timer.Stop()
	stop()

	if err := ctrl.Stop(ctx); err != nil {
		return session.Record{}, err
	}
	<-ctrl.Settled()

	rec, ok := ctrl.State().(session.Recorded)
	if !ok {
		return session.Record{}, errors.New("take was discarded before it could be saved")
	}
	if rec.Warning != nil {
		warn(cmd, "%s", rec.Warning)
	}

	// The take is in recorded, so the setters cannot fail.
	if recordInstrument != "" {
		_ = ctrl.SetInstrument(recordInstrument)
	}
	if recordNotes != "" {
		_ = ctrl.SetNotes(recordNotes)
	}
	if recordSuggest {
		if _, err := ctrl.AnalyzeNotes(ctx); err != nil {
			warn(cmd, "could not suggest a title: %s", err)
		}
	}
	if recordTitle != "" {
		_ = ctrl.SetTitle(recordTitle)
	}

	r, err := ctrl.Save(ctx)
	if err == nil {
		return r, nil
	}
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		_ = ctrl.Discard()
		if verr.Has(session.FieldTitle) {
			return session.Record{}, fmt.Errorf("%w (pass --title, or --notes with --suggest)", err)
		}
		return session.Record{}, err
	}

	path, kerr := keepUnsaved(rec.Artifact)
	_ = ctrl.Discard()
	if kerr != nil {
		return session.Record{}, fmt.Errorf("%w; the take was lost: %w", err, kerr)
	}
	return session.Record{}, fmt.Errorf("%w; the take's audio was kept at %s", err, path)
}

func init() {
	recordCmd.Flags().DurationVar(&recordFor, "for", 0, "record for this long without the TUI, e.g. 20m")
	recordCmd.Flags().StringVar(&recordTitle, "title", "", "title of the take (with --for)")
	recordCmd.Flags().StringVar(&recordInstrument, "instrument", "", "instrument played (defaults to the profile's)")
	recordCmd.Flags().StringVar(&recordNotes, "notes", "", "practice notes (with --for)")
	recordCmd.Flags().BoolVar(&recordSuggest, "suggest", false, "suggest a title and summary from --notes")
	rootCmd.AddCommand(recordCmd)
}
