package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/fakeyudi/encore/internal/capture"
)

// Provider names accepted by New.
const (
	ProviderMock      = "mock"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Options selects and configures the analyzers.
type Options struct {
	Provider   string
	Model      string // notes model
	AudioModel string // duration model, Gemini only

	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	Timeout     time.Duration
	MockLatency time.Duration
}

// Analyzers is the pair handed to the session controller.
type Analyzers struct {
	Durations DurationAnalyzer
	Notes     NotesAnalyzer
}

// New builds the analyzers for opts.Provider. Only Gemini accepts audio, so
// the OpenAI and Anthropic providers analyze durations with Gemini when a
// Gemini key is present and with Mock otherwise.
func New(ctx context.Context, opts Options) (Analyzers, error) {
	mock := &Mock{Latency: opts.MockLatency}
	var out Analyzers

	switch opts.Provider {
	case "", ProviderMock:
		out = Analyzers{Durations: mock, Notes: mock}
	case ProviderGemini:
		g, err := NewGemini(ctx, opts.GeminiAPIKey, opts.Model)
		if err != nil {
			return Analyzers{}, err
		}
		out.Notes = g
		out.Durations = g
		if opts.AudioModel != "" && opts.AudioModel != g.model {
			out.Durations = &Gemini{client: g.client, model: opts.AudioModel}
		}
	case ProviderOpenAI:
		o, err := NewOpenAI(opts.OpenAIAPIKey, opts.Model)
		if err != nil {
			return Analyzers{}, err
		}
		out.Notes = o
	case ProviderAnthropic:
		a, err := NewAnthropic(opts.AnthropicAPIKey, opts.Model)
		if err != nil {
			return Analyzers{}, err
		}
		out.Notes = a
	default:
		return Analyzers{}, fmt.Errorf("unknown analysis provider %q", opts.Provider)
	}

	if out.Durations == nil {
		out.Durations = mock
		if opts.GeminiAPIKey != "" {
			g, err := NewGemini(ctx, opts.GeminiAPIKey, opts.AudioModel)
			if err != nil {
				return Analyzers{}, err
			}
			out.Durations = g
		}
	}

	if opts.Timeout > 0 {
		out.Durations = timeoutDurations{next: out.Durations, d: opts.Timeout}
		out.Notes = timeoutNotes{next: out.Notes, d: opts.Timeout}
	}
	return out, nil
}

type timeoutDurations struct {
	next DurationAnalyzer
	d    time.Duration
}

func (t timeoutDurations) AnalyzeDuration(ctx context.Context, a *capture.Artifact) (Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.AnalyzeDuration(ctx, a)
}

type timeoutNotes struct {
	next NotesAnalyzer
	d    time.Duration
}

func (t timeoutNotes) AnalyzeNotes(ctx context.Context, notes string) (Notes, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.AnalyzeNotes(ctx, notes)
}
