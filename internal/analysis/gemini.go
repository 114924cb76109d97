package analysis

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/fakeyudi/encore/internal/capture"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini analyzes both audio and notes with the Gemini API, constraining the
// reply with a JSON response schema.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini analyzer for apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key not set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

var durationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"playingTimeInSeconds": {
			Type:        genai.TypeInteger,
			Description: "Actual playing time in seconds, excluding silence and non-playing sounds.",
		},
	},
	Required: []string{"playingTimeInSeconds"},
}

var notesSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {
			Type:        genai.TypeString,
			Description: "A creative, concise title for the practice session.",
		},
		"summary": {
			Type:        genai.TypeString,
			Description: "A short, encouraging summary of the session (1-2 sentences).",
		},
	},
	Required: []string{"title", "summary"},
}

func (g *Gemini) AnalyzeDuration(ctx context.Context, a *capture.Artifact) (Duration, error) {
	if a.Size() == 0 {
		return Duration{}, fail("gemini", "duration", errors.New("empty recording"))
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(a.Data, a.ContentType),
			genai.NewPartFromText(durationPrompt),
		}, genai.RoleUser),
	}
	text, err := g.generate(ctx, contents, durationSchema)
	if err != nil {
		return Duration{}, fail("gemini", "duration", err)
	}
	d, err := parseDuration(text)
	if err != nil {
		return Duration{}, fail("gemini", "duration", err)
	}
	return d, nil
}

func (g *Gemini) AnalyzeNotes(ctx context.Context, notes string) (Notes, error) {
	text, err := g.generate(ctx, genai.Text(notesPrompt(notes)), notesSchema)
	if err != nil {
		return Notes{}, fail("gemini", "notes", err)
	}
	n, err := parseNotes(text)
	if err != nil {
		return Notes{}, fail("gemini", "notes", err)
	}
	return n, nil
}

func (g *Gemini) generate(ctx context.Context, contents []*genai.Content, schema *genai.Schema) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
