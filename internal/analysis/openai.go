package analysis

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI analyzes notes with the Chat Completions API in JSON mode.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI notes analyzer. opts are appended after the
// API key, e.g. option.WithBaseURL for compatible endpoints.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

func (o *OpenAI) AnalyzeNotes(ctx context.Context, notes string) (Notes, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(notesSystemPrompt),
			openai.UserMessage(notesPrompt(notes)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return Notes{}, fail("openai", "notes", err)
	}
	if len(completion.Choices) == 0 {
		return Notes{}, fail("openai", "notes", errors.New("empty completion"))
	}
	n, err := parseNotes(completion.Choices[0].Message.Content)
	if err != nil {
		return Notes{}, fail("openai", "notes", err)
	}
	return n, nil
}
