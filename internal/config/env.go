package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// env keys and the variables that feed them, first match wins.
var envBindings = map[string][]string{
	"default_format":        {"ENCORE_DEFAULT_FORMAT"},
	"output_dir":            {"ENCORE_OUTPUT_DIR"},
	"data_dir":              {"ENCORE_DATA_DIR"},
	"keep_audio":            {"ENCORE_KEEP_AUDIO"},
	"log_level":             {"ENCORE_LOG_LEVEL"},
	"recorder.command":      {"ENCORE_RECORDER_COMMAND"},
	"recorder.content_type": {"ENCORE_RECORDER_CONTENT_TYPE"},
	"ai.provider":           {"ENCORE_AI_PROVIDER"},
	"ai.model":              {"ENCORE_AI_MODEL"},
	"ai.audio_model":        {"ENCORE_AI_AUDIO_MODEL"},
	"ai.timeout_seconds":    {"ENCORE_AI_TIMEOUT_SECONDS"},
	"ai.mock_latency_ms":    {"ENCORE_AI_MOCK_LATENCY_MS"},
	"ai.gemini_api_key":     {"ENCORE_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"},
	"ai.openai_api_key":     {"ENCORE_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"ai.anthropic_api_key":  {"ENCORE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables on c. Environment wins over both
// config files.
func ApplyEnv(c *Config) error {
	v := viper.New()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = strings.TrimSpace(v.GetString(key))
		}
	}
	str("default_format", &c.DefaultFormat)
	str("output_dir", &c.OutputDir)
	str("data_dir", &c.DataDir)
	str("log_level", &c.LogLevel)
	str("recorder.content_type", &c.Recorder.ContentType)
	str("ai.provider", &c.AI.Provider)
	str("ai.model", &c.AI.Model)
	str("ai.audio_model", &c.AI.AudioModel)
	str("ai.gemini_api_key", &c.AI.GeminiAPIKey)
	str("ai.openai_api_key", &c.AI.OpenAIAPIKey)
	str("ai.anthropic_api_key", &c.AI.AnthropicAPIKey)

	if v.IsSet("recorder.command") {
		c.Recorder.Command = strings.Fields(v.GetString("recorder.command"))
	}
	if v.IsSet("keep_audio") {
		keep := v.GetBool("keep_audio")
		c.KeepAudio = &keep
	}
	if v.IsSet("ai.timeout_seconds") {
		c.AI.TimeoutSeconds = v.GetInt("ai.timeout_seconds")
	}
	if v.IsSet("ai.mock_latency_ms") {
		c.AI.MockLatencyMS = v.GetInt("ai.mock_latency_ms")
	}
	return nil
}
