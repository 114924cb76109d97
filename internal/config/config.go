package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Config holds all configurable encore settings.
type Config struct {
	DefaultFormat string `json:"default_format" validate:"omitempty,oneof=markdown json"`
	OutputDir     string `json:"output_dir"`
	DataDir       string `json:"data_dir"` // override the XDG data directory
	KeepAudio     *bool  `json:"keep_audio,omitempty"`
	LogLevel      string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// PeerAverages are daily peer practice seconds, Sunday first.
	PeerAverages []int    `json:"peer_averages,omitempty" validate:"omitempty,len=7,dive,gte=0"`
	Recorder     Recorder `json:"recorder"`
	AI           AI       `json:"ai"`
}

// Recorder configures the external audio capture command.
type Recorder struct {
	Command     []string `json:"command,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
}

// AI configures the analysis provider. API keys come only from the
// environment.
type AI struct {
	Provider       string `json:"provider" validate:"omitempty,oneof=mock gemini openai anthropic"`
	Model          string `json:"model,omitempty"`
	AudioModel     string `json:"audio_model,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"gte=0"`
	MockLatencyMS  int    `json:"mock_latency_ms,omitempty" validate:"gte=0"`

	GeminiAPIKey    string `json:"-"`
	OpenAIAPIKey    string `json:"-"`
	AnthropicAPIKey string `json:"-"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		DefaultFormat: "markdown",
		OutputDir:     ".",
		LogLevel:      "info",
		AI: AI{
			Provider:       "mock",
			TimeoutSeconds: 60,
		},
	}
}

// KeepsAudio reports whether takes should be stored. Defaults to true.
func (c Config) KeepsAudio() bool {
	return c.KeepAudio == nil || *c.KeepAudio
}

// GlobalPath is the location of the global config file.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "encore", "config.json"), nil
}

// ProjectFile is the per-directory config file name.
const ProjectFile = ".encoreconfig"

// LoadGlobal reads ~/.config/encore/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .encoreconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(ProjectFile, false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, c := range []*Config{global, project} {
		if c != nil {
			overlay(&result, c)
		}
	}
	return result
}

func overlay(dst, src *Config) {
	setString(&dst.DefaultFormat, src.DefaultFormat)
	setString(&dst.OutputDir, src.OutputDir)
	setString(&dst.DataDir, src.DataDir)
	setString(&dst.LogLevel, src.LogLevel)
	if src.KeepAudio != nil {
		v := *src.KeepAudio
		dst.KeepAudio = &v
	}
	if len(src.PeerAverages) > 0 {
		dst.PeerAverages = append([]int(nil), src.PeerAverages...)
	}
	if len(src.Recorder.Command) > 0 {
		dst.Recorder.Command = append([]string(nil), src.Recorder.Command...)
	}
	setString(&dst.Recorder.ContentType, src.Recorder.ContentType)

	setString(&dst.AI.Provider, src.AI.Provider)
	setString(&dst.AI.Model, src.AI.Model)
	setString(&dst.AI.AudioModel, src.AI.AudioModel)
	if src.AI.TimeoutSeconds > 0 {
		dst.AI.TimeoutSeconds = src.AI.TimeoutSeconds
	}
	if src.AI.MockLatencyMS > 0 {
		dst.AI.MockLatencyMS = src.AI.MockLatencyMS
	}
	setString(&dst.AI.GeminiAPIKey, src.AI.GeminiAPIKey)
	setString(&dst.AI.OpenAIAPIKey, src.AI.OpenAIAPIKey)
	setString(&dst.AI.AnthropicAPIKey, src.AI.AnthropicAPIKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

var validate = validator.New()

// Validate checks field constraints on a merged config.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
