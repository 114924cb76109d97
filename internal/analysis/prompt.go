package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const durationPrompt = `This audio file is a recording of an instrument practice session. ` +
	`Analyze it and report only the pure playing time: the total number of seconds in which the instrument is actually sounding. ` +
	`Exclude silence between passages, speech, coughing and any other non-playing sound. ` +
	`Reply with a JSON object with a single key "playingTimeInSeconds" whose value is an integer.`

const notesSystemPrompt = `You help musicians keep a practice journal. ` +
	`Always reply with a JSON object with exactly two string keys: "title" and "summary".`

func notesPrompt(notes string) string {
	return fmt.Sprintf(`The following are a musician's practice notes. `+
		`Based on them, write a creative, concise title for the practice record `+
		`and a short, encouraging summary of the session (1-2 sentences). Notes: %q`, notes)
}

// stripFences removes a surrounding Markdown code fence, which some models add
// even when asked for bare JSON.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// MaxPlayingSeconds bounds a reported playing time. No take runs longer than
// a day.
const MaxPlayingSeconds = 24 * 60 * 60

func parseDuration(text string) (Duration, error) {
	var raw struct {
		PlayingTimeSeconds *json.Number `json:"playingTimeInSeconds"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return Duration{}, fmt.Errorf("invalid JSON response: %w", err)
	}
	if raw.PlayingTimeSeconds == nil {
		return Duration{}, errors.New("invalid JSON structure: missing playingTimeInSeconds")
	}
	f, err := raw.PlayingTimeSeconds.Float64()
	if err != nil {
		return Duration{}, fmt.Errorf("invalid playingTimeInSeconds: %w", err)
	}
	if f < 0 {
		return Duration{}, fmt.Errorf("invalid playingTimeInSeconds: negative value %v", f)
	}
	if f > MaxPlayingSeconds {
		return Duration{}, fmt.Errorf("invalid playingTimeInSeconds: %v exceeds %d", f, MaxPlayingSeconds)
	}
	return Duration{PlayingTimeSeconds: int(f + 0.5)}, nil
}

func parseNotes(text string) (Notes, error) {
	var raw struct {
		Title   *string `json:"title"`
		Summary *string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return Notes{}, fmt.Errorf("invalid JSON response: %w", err)
	}
	if raw.Title == nil || raw.Summary == nil {
		return Notes{}, errors.New("invalid JSON structure: title and summary are required")
	}
	return Notes{Title: strings.TrimSpace(*raw.Title), Summary: strings.TrimSpace(*raw.Summary)}, nil
}
