// Package promptgen synthesizes per-slide generation prompts by showing
// the slide artwork to a vision model and asking it to describe where and
// how the child character belongs in the scene.
package promptgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the vision model replies with no
	// usable content.
	ErrEmptyResponse = errors.New("vision model returned an empty response")
	// ErrResponseParse is returned when the reply cannot be parsed into a
	// prompt.
	ErrResponseParse = errors.New("could not parse vision model response")
)

// PromptResult is the structured reply the templates ask the model to
// emit. Rationale is optional commentary on why the prompt fits the
// scene; only Prompt is required.
type PromptResult struct {
	Prompt    string `json:"prompt"`
	Rationale string `json:"rationale,omitempty"`
}

// ExtractJSONBlock pulls a JSON object out of a model reply. Models wrap
// JSON in markdown fences or chat prose more often than not, so this
// strips fences and falls back to the outermost brace pair.
//
// Example:
//
//	ExtractJSONBlock("```json\n{\"prompt\": \"x\"}\n```") // {"prompt": "x"}
func ExtractJSONBlock(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// ParsePromptResponse extracts the structured prompt from a model
// reply. The reply must be a JSON object carrying a non-empty prompt;
// anything else is a parse failure.
func ParsePromptResponse(reply string) (*PromptResult, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, ErrEmptyResponse
	}

	block := ExtractJSONBlock(reply)
	var parsed PromptResult
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrResponseParse, err)
	}
	parsed.Prompt = strings.TrimSpace(parsed.Prompt)
	parsed.Rationale = strings.TrimSpace(parsed.Rationale)
	if parsed.Prompt == "" {
		return nil, fmt.Errorf("%w: JSON reply missing prompt field", ErrResponseParse)
	}
	return &parsed, nil
}
