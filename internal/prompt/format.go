// internal/prompt/format.go
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
)

// FormatResult is the text handed back to the user. Parsed is true when the
// text was re-indented as JSON and false when it passed through unchanged.
type FormatResult struct {
	Text     string `json:"text"`
	Parsed   bool   `json:"parsed"`
	ParseErr error  `json:"-"`
}

// FormatOutput pretty-prints JSON-mode responses with a two-space indent.
// Text that is not valid JSON, Markdown output and empty text are returned
// unchanged.
func FormatOutput(text string, format models.OutputFormat) FormatResult {
	if format != models.FormatJSON || text == "" {
		return FormatResult{Text: text}
	}

	// Indent keeps the key order of the response and fails on invalid JSON.
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(text)), "", "  "); err != nil {
		return FormatResult{Text: text, ParseErr: err}
	}
	return FormatResult{Text: buf.String(), Parsed: true}
}

// DecodeScenes reads a JSON-mode response into its scene items.
func DecodeScenes(text string) ([]models.PromptScene, error) {
	var scenes []models.PromptScene
	if err := json.Unmarshal([]byte(text), &scenes); err != nil {
		return nil, fmt.Errorf("decode prompt scenes: %w", err)
	}
	return scenes, nil
}
