package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractText concatenates all text content blocks from a message response.
func ExtractText(resp *MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// CleanJSON extracts a JSON object from model output that may contain
// markdown code fences or surrounding prose. Returns the first-{ to last-}
// span, or the trimmed input when no braces are found.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// DecodeJSON parses the JSON object embedded in a message response into out.
// Empty responses and malformed payloads are returned as errors so callers
// can substitute their documented default.
func DecodeJSON(resp *MessageResponse, out any) error {
	text := ExtractText(resp)
	if strings.TrimSpace(text) == "" {
		return eris.New("anthropic: empty response")
	}
	if err := json.Unmarshal([]byte(CleanJSON(text)), out); err != nil {
		return eris.Wrap(err, "anthropic: parse response json")
	}
	return nil
}
