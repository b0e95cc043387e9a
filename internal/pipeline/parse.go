package pipeline

import (
	"encoding/json"
	"strings"
)

// ParseOutcome is the tagged result of decoding a generation response.
// Parsing never panics and never returns an error type; a bad response
// produces OK=false with a reason, keeping per-URL failures local.
type ParseOutcome struct {
	OK           bool
	Headlines    []string
	Descriptions []string
	Reason       string
}

// ParseCopyResponse decodes the generation provider's response text into a
// headline/description pair. It strips an optional surrounding code fence,
// locates the first well-formed braces-delimited object, and requires both
// array fields to be present. Each list is truncated to its maximum count.
func ParseCopyResponse(raw string, maxHeadlines, maxDescriptions int) ParseOutcome {
	text := stripCodeFence(strings.TrimSpace(raw))

	object, ok := extractObject(text)
	if !ok {
		return ParseOutcome{Reason: "no braces-delimited object in response"}
	}

	var fields struct {
		Headlines    []string `json:"headlines"`
		Descriptions []string `json:"descriptions"`
	}
	if err := json.Unmarshal([]byte(object), &fields); err != nil {
		return ParseOutcome{Reason: "response object is not valid JSON: " + err.Error()}
	}
	if fields.Headlines == nil || fields.Descriptions == nil {
		return ParseOutcome{Reason: "response object lacks headlines/descriptions arrays"}
	}

	return ParseOutcome{
		OK:           true,
		Headlines:    truncate(fields.Headlines, maxHeadlines),
		Descriptions: truncate(fields.Descriptions, maxDescriptions),
	}
}

// stripCodeFence removes a surrounding markdown fence such as ```json ... ```.
// Text without a leading fence is returned unchanged.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if idx := strings.Index(body, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		body = body[idx+1:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// extractObject returns the substring from the first '{' to its matching
// closing '}', tracking JSON string and escape state so braces inside
// headline text do not unbalance the scan.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func truncate(items []string, limit int) []string {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
