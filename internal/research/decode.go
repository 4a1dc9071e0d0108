package research

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"concierge/internal/queue"
)

type findingPayload struct {
	Found      *bool    `json:"found"`
	Summary    string   `json:"summary"`
	Occupation string   `json:"occupation"`
	Company    string   `json:"company"`
	Location   string   `json:"location"`
	Followers  int64    `json:"followers"`
	NetWorth   string   `json:"net_worth"`
	VIPScore   *float64 `json:"vip_score"`
	Sources    []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"sources"`
}

// ParseFinding decodes a model answer into a Finding. An explicit
// "found": false, or an answer with no summary, yields ErrNoData.
func ParseFinding(content string) (Finding, error) {
	var payload findingPayload
	if err := DecodeJSON(content, &payload); err != nil {
		return Finding{}, fmt.Errorf("parse finding: %w", err)
	}
	if payload.Found != nil && !*payload.Found {
		return Finding{}, ErrNoData
	}
	finding := Finding{
		Summary:    strings.TrimSpace(payload.Summary),
		Occupation: strings.TrimSpace(payload.Occupation),
		Company:    strings.TrimSpace(payload.Company),
		Location:   strings.TrimSpace(payload.Location),
		NetWorth:   strings.TrimSpace(payload.NetWorth),
		Followers:  max(payload.Followers, 0),
		VIPScore:   payload.VIPScore,
	}
	if finding.Summary == "" && finding.Occupation == "" {
		return Finding{}, ErrNoData
	}
	for _, src := range payload.Sources {
		finding.Sources = appendSource(finding.Sources, queue.Source{Title: src.Title, URL: src.URL})
	}
	return finding, nil
}

func appendSource(sources []queue.Source, src queue.Source) []queue.Source {
	src.URL = strings.TrimSpace(src.URL)
	src.Title = strings.TrimSpace(src.Title)
	if src.URL == "" {
		return sources
	}
	for _, existing := range sources {
		if existing.URL == src.URL {
			return sources
		}
	}
	return append(sources, src)
}

// DecodeJSON decodes JSON from a model response, tolerating code fences and
// prose around the object.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" || trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
