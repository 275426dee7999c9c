// Package ai implements the language model operations used to score
// postings and enrich leads, backed by the Anthropic Messages API.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

// Models selects the model used by each operation.
type Models struct {
	Decision string
	Extract  string
	Score    string
}

// DefaultModels returns the models used when none are configured.
func DefaultModels() Models {
	return Models{
		Decision: "claude-haiku-4-5-20251001",
		Extract:  "claude-sonnet-4-5-20250929",
		Score:    "claude-haiku-4-5-20251001",
	}
}

func (m Models) withDefaults() Models {
	d := DefaultModels()
	if m.Decision == "" {
		m.Decision = d.Decision
	}
	if m.Extract == "" {
		m.Extract = d.Extract
	}
	if m.Score == "" {
		m.Score = d.Score
	}
	return m
}

var zeroTemp = 0.0

// complete sends a single user prompt and returns the response text.
func complete(ctx context.Context, client anthropic.Client, model string, maxTokens int64, prompt, purpose string) (string, error) {
	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &zeroTemp,
	})
	if err != nil {
		return "", eris.Wrapf(err, "ai: %s", purpose)
	}
	resp.Usage.LogCost(model, purpose)
	return extractText(resp), nil
}

// decode parses a JSON object out of model output into v.
func decode(text string, v any) error {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return eris.New("ai: empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return eris.Wrap(err, "ai: parse json")
	}
	return nil
}

// extractText concatenates all text content blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
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

// cleanJSON extracts a JSON object from text that may contain reasoning
// blocks, markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = enrich.StripThink(text)

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
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
