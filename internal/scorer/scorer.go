// Package scorer turns free-form lead text into a bounded confidence
// score by asking an external judgment model.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/pkg/anthropic"
)

const systemPrompt = "You score posts for PCA service lead quality."

const rubricPrompt = `You are a lead qualification assistant for a home care agency that provides PCA (Personal Care Assistant) and Homemaker Companion services in New Haven County, Connecticut.

Your task is to analyze posts to determine how likely they represent a **qualified, local lead** for our services.

Score each post from **0 to 100** based on:

1. **Caregiving Need** - Does the post describe a need for caregiving, senior support, in-home assistance, or mention a family member who needs care?
2. **Location Relevance** - Does the post explicitly or implicitly relate to New Haven County or nearby areas in Connecticut?
3. **Lead Intent** - Does the post suggest that the author or someone they know is actively looking for help or open to services?
4. **Actionability** - Is there enough detail that someone could reasonably follow up?

Do **not** score high for vague rants, general info-sharing, or non-local discussions.

Only return a JSON object in this format (no extra text):

{
  "confidence_score": 0-100,
  "reason": "Explain in 1-2 sentences why this score was given, including location and care relevance."
}

Post:
%s`

// jsonObject matches the first embedded JSON object in a model reply.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Scorer calls the judgment model and parses its reply.
type Scorer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Scorer using the given model.
func New(client anthropic.Client, model string, maxTokens int64) *Scorer {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Scorer{client: client, model: model, maxTokens: maxTokens}
}

// Score evaluates lead text and returns a confidence score in [0,100]
// with a short rationale. Scoring never fails the pipeline: any
// API or parse problem degrades to (0, diagnostic reason) so the lead
// is naturally pruned rather than blocking ingestion.
func (s *Scorer) Score(ctx context.Context, text string) (int, string) {
	temp := 0.3
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(rubricPrompt, text)},
		},
	})
	if err != nil {
		zap.L().Warn("scorer: judgment call failed", zap.Error(err))
		return 0, "scoring call failed: " + err.Error()
	}

	return parseReply(resp.Text())
}

// parseReply extracts {"confidence_score": N, "reason": ...} from a
// free-text reply. Missing or non-numeric scores collapse to 0.
func parseReply(raw string) (int, string) {
	match := jsonObject.FindString(raw)
	if match == "" {
		zap.L().Warn("scorer: no JSON object in reply", zap.String("raw", raw))
		return 0, "judgment reply contained no JSON object"
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		zap.L().Warn("scorer: unparseable JSON in reply", zap.Error(err))
		return 0, "judgment reply JSON unreadable: " + err.Error()
	}

	score := 0
	if raw, ok := payload["confidence_score"]; ok {
		if f, ok := raw.(float64); ok {
			score = int(f)
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	reason, _ := payload["reason"].(string)
	if reason == "" {
		reason = "no reason given"
	}
	return score, reason
}
