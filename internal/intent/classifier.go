// Package intent turns a free-text query plus context flags into a
// structured action plan. Classification is two-tier: deterministic
// keyword rules for unambiguous phrasings, a language model for the
// rest, with the keyword rules as the mandatory fallback.
package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okabe/vidql/internal/capability"
	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/logging"
	"github.com/okabe/vidql/internal/metrics"
)

// Source tags how an intent was resolved.
type Source string

const (
	SourceRule     Source = "rule"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// ContextFlags tells the classifier what analysis state the session
// already holds.
type ContextFlags struct {
	HasTranscription bool
	HasVision        bool
}

// Classifier resolves queries to intents. The language client may be
// nil, in which case every non-document query resolves by keywords.
type Classifier struct {
	language *capability.LanguageClient
	model    string
	log      *logging.Logger
}

// NewClassifier creates a classifier backed by the given language client.
func NewClassifier(language *capability.LanguageClient, model string) *Classifier {
	return &Classifier{
		language: language,
		model:    model,
		log:      logging.New("intent"),
	}
}

const availableActions = `
- transcribe: Extract speech-to-text from video
- detect_objects: Find and identify objects in video frames
- describe_scenes: Generate natural language descriptions of video content
- generate_pdf: Create PDF report from analysis
- generate_pptx: Create PowerPoint presentation
- summarize: Summarize previous analysis or conversation
- respond: Answer from existing context without new analysis
`

func classifyPrompt(query string, flags ContextFlags) string {
	return fmt.Sprintf(`You are an AI assistant analyzing user queries about video content.
Your task is to determine what actions are needed to answer the query.

Available actions:
%s
Current context:
- Transcription available: %t
- Vision analysis available: %t

Based on the user query, respond with a JSON object containing:
{
    "primary_action": "action_name",
    "additional_actions": ["action1", "action2"],
    "needs_clarification": false,
    "clarification_question": "",
    "reasoning": "brief explanation"
}

If the query is ambiguous, set needs_clarification to true and provide a clarification question.
If no new actions needed (just answering from context), set primary_action to "respond".

User query: %s`, availableActions, flags.HasTranscription, flags.HasVision, query)
}

// Classify resolves a query to an intent. It never returns an error:
// any model or parsing failure degrades to the keyword rules, which
// always produce a valid intent.
func (c *Classifier) Classify(ctx context.Context, query string, flags ContextFlags) (domain.Intent, Source) {
	// Document requests resolve by rule alone, before any model call.
	if action, ok := wantsDocument(query); ok {
		c.log.Debug("rule_match", map[string]interface{}{"action": string(action)})
		metrics.Global().RecordIntent(false, false)
		return domain.Intent{
			PrimaryAction: action,
			Reasoning:     "document generation keyword match",
		}, SourceRule
	}

	if c.language == nil {
		metrics.Global().RecordIntent(false, true)
		return classifyByKeywords(query), SourceFallback
	}

	text, err := c.language.Complete(ctx, capability.CompletionRequest{
		Prompt:      classifyPrompt(query, flags),
		Model:       c.model,
		MaxTokens:   256,
		Temperature: 0.3,
		Stop:        []string{"User:", "\n\n\n"},
	})
	if err != nil {
		c.log.Warn("model_classification_failed", nil, err)
		metrics.Global().RecordIntent(true, true)
		return classifyByKeywords(query), SourceFallback
	}

	intent, ok := parseIntent(text)
	if !ok {
		c.log.Debug("model_output_unparseable", map[string]interface{}{"query": query})
		metrics.Global().RecordIntent(true, true)
		return classifyByKeywords(query), SourceFallback
	}

	metrics.Global().RecordIntent(true, false)
	return intent, SourceModel
}

// parseIntent extracts and validates the first balanced JSON object in
// model output.
func parseIntent(text string) (domain.Intent, bool) {
	span, ok := extractJSONObject(text)
	if !ok {
		return domain.Intent{}, false
	}

	var raw struct {
		PrimaryAction         string   `json:"primary_action"`
		AdditionalActions     []string `json:"additional_actions"`
		NeedsClarification    bool     `json:"needs_clarification"`
		ClarificationQuestion string   `json:"clarification_question"`
		Reasoning             string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return domain.Intent{}, false
	}
	if !domain.KnownAction(raw.PrimaryAction) {
		return domain.Intent{}, false
	}

	intent := domain.Intent{
		PrimaryAction:         domain.Action(raw.PrimaryAction),
		NeedsClarification:    raw.NeedsClarification,
		ClarificationQuestion: raw.ClarificationQuestion,
		Reasoning:             raw.Reasoning,
	}
	for _, a := range raw.AdditionalActions {
		if domain.KnownAction(a) {
			intent.AdditionalActions = append(intent.AdditionalActions, domain.Action(a))
		}
	}
	return intent, true
}

// extractJSONObject returns the first balanced {...} span in text,
// tolerating surrounding prose and braces inside string literals.
func extractJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range text {
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", false
}
