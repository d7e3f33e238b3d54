package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/okabe/vidql/internal/capability"
	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifierWith(mock capability.Invoker) *Classifier {
	return NewClassifier(capability.NewLanguageClient(mock), "test-model")
}

func TestKeywordRules(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		primary    domain.Action
		additional []domain.Action
	}{
		{"pdf request", "make me a pdf of this", domain.ActionGeneratePDF, nil},
		{"generate report", "generate a report please", domain.ActionGeneratePDF, nil},
		{"powerpoint", "create a powerpoint deck", domain.ActionGeneratePPTX, nil},
		{"generate presentation", "generate a presentation", domain.ActionGeneratePPTX, nil},
		{"transcribe", "transcribe the video", domain.ActionTranscribe, nil},
		{"speech", "what was said in the video", domain.ActionTranscribe, nil},
		{"audio", "analyze the audio track", domain.ActionTranscribe, nil},
		{"graphs", "are there any charts shown", domain.ActionDescribeScenes, []domain.Action{domain.ActionDetectObjects}},
		{"objects", "what objects can you find", domain.ActionDetectObjects, nil},
		{"see", "what can you see in the frames", domain.ActionDetectObjects, nil},
		{"describe", "describe the footage", domain.ActionDescribeScenes, nil},
		{"happening", "what is happening here", domain.ActionDescribeScenes, nil},
		{"summary", "give me an overview", domain.ActionSummarize, nil},
		{"recap", "quick recap of everything", domain.ActionSummarize, nil},
		{"no match", "hello there", domain.ActionRespond, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := classifyByKeywords(tt.query)
			assert.Equal(t, tt.primary, intent.PrimaryAction)
			assert.Equal(t, tt.additional, intent.AdditionalActions)
			assert.False(t, intent.NeedsClarification)
		})
	}
}

func TestKeywordRulePriority(t *testing.T) {
	// Earlier-listed rules always win for multi-category queries.
	tests := []struct {
		query   string
		primary domain.Action
	}{
		{"transcribe this into a pdf", domain.ActionGeneratePDF},
		{"make a powerpoint about the objects you detect", domain.ActionGeneratePPTX},
		{"transcribe what you see", domain.ActionTranscribe},
		{"describe the graph", domain.ActionDescribeScenes},
		{"detect objects and describe them", domain.ActionDetectObjects},
		{"describe then summarize", domain.ActionDescribeScenes},
	}

	for _, tt := range tests {
		intent := classifyByKeywords(tt.query)
		assert.Equal(t, tt.primary, intent.PrimaryAction, "query: %s", tt.query)
	}
}

func TestDocumentPreCheckSkipsModel(t *testing.T) {
	mock := testutil.NewMockLanguage(`{"primary_action": "respond"}`)
	c := classifierWith(mock)

	intent, source := c.Classify(context.Background(), "Generate a PDF report", ContextFlags{})

	assert.Equal(t, domain.ActionGeneratePDF, intent.PrimaryAction)
	assert.Equal(t, SourceRule, source)
	assert.Equal(t, 0, mock.CallCount(), "document rules must not call the model")
}

func TestModelClassification(t *testing.T) {
	mock := testutil.NewMockLanguage(
		`Sure, here is the intent: {"primary_action": "detect_objects", "additional_actions": ["describe_scenes"], "needs_clarification": false, "reasoning": "user asks about visuals"} hope that helps`)
	c := classifierWith(mock)

	intent, source := c.Classify(context.Background(), "anything visual going on?", ContextFlags{HasTranscription: true})

	assert.Equal(t, SourceModel, source)
	assert.Equal(t, domain.ActionDetectObjects, intent.PrimaryAction)
	assert.Equal(t, []domain.Action{domain.ActionDescribeScenes}, intent.AdditionalActions)
	assert.Equal(t, 1, mock.CallCount())
}

func TestModelClarification(t *testing.T) {
	mock := testutil.NewMockLanguage(
		`{"primary_action": "respond", "needs_clarification": true, "clarification_question": "Which part of the video?"}`)
	c := classifierWith(mock)

	intent, source := c.Classify(context.Background(), "do the thing", ContextFlags{})

	assert.Equal(t, SourceModel, source)
	assert.True(t, intent.NeedsClarification)
	assert.Equal(t, "Which part of the video?", intent.ClarificationQuestion)
}

func TestMalformedModelOutputFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"no json", "I think you want transcription."},
		{"unbalanced", `{"primary_action": "transcribe"`},
		{"missing primary", `{"additional_actions": ["transcribe"]}`},
		{"unknown action", `{"primary_action": "launch_rocket"}`},
		{"not an object", `["transcribe"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockLanguage(tt.output)
			c := classifierWith(mock)

			intent, source := c.Classify(context.Background(), "transcribe the clip", ContextFlags{})

			assert.Equal(t, SourceFallback, source)
			assert.Equal(t, domain.ActionTranscribe, intent.PrimaryAction)
		})
	}
}

func TestModelErrorFallsBack(t *testing.T) {
	mock := testutil.NewMockInvoker("language").WithError(errors.New("model timeout"))
	c := classifierWith(mock)

	intent, source := c.Classify(context.Background(), "what objects are there", ContextFlags{})

	assert.Equal(t, SourceFallback, source)
	assert.Equal(t, domain.ActionDetectObjects, intent.PrimaryAction)
}

func TestNilLanguageClient(t *testing.T) {
	c := NewClassifier(nil, "")

	intent, source := c.Classify(context.Background(), "summarize the analysis", ContextFlags{})

	assert.Equal(t, SourceFallback, source)
	assert.Equal(t, domain.ActionSummarize, intent.PrimaryAction)
}

func TestClassifierAlwaysValid(t *testing.T) {
	// Whatever happens, the classifier yields a known primary action.
	queries := []string{"", "???", "transcribe", "pdf pptx transcribe summary"}
	c := NewClassifier(nil, "")

	for _, q := range queries {
		intent, _ := c.Classify(context.Background(), q, ContextFlags{})
		assert.True(t, domain.KnownAction(string(intent.PrimaryAction)), "query: %q", q)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`, true},
		{"prose around", `the answer: {"a": 1} done`, `{"a": 1}`, true},
		{"nested", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{"brace in string", `{"a": "}b{"}`, `{"a": "}b{"}`, true},
		{"escaped quote", `{"a": "say \"hi\" {"}`, `{"a": "say \"hi\" {"}`, true},
		{"two objects", `{"a": 1} {"b": 2}`, `{"a": 1}`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"none", `no json here`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.text)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyPromptCarriesFlags(t *testing.T) {
	p := classifyPrompt("what happened", ContextFlags{HasTranscription: true, HasVision: false})
	assert.Contains(t, p, "Transcription available: true")
	assert.Contains(t, p, "Vision analysis available: false")
	assert.Contains(t, p, "what happened")
}
