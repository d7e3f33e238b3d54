package intent

import (
	"strings"

	"github.com/okabe/vidql/internal/domain"
)

// Keyword groups for the rule classifier. Rule order is a design
// invariant: document rules run first so they never incur model latency,
// graph rules run before generic object detection so charts are
// described rather than merely detected.
var (
	transcribeWords = []string{"transcribe", "transcript", "transcription"}
	speechWords     = []string{"what was said", "what did", "speech", "audio", "spoken"}
	graphWords      = []string{"graph", "chart", "plot", "diagram"}
	objectWords     = []string{"object", "detect", "identify", "items", "see"}
	describeWords   = []string{"describe", "what's happening", "what is happening"}
	summaryWords    = []string{"summary", "summarize", "summarise", "overview", "recap"}
)

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// wantsDocument applies the document pre-check rules. These two rules
// are evaluated before any model call.
func wantsDocument(query string) (domain.Action, bool) {
	q := strings.ToLower(query)

	if strings.Contains(q, "pdf") || (strings.Contains(q, "generate") && strings.Contains(q, "report")) {
		return domain.ActionGeneratePDF, true
	}
	if strings.Contains(q, "pptx") || strings.Contains(q, "powerpoint") ||
		(strings.Contains(q, "generate") && strings.Contains(q, "presentation")) {
		return domain.ActionGeneratePPTX, true
	}
	return "", false
}

// classifyByKeywords resolves a query with keyword rules alone. It
// always produces a valid intent, defaulting to respond.
func classifyByKeywords(query string) domain.Intent {
	q := strings.ToLower(query)

	intent := domain.Intent{
		PrimaryAction: domain.ActionRespond,
		Reasoning:     "keyword-based fallback",
	}

	switch {
	case strings.Contains(q, "pdf") || (strings.Contains(q, "generate") && strings.Contains(q, "report")):
		intent.PrimaryAction = domain.ActionGeneratePDF
	case strings.Contains(q, "pptx") || strings.Contains(q, "powerpoint") ||
		(strings.Contains(q, "generate") && strings.Contains(q, "presentation")):
		intent.PrimaryAction = domain.ActionGeneratePPTX
	case containsAny(q, transcribeWords):
		intent.PrimaryAction = domain.ActionTranscribe
	case containsAny(q, speechWords):
		intent.PrimaryAction = domain.ActionTranscribe
	case containsAny(q, graphWords):
		// Graphs are described, not merely detected.
		intent.PrimaryAction = domain.ActionDescribeScenes
		intent.AdditionalActions = []domain.Action{domain.ActionDetectObjects}
	case containsAny(q, objectWords):
		intent.PrimaryAction = domain.ActionDetectObjects
	case containsAny(q, describeWords):
		intent.PrimaryAction = domain.ActionDescribeScenes
	case containsAny(q, summaryWords):
		intent.PrimaryAction = domain.ActionSummarize
	}

	return intent
}
