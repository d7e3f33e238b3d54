// Package synth converts dispatch results and session context into the
// final response text. Deterministic composition is the default so
// answers stay reproducible and grounded in actual results; generative
// synthesis is reserved for queries asking for free-text compression.
package synth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/okabe/vidql/internal/capability"
	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/logging"
	"github.com/okabe/vidql/internal/text"
)

const (
	// emptyFallback is returned when no result key is populated.
	emptyFallback = "Task completed."

	// apology replaces raw error text when errors are the only outcome.
	apology = "I encountered an issue processing your request. Please try again or rephrase your query."

	transcriptExcerptLen = 500
	contextExcerptLen    = 800
	maxObjectClasses     = 10
	maxCaptions          = 3
	maxContextFrames     = 2
)

// displayClasses are object classes that can plausibly show a chart.
var displayClasses = []string{"chart", "graph", "plot", "diagram", "monitor", "tv", "screen"}

// Synthesizer builds response text from heterogeneous action results.
type Synthesizer struct {
	language *capability.LanguageClient
	model    string
	log      *logging.Logger
}

// New creates a synthesizer. The language client may be nil; every
// query then uses deterministic composition.
func New(language *capability.LanguageClient, model string) *Synthesizer {
	return &Synthesizer{
		language: language,
		model:    model,
		log:      logging.New("synth"),
	}
}

// Synthesize produces the response for one completed dispatch.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, intent domain.Intent, results domain.ActionResults, actx domain.AnalysisContext) string {
	q := strings.ToLower(query)

	if s.language != nil && (strings.Contains(q, "summary") || strings.Contains(q, "summarize")) {
		if response, err := s.generative(ctx, results); err == nil {
			return response
		} else {
			s.log.Warn("generative_synthesis_failed", nil, err)
		}
	}

	return s.deterministic(q, results)
}

// generative compresses the results into 2-3 sentences via the language
// capability. Output is truncated to its first paragraph.
func (s *Synthesizer) generative(ctx context.Context, results domain.ActionResults) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following video analysis in 2-3 sentences:

%s

Summary (2-3 sentences only):`, contextText(results))

	completion, err := s.language.Complete(ctx, capability.CompletionRequest{
		Prompt:      prompt,
		Model:       s.model,
		MaxTokens:   150,
		Temperature: 0.5,
		Stop:        []string{"\n\n", "User:"},
	})
	if err != nil {
		return "", err
	}

	completion = strings.TrimSpace(completion)
	if i := strings.Index(completion, "\n\n"); i >= 0 {
		completion = completion[:i]
	}
	return completion, nil
}

// contextText builds the bounded excerpt embedded in the generative prompt.
func contextText(results domain.ActionResults) string {
	var parts []string

	if transcript := resultTranscription(results); transcript != "" {
		parts = append(parts, "Video transcription:\n"+text.Clip(transcript, contextExcerptLen))
	}

	if frames := resultFrames(results); len(frames) > 0 {
		parts = append(parts, fmt.Sprintf("\nVisual analysis: Analyzed %d frames from the video", len(frames)))
		for i, f := range frames {
			if i >= maxContextFrames {
				break
			}
			frame, ok := f.(map[string]any)
			if !ok {
				continue
			}
			if caption, ok := frame["caption"].(string); ok {
				parts = append(parts, fmt.Sprintf("  Frame %d: %s", i+1, caption))
			}
			if classes := frameClasses(frame); len(classes) > 0 {
				if len(classes) > 5 {
					classes = classes[:5]
				}
				parts = append(parts, "  Objects detected: "+strings.Join(classes, ", "))
			}
		}
	}

	if path := outputPath(results, string(domain.ResultPDF)); path != "" {
		parts = append(parts, "\nPDF report generated: "+path)
	}
	if path := outputPath(results, string(domain.ResultPPTX)); path != "" {
		parts = append(parts, "\nPowerPoint generated: "+path)
	}
	if summary, ok := results[string(domain.ResultSummary)].(string); ok {
		parts = append(parts, "\nSummary: "+summary)
	}

	if len(parts) == 0 {
		return "No new information available"
	}
	return strings.Join(parts, "\n")
}

// deterministic composes fixed-format sections, one per populated
// result key, in a stable order.
func (s *Synthesizer) deterministic(queryLower string, results domain.ActionResults) string {
	var parts []string

	if payload, ok := results[string(domain.ResultTranscription)].(map[string]any); ok {
		if transcript, ok := payload["transcription"].(string); ok && !domain.IsError(payload) {
			parts = append(parts, "Transcription:\n"+text.Excerpt(transcript, transcriptExcerptLen))
		} else {
			parts = append(parts, "Transcription completed.")
		}
	}

	if _, ok := results[string(domain.ResultVision)]; ok {
		parts = append(parts, visionSections(queryLower, results)...)
	}

	if path := outputPath(results, string(domain.ResultPDF)); path != "" {
		if !strings.HasSuffix(path, ".pdf") {
			path += ".pdf"
		}
		parts = append(parts, "\nGenerated PDF report: "+path)
	}

	if path := outputPath(results, string(domain.ResultPPTX)); path != "" {
		if !strings.HasSuffix(path, ".pptx") {
			path += ".pptx"
		}
		parts = append(parts, "\nCreated PowerPoint: "+path)
	}

	if summary, ok := results[string(domain.ResultSummary)].(string); ok && summary != "" {
		parts = append(parts, "\nSummary: "+summary)
	}

	if len(parts) == 0 {
		if hasErrors(results) {
			return apology
		}
		return emptyFallback
	}
	return strings.Join(parts, "\n")
}

// visionSections renders the vision result: frame count, deduplicated
// object classes, caption excerpts, and graph-query special casing.
func visionSections(queryLower string, results domain.ActionResults) []string {
	frames := resultFrames(results)
	if len(frames) == 0 {
		return []string{"Visual analysis completed."}
	}

	parts := []string{fmt.Sprintf("\nAnalyzed %d frames from the video.", len(frames))}

	classSet := make(map[string]bool)
	var captions []string
	for _, f := range frames {
		frame, ok := f.(map[string]any)
		if !ok {
			continue
		}
		for _, class := range frameClasses(frame) {
			classSet[class] = true
		}
		if caption, ok := frame["caption"].(string); ok && len(captions) < maxCaptions {
			captions = append(captions, caption)
		}
	}

	classes := make([]string, 0, len(classSet))
	for class := range classSet {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	if len(classes) > 0 {
		capped := classes
		if len(capped) > maxObjectClasses {
			capped = capped[:maxObjectClasses]
		}
		parts = append(parts, "\nObjects detected: "+strings.Join(capped, ", "))
	}

	if len(captions) > 0 {
		parts = append(parts, "\nScene descriptions:")
		for i, caption := range captions {
			parts = append(parts, fmt.Sprintf("  %d. %s", i+1, caption))
		}
	}

	if containsAny(queryLower, "graph", "chart", "plot", "diagram") {
		var displays []string
		for _, class := range displayClasses {
			if classSet[class] {
				displays = append(displays, class)
			}
		}
		if len(displays) > 0 {
			parts = append(parts, "\nPossible visual displays detected: "+strings.Join(displays, ", "))
		} else {
			parts = append(parts, "\nNo graphs or charts were detected in the analyzed frames.")
		}
	}

	return parts
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hasErrors(results domain.ActionResults) bool {
	for _, v := range results {
		if domain.IsError(v) {
			return true
		}
	}
	return false
}

func resultTranscription(results domain.ActionResults) string {
	payload, ok := results[string(domain.ResultTranscription)].(map[string]any)
	if !ok || domain.IsError(payload) {
		return ""
	}
	transcript, _ := payload["transcription"].(string)
	return transcript
}

func resultFrames(results domain.ActionResults) []any {
	payload, ok := results[string(domain.ResultVision)].(map[string]any)
	if !ok {
		return nil
	}
	frames, _ := payload["results"].([]any)
	return frames
}

func frameClasses(frame map[string]any) []string {
	objects, ok := frame["objects"].([]any)
	if !ok {
		return nil
	}
	var classes []string
	for _, o := range objects {
		obj, ok := o.(map[string]any)
		if !ok {
			continue
		}
		if class, ok := obj["class"].(string); ok {
			classes = append(classes, class)
		}
	}
	return classes
}

func outputPath(results domain.ActionResults, key string) string {
	payload, ok := results[key].(map[string]any)
	if !ok {
		return ""
	}
	path, _ := payload["output_path"].(string)
	return path
}
