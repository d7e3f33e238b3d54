// Package dispatch expands an intent into its ordered action list and
// runs each action against a capability provider. Actions run
// sequentially because later actions read context written by earlier
// ones; failures are recorded per action and never abort siblings.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okabe/vidql/internal/capability"
	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/logging"
	"github.com/okabe/vidql/internal/text"
)

const (
	errNoVideo = "No video provided"

	pdfTitle  = "Video Analysis Report"
	pptxTitle = "Video Analysis Presentation"

	// summaryFallback is returned when the language capability cannot
	// produce a summary.
	summaryFallback = "Analysis complete. Transcription and visual analysis available."
)

// Dispatcher invokes capability providers for the actions of one intent.
type Dispatcher struct {
	registry     *capability.Registry
	model        string
	artifactsDir string
	log          *logging.Logger
}

// New creates a dispatcher over a capability registry. Generated
// documents are placed under artifactsDir.
func New(registry *capability.Registry, model, artifactsDir string) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		model:        model,
		artifactsDir: artifactsDir,
		log:          logging.New("dispatch"),
	}
}

// Outcome is the result of dispatching one intent.
type Outcome struct {
	// Results maps result keys (or failing action names) to payloads.
	Results domain.ActionResults

	// Context is the updated analysis context after all actions ran.
	Context domain.AnalysisContext

	// Executed lists the actions that completed successfully, in order.
	Executed []domain.Action
}

// Dispatch runs the intent's actions in order against the registry.
// The passed context is treated as the dispatcher's own copy and is
// returned updated; callers snapshot before and merge after so no
// session lock spans a capability call.
func (d *Dispatcher) Dispatch(ctx context.Context, intent domain.Intent, videoRef string, actx domain.AnalysisContext) Outcome {
	if actx == nil {
		actx = make(domain.AnalysisContext)
	}
	out := Outcome{
		Results: make(domain.ActionResults),
		Context: actx,
	}

	for _, action := range intent.Actions() {
		start := time.Now()
		err := d.run(ctx, action, videoRef, &out)
		logging.QueryEvent(logging.GetSessionID(ctx), string(action), time.Since(start), err)
		if err != nil {
			out.Results[string(action)] = domain.ErrorRecord{Error: err.Error()}
			continue
		}
	}

	return out
}

// run executes one action. A returned error becomes an error record
// keyed by the action's own name.
func (d *Dispatcher) run(ctx context.Context, action domain.Action, videoRef string, out *Outcome) error {
	switch action {
	case domain.ActionTranscribe:
		inv, err := d.registry.Lookup(capability.Transcription)
		if err != nil {
			return err
		}
		if videoRef == "" {
			return errors.New(errNoVideo)
		}
		result, err := inv.Invoke(ctx, capability.OpTranscribe, map[string]any{
			"video_reference": videoRef,
		})
		if err != nil {
			return err
		}
		out.Results[string(domain.ResultTranscription)] = result
		out.Context[domain.ContextTranscription] = result
		out.Executed = append(out.Executed, action)

	case domain.ActionDetectObjects, domain.ActionDescribeScenes:
		inv, err := d.registry.Lookup(capability.Vision)
		if err != nil {
			return err
		}
		if videoRef == "" {
			return errors.New(errNoVideo)
		}
		op := capability.OpDetect
		if action == domain.ActionDescribeScenes {
			op = capability.OpDescribe
		}
		result, err := inv.Invoke(ctx, op, map[string]any{
			"video_reference": videoRef,
		})
		if err != nil {
			return err
		}
		// Both vision operations share the vision result key.
		out.Results[string(domain.ResultVision)] = result
		out.Context[domain.ContextVisionResults] = result
		out.Executed = append(out.Executed, action)

	case domain.ActionGeneratePDF, domain.ActionGeneratePPTX:
		inv, err := d.registry.Lookup(capability.Generation)
		if err != nil {
			return err
		}
		op := capability.OpGeneratePDF
		title := pdfTitle
		key := domain.ResultPDF
		if action == domain.ActionGeneratePPTX {
			op = capability.OpGeneratePPTX
			title = pptxTitle
			key = domain.ResultPPTX
		}
		// Generation succeeds with whatever subset of context exists.
		result, err := inv.Invoke(ctx, op, map[string]any{
			"content": map[string]any{
				"title":          title,
				"transcription":  out.Context[domain.ContextTranscription],
				"vision_results": out.Context[domain.ContextVisionResults],
				"summary":        summaryText(out.Context),
			},
			"output_path": d.outputLocator(),
		})
		if err != nil {
			return err
		}
		out.Results[string(key)] = result
		out.Executed = append(out.Executed, action)

	case domain.ActionSummarize:
		summary := d.summarize(ctx, out.Context)
		out.Results[string(domain.ResultSummary)] = summary
		out.Context[domain.ContextSummary] = summary
		out.Executed = append(out.Executed, action)

	case domain.ActionRespond:
		// Answer from existing context only; nothing to dispatch.
	}

	return nil
}

// outputLocator builds a fresh document locator under the artifacts
// directory. The generation capability appends the format extension.
func (d *Dispatcher) outputLocator() string {
	return filepath.Join(d.artifactsDir, "report-"+uuid.NewString()[:8])
}

// summarize asks the language capability for a short summary of the
// accumulated context, degrading to a fixed string on any failure.
func (d *Dispatcher) summarize(ctx context.Context, actx domain.AnalysisContext) string {
	inv, err := d.registry.Lookup(capability.Language)
	if err != nil {
		return summaryFallback
	}

	var parts []string
	if transcript := transcriptionText(actx); transcript != "" {
		parts = append(parts, "Audio content: "+text.Clip(transcript, 300))
	}
	if frames, ok := visionFrames(actx); ok {
		parts = append(parts, fmt.Sprintf("Video analysis: Analyzed %d frames", len(frames)))
	}

	prompt := fmt.Sprintf(`Provide a concise summary of this video analysis:

%s

Summary (2-3 sentences):`, strings.Join(parts, "\n"))

	completion, err := capability.NewLanguageClient(inv).Complete(ctx, capability.CompletionRequest{
		Prompt:      prompt,
		Model:       d.model,
		MaxTokens:   150,
		Temperature: 0.5,
		Stop:        []string{"\n\n"},
	})
	if err != nil {
		d.log.Warn("summary_generation_failed", nil, err)
		return summaryFallback
	}
	return strings.TrimSpace(completion)
}

// summaryText extracts the stored summary string, if any.
func summaryText(actx domain.AnalysisContext) string {
	if s, ok := actx[domain.ContextSummary].(string); ok {
		return s
	}
	return ""
}

// transcriptionText digs the plain transcription text out of the stored
// capability payload.
func transcriptionText(actx domain.AnalysisContext) string {
	payload, ok := actx[domain.ContextTranscription].(map[string]any)
	if !ok {
		return ""
	}
	transcript, _ := payload["transcription"].(string)
	return transcript
}

// visionFrames returns the per-frame result list from the stored vision
// payload.
func visionFrames(actx domain.AnalysisContext) ([]any, bool) {
	payload, ok := actx[domain.ContextVisionResults].(map[string]any)
	if !ok {
		return nil, false
	}
	frames, ok := payload["results"].([]any)
	if !ok || len(frames) == 0 {
		return nil, false
	}
	return frames, true
}
