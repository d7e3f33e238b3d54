// Package engine composes the classifier, dispatcher, synthesizer, and
// session store into one request/response cycle, exposed as a unary
// Query and a streaming StreamQuery.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/okabe/vidql/internal/capability"
	"github.com/okabe/vidql/internal/dispatch"
	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/intent"
	"github.com/okabe/vidql/internal/library"
	"github.com/okabe/vidql/internal/logging"
	"github.com/okabe/vidql/internal/metrics"
	"github.com/okabe/vidql/internal/session"
	"github.com/okabe/vidql/internal/synth"
)

const (
	noVideoResponse = "No video provided. Attach a video reference to this session to run transcription or visual analysis."
	errorResponse   = "I encountered an issue processing your request. Please try again or rephrase your query."
)

// Engine runs the per-request orchestration pipeline. Safe for
// concurrent use; distinct sessions never contend with each other.
type Engine struct {
	sessions     *session.Store
	classifier   *intent.Classifier
	dispatcher   *dispatch.Dispatcher
	synthesizer  *synth.Synthesizer
	registry     *capability.Registry
	library      *library.Library
	artifactsDir string
	log          *logging.Logger
}

// Config wires the engine's collaborators. Library may be nil when no
// media directory is in play (references pass through unresolved).
type Config struct {
	Sessions     *session.Store
	Classifier   *intent.Classifier
	Dispatcher   *dispatch.Dispatcher
	Synthesizer  *synth.Synthesizer
	Registry     *capability.Registry
	Library      *library.Library
	ArtifactsDir string
}

func New(cfg Config) *Engine {
	return &Engine{
		sessions:     cfg.Sessions,
		classifier:   cfg.Classifier,
		dispatcher:   cfg.Dispatcher,
		synthesizer:  cfg.Synthesizer,
		registry:     cfg.Registry,
		library:      cfg.Library,
		artifactsDir: cfg.ArtifactsDir,
		log:          logging.New("engine"),
	}
}

// Query runs one full request cycle and returns the terminal result.
func (e *Engine) Query(ctx context.Context, sessionID, query, videoRef string) (domain.QueryResult, error) {
	return e.process(ctx, sessionID, query, videoRef, func(domain.StreamUpdate) {})
}

// History returns the most recent limit messages of a session in
// chronological order, or all messages when limit <= 0.
func (e *Engine) History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	return e.sessions.History(ctx, sessionID, limit)
}

// Sessions lists known sessions, most recently updated first.
func (e *Engine) Sessions(ctx context.Context, limit int) []domain.Session {
	return e.sessions.List(ctx, limit)
}

// Report generates a document from a session's stored analysis context
// without running a new query. Format is "pdf" or "pptx".
func (e *Engine) Report(ctx context.Context, sessionID, format string) (string, error) {
	actx, ok := e.sessions.Context(ctx, sessionID)
	if !ok {
		return "", fmt.Errorf("%w: %s", session.ErrUnknownSession, sessionID)
	}

	inv, err := e.registry.Lookup(capability.Generation)
	if err != nil {
		return "", err
	}

	op := capability.OpGeneratePDF
	title := "Video Analysis Report"
	ext := ".pdf"
	switch strings.ToLower(format) {
	case "pdf", "":
	case "pptx":
		op = capability.OpGeneratePPTX
		title = "Video Analysis Presentation"
		ext = ".pptx"
	default:
		return "", fmt.Errorf("unsupported report format: %s", format)
	}

	ctx = logging.WithSessionID(ctx, sessionID)
	locator := e.artifactsDir + "/report-" + uuid.NewString()[:8]
	result, err := inv.Invoke(ctx, op, map[string]any{
		"content": map[string]any{
			"title":          title,
			"transcription":  actx[domain.ContextTranscription],
			"vision_results": actx[domain.ContextVisionResults],
			"summary":        actx[domain.ContextSummary],
		},
		"output_path": locator,
	})
	if err != nil {
		return "", err
	}

	path, _ := result["output_path"].(string)
	if path == "" {
		path = locator
	}
	if !strings.HasSuffix(path, ext) {
		path += ext
	}
	return path, nil
}

// process is the shared pipeline behind Query and StreamQuery. emit is
// called with progress updates; the terminal update is the caller's
// responsibility.
func (e *Engine) process(ctx context.Context, sessionID, query, videoRef string, emit func(domain.StreamUpdate)) (domain.QueryResult, error) {
	start := time.Now()

	if sessionID == "" {
		sessionID = ulid.Make().String()
	}
	ctx = logging.WithRequestID(ctx, "")
	ctx = logging.WithSessionID(ctx, sessionID)
	log := e.log.WithSession(sessionID)

	sess, _ := e.sessions.GetOrCreate(ctx, sessionID, videoRef)
	sessionID = sess.ID

	if err := e.sessions.Append(ctx, sessionID, domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   query,
		Timestamp: time.Now(),
	}); err != nil {
		metrics.Global().RecordQuery(false, time.Since(start).Milliseconds())
		return domain.QueryResult{SessionID: sessionID}, err
	}

	emit(progress(domain.StageClassifying, "Analyzing your query..."))

	actx, _ := e.sessions.Context(ctx, sessionID)
	in, source := e.classifier.Classify(ctx, query, intent.ContextFlags{
		HasTranscription: actx.HasTranscription(),
		HasVision:        actx.HasVision(),
	})
	log.Info("classified", map[string]interface{}{
		"primary": string(in.PrimaryAction),
		"source":  string(source),
	})

	if in.NeedsClarification {
		metrics.Global().RecordClarification()
		response := in.ClarificationQuestion
		if response == "" {
			response = "Could you clarify what you would like to know about the video?"
		}
		e.appendAssistant(ctx, sessionID, response, nil)
		metrics.Global().RecordQuery(true, time.Since(start).Milliseconds())
		return domain.QueryResult{
			SessionID:     sessionID,
			Response:      response,
			Clarification: true,
		}, nil
	}

	// Unrecoverable precondition: actions need a video the session
	// does not have. Short-circuit without dispatching anything.
	if sess.VideoRef == "" && needsVideo(in.Actions()) {
		e.appendAssistant(ctx, sessionID, noVideoResponse, nil)
		metrics.Global().RecordQuery(false, time.Since(start).Milliseconds())
		return domain.QueryResult{
			SessionID: sessionID,
			Response:  noVideoResponse,
		}, nil
	}

	videoPath := e.resolveVideo(ctx, sess.VideoRef)

	results := make(domain.ActionResults)
	var executed []domain.Action
	for _, action := range in.Actions() {
		if text := progressText(action); text != "" {
			emit(progress(domain.StageDispatching, text))
		}
		out := e.dispatcher.Dispatch(ctx, domain.Intent{PrimaryAction: action}, videoPath, actx)
		for k, v := range out.Results {
			results[k] = v
		}
		executed = append(executed, out.Executed...)
		actx = out.Context
		// Merge after every action so completed steps persist even if
		// the caller disconnects mid-request.
		if err := e.sessions.MergeContext(ctx, sessionID, actx); err != nil {
			log.Warn("context_merge_failed", nil, err)
		}
	}

	emit(progress(domain.StageSynthesizing, "Composing response..."))

	response := e.synthesizer.Synthesize(ctx, query, in, results, actx)
	artifacts := buildArtifacts(results)
	e.appendAssistant(ctx, sessionID, response, artifacts)

	metrics.Global().RecordQuery(!anyErrors(results), time.Since(start).Milliseconds())
	log.TimedEvent("query_completed", start, map[string]interface{}{
		"actions": len(executed),
	})

	return domain.QueryResult{
		SessionID: sessionID,
		Response:  response,
		Actions:   executed,
		Artifacts: artifacts,
	}, nil
}

// resolveVideo maps the session's video reference through the library.
// Unresolvable references pass through unchanged so capability
// providers can report their own errors.
func (e *Engine) resolveVideo(ctx context.Context, ref string) string {
	if ref == "" || e.library == nil {
		return ref
	}
	path, err := e.library.Resolve(ref)
	if err != nil {
		e.log.WithSession(logging.GetSessionID(ctx)).Warn("video_unresolved", map[string]interface{}{
			"ref": ref,
		}, err)
		return ref
	}
	return path
}

func (e *Engine) appendAssistant(ctx context.Context, sessionID, content string, artifacts []domain.Artifact) {
	err := e.sessions.Append(ctx, sessionID, domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		Artifacts: artifacts,
	})
	if err != nil {
		e.log.WithSession(sessionID).Warn("append_failed", nil, err)
	}
}

func needsVideo(actions []domain.Action) bool {
	for _, a := range actions {
		if a.NeedsVideo() {
			return true
		}
	}
	return false
}

func anyErrors(results domain.ActionResults) bool {
	for _, v := range results {
		if domain.IsError(v) {
			return true
		}
	}
	return false
}

func progress(stage domain.Stage, text string) domain.StreamUpdate {
	return domain.StreamUpdate{Stage: stage, Text: text}
}

func progressText(action domain.Action) string {
	switch action {
	case domain.ActionTranscribe:
		return "Transcribing audio..."
	case domain.ActionDetectObjects:
		return "Detecting objects..."
	case domain.ActionDescribeScenes:
		return "Describing scenes..."
	case domain.ActionGeneratePDF:
		return "Generating PDF report..."
	case domain.ActionGeneratePPTX:
		return "Generating presentation..."
	case domain.ActionSummarize:
		return "Summarizing analysis..."
	}
	return ""
}

// buildArtifacts converts result payloads into typed artifact records,
// in a fixed order: transcript, vision, pdf, pptx.
func buildArtifacts(results domain.ActionResults) []domain.Artifact {
	var out []domain.Artifact

	if v, ok := results[string(domain.ResultTranscription)]; ok && !domain.IsError(v) {
		art := domain.Artifact{ID: uuid.NewString(), Type: domain.ArtifactTranscript}
		if m, ok := v.(map[string]any); ok {
			if lang, ok := m["language"].(string); ok && lang != "" {
				art.Metadata = map[string]string{"language": lang}
			}
		}
		out = append(out, art)
	}

	if v, ok := results[string(domain.ResultVision)]; ok && !domain.IsError(v) {
		art := domain.Artifact{ID: uuid.NewString(), Type: domain.ArtifactVision}
		if m, ok := v.(map[string]any); ok {
			switch n := m["frames_analyzed"].(type) {
			case float64:
				art.Metadata = map[string]string{"frames_analyzed": fmt.Sprintf("%d", int(n))}
			case int:
				art.Metadata = map[string]string{"frames_analyzed": fmt.Sprintf("%d", n)}
			}
		}
		out = append(out, art)
	}

	for _, doc := range []struct {
		key domain.ResultKey
		typ domain.ArtifactType
		ext string
	}{
		{domain.ResultPDF, domain.ArtifactPDF, ".pdf"},
		{domain.ResultPPTX, domain.ArtifactPPTX, ".pptx"},
	} {
		v, ok := results[string(doc.key)]
		if !ok || domain.IsError(v) {
			continue
		}
		art := domain.Artifact{ID: uuid.NewString(), Type: doc.typ}
		if m, ok := v.(map[string]any); ok {
			if path, ok := m["output_path"].(string); ok && path != "" {
				if !strings.HasSuffix(path, doc.ext) {
					path += doc.ext
				}
				art.Path = path
			}
		}
		out = append(out, art)
	}

	return out
}
