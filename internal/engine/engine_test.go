package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okabe/vidql/internal/capability"
	"github.com/okabe/vidql/internal/dispatch"
	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/intent"
	"github.com/okabe/vidql/internal/library"
	"github.com/okabe/vidql/internal/session"
	"github.com/okabe/vidql/internal/synth"
	"github.com/okabe/vidql/internal/testutil"
)

const testModel = "test-model"

type testEnv struct {
	engine        *Engine
	sessions      *session.Store
	registry      *capability.Registry
	transcription *testutil.MockInvoker
	vision        *testutil.MockInvoker
	generation    *testutil.MockInvoker
}

// newTestEnv wires an engine over mock capabilities with keyword-only
// classification. Callers adjust the mocks before querying.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		sessions:      session.NewStore(nil),
		registry:      capability.NewRegistry(),
		transcription: testutil.NewMockInvoker(capability.Transcription).WithResult(testutil.TranscriptionResult("hello world")),
		vision:        testutil.NewMockInvoker(capability.Vision).WithResult(testutil.VisionDetectResult("person", "laptop")),
		generation:    testutil.NewMockInvoker(capability.Generation).WithResult(testutil.GenerationResult("/tmp/report.pdf")),
	}
	env.registry.Register(env.transcription)
	env.registry.Register(env.vision)
	env.registry.Register(env.generation)

	env.engine = New(Config{
		Sessions:     env.sessions,
		Classifier:   intent.NewClassifier(nil, testModel),
		Dispatcher:   dispatch.New(env.registry, testModel, testutil.TempDir(t)),
		Synthesizer:  synth.New(nil, testModel),
		Registry:     env.registry,
		ArtifactsDir: testutil.TempDir(t),
	})
	return env
}

func TestQueryTranscribe(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.engine.Query(context.Background(), "s1", "transcribe the video", "demo.mp4")
	require.NoError(t, err)

	assert.Equal(t, "s1", result.SessionID)
	assert.Contains(t, result.Response, "hello world")
	assert.Equal(t, []domain.Action{domain.ActionTranscribe}, result.Actions)
	assert.False(t, result.Clarification)

	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, domain.ArtifactTranscript, result.Artifacts[0].Type)
	assert.Equal(t, "en", result.Artifacts[0].Metadata["language"])

	history, err := env.engine.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "transcribe the video", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, result.Response, history[1].Content)
	assert.Len(t, history[1].Artifacts, 1)
}

func TestQueryGeneratesSessionID(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.engine.Query(context.Background(), "", "transcribe it", "demo.mp4")
	require.NoError(t, err)
	assert.Len(t, result.SessionID, 26)

	// Follow-up with the generated id lands on the same session.
	second, err := env.engine.Query(context.Background(), result.SessionID, "what objects do you see", "")
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, second.SessionID)

	history, err := env.engine.History(context.Background(), result.SessionID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestQueryVisionArtifact(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.engine.Query(context.Background(), "s1", "what objects are in the video", "demo.mp4")
	require.NoError(t, err)

	assert.Contains(t, result.Response, "laptop")
	assert.Contains(t, result.Response, "person")
	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, domain.ArtifactVision, result.Artifacts[0].Type)
	assert.Equal(t, "2", result.Artifacts[0].Metadata["frames_analyzed"])
}

func TestQueryDocumentArtifactPath(t *testing.T) {
	env := newTestEnv(t)
	env.generation.Result = testutil.GenerationResult("/tmp/out/report-ab12")

	result, err := env.engine.Query(context.Background(), "s1", "generate a pdf report", "demo.mp4")
	require.NoError(t, err)

	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, domain.ArtifactPDF, result.Artifacts[0].Type)
	assert.Equal(t, "/tmp/out/report-ab12.pdf", result.Artifacts[0].Path)
}

func TestQueryNoVideoShortCircuits(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.engine.Query(context.Background(), "s1", "transcribe the video", "")
	require.NoError(t, err)

	assert.Equal(t, noVideoResponse, result.Response)
	assert.Empty(t, result.Actions)
	assert.Zero(t, env.transcription.CallCount())

	// The exchange is still recorded.
	history, err := env.engine.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestQueryClarification(t *testing.T) {
	env := newTestEnv(t)
	lang := testutil.NewMockLanguage(`{"primary_action": "respond", "needs_clarification": true, "clarification_question": "Which video do you mean?"}`)
	env.engine.classifier = intent.NewClassifier(capability.NewLanguageClient(lang), testModel)

	result, err := env.engine.Query(context.Background(), "s1", "do the thing", "demo.mp4")
	require.NoError(t, err)

	assert.True(t, result.Clarification)
	assert.Equal(t, "Which video do you mean?", result.Response)
	assert.Empty(t, result.Actions)
	assert.Zero(t, env.transcription.CallCount())
	assert.Zero(t, env.vision.CallCount())
}

func TestQueryContextCarriesAcrossTurns(t *testing.T) {
	env := newTestEnv(t)
	lang := testutil.NewMockLanguage("The video is a short greeting.")
	env.registry.Register(lang)

	_, err := env.engine.Query(context.Background(), "s1", "transcribe the video", "demo.mp4")
	require.NoError(t, err)

	result, err := env.engine.Query(context.Background(), "s1", "give me a summary", "")
	require.NoError(t, err)

	assert.Contains(t, result.Response, "The video is a short greeting.")

	// The summarize prompt saw the first turn's transcription.
	calls := lang.Calls()
	require.Len(t, calls, 1)
	prompt, _ := calls[0].Params["prompt"].(string)
	assert.Contains(t, prompt, "hello world")
}

func TestQueryFailedCapabilityDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.transcription.WithError(assert.AnError)

	result, err := env.engine.Query(context.Background(), "s1", "transcribe the video", "demo.mp4")
	require.NoError(t, err)

	assert.Contains(t, result.Response, "try again")
	assert.Empty(t, result.Artifacts)
}

func TestQueryResolvesVideoThroughLibrary(t *testing.T) {
	env := newTestEnv(t)
	media := testutil.TempDir(t)
	path := testutil.WriteFile(t, media, "demo.mp4", "x")
	env.engine.library = library.New(media)

	_, err := env.engine.Query(context.Background(), "s1", "transcribe the video", "demo")
	require.NoError(t, err)

	calls := env.transcription.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, path, calls[0].Params["video_reference"])
}

func TestStreamQueryProgressAndFinal(t *testing.T) {
	env := newTestEnv(t)

	updates := env.engine.StreamQuery(context.Background(), "s1", "transcribe the video", "demo.mp4")
	progress, final := testutil.CollectUpdates(t, updates)

	require.NotEmpty(t, progress)
	assert.Equal(t, domain.StageClassifying, progress[0].Stage)
	var stages []domain.Stage
	for _, p := range progress {
		assert.Zero(t, p.Confidence)
		assert.False(t, p.Final)
		stages = append(stages, p.Stage)
	}
	assert.Contains(t, stages, domain.StageDispatching)
	assert.Contains(t, stages, domain.StageSynthesizing)

	assert.Equal(t, domain.StageCompleted, final.Stage)
	assert.Equal(t, float64(1), final.Confidence)
	assert.Contains(t, final.Text, "hello world")
	assert.Equal(t, []domain.Action{domain.ActionTranscribe}, final.Actions)
	assert.Len(t, final.Artifacts, 1)
}

func TestStreamQueryClarificationStage(t *testing.T) {
	env := newTestEnv(t)
	lang := testutil.NewMockLanguage(`{"primary_action": "respond", "needs_clarification": true, "clarification_question": "Which part?"}`)
	env.engine.classifier = intent.NewClassifier(capability.NewLanguageClient(lang), testModel)

	updates := env.engine.StreamQuery(context.Background(), "s1", "explain", "demo.mp4")
	_, final := testutil.CollectUpdates(t, updates)

	assert.Equal(t, domain.StageClarificationRequested, final.Stage)
	assert.Equal(t, "Which part?", final.Text)
}

func TestStreamQueryCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updates := env.engine.StreamQuery(ctx, "s1", "transcribe the video", "demo.mp4")
	for u := range updates {
		t.Fatalf("unexpected update after cancellation: %+v", u)
	}

	// The pipeline still ran to completion and persisted its work.
	history, err := env.engine.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestReportFromStoredContext(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Query(context.Background(), "s1", "transcribe the video", "demo.mp4")
	require.NoError(t, err)
	env.generation.Result = nil

	path, err := env.engine.Report(context.Background(), "s1", "pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".pdf"), "path %q", path)

	calls := env.generation.Calls()
	require.Len(t, calls, 1)
	report := calls[0]
	assert.Equal(t, capability.OpGeneratePDF, report.Operation)
	content, ok := report.Params["content"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Video Analysis Report", content["title"])
	assert.NotNil(t, content["transcription"])
}

func TestReportPPTX(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.engine.Query(context.Background(), "s1", "hello", "demo.mp4")

	path, err := env.engine.Report(context.Background(), "s1", "pptx")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".pptx"), "path %q", path)

	calls := env.generation.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, capability.OpGeneratePPTX, calls[0].Operation)
	content := calls[0].Params["content"].(map[string]any)
	assert.Equal(t, "Video Analysis Presentation", content["title"])
}

func TestReportUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Report(context.Background(), "missing", "pdf")
	assert.ErrorIs(t, err, session.ErrUnknownSession)
}

func TestReportBadFormat(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.engine.Query(context.Background(), "s1", "hello", "demo.mp4")

	_, err := env.engine.Report(context.Background(), "s1", "docx")
	assert.Error(t, err)
	assert.Zero(t, env.generation.CallCount())
}

func TestSessionsList(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.engine.Query(context.Background(), "a", "hello", "one.mp4")
	_, _ = env.engine.Query(context.Background(), "b", "hello", "two.mp4")

	sessions := env.engine.Sessions(context.Background(), 0)
	require.Len(t, sessions, 2)
	assert.Equal(t, "b", sessions[0].ID)
}
