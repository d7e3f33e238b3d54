package domain

// Action is a single named operation dispatched to a capability
// provider. The set is closed.
type Action string

const (
	ActionTranscribe     Action = "transcribe"
	ActionDetectObjects  Action = "detect_objects"
	ActionDescribeScenes Action = "describe_scenes"
	ActionGeneratePDF    Action = "generate_pdf"
	ActionGeneratePPTX   Action = "generate_pptx"
	ActionSummarize      Action = "summarize"
	ActionRespond        Action = "respond"
)

// KnownAction reports whether s names a member of the closed action set.
func KnownAction(s string) bool {
	switch Action(s) {
	case ActionTranscribe, ActionDetectObjects, ActionDescribeScenes,
		ActionGeneratePDF, ActionGeneratePPTX, ActionSummarize, ActionRespond:
		return true
	}
	return false
}

// NeedsVideo reports whether the action requires a video reference.
// Summarize and respond work from accumulated context alone, and
// document generation accepts whatever subset of context exists.
func (a Action) NeedsVideo() bool {
	switch a {
	case ActionTranscribe, ActionDetectObjects, ActionDescribeScenes:
		return true
	}
	return false
}

// Intent is the structured classification of a user query into an
// action plan.
type Intent struct {
	PrimaryAction         Action   `json:"primary_action"`
	AdditionalActions     []Action `json:"additional_actions,omitempty"`
	NeedsClarification    bool     `json:"needs_clarification"`
	ClarificationQuestion string   `json:"clarification_question,omitempty"`
	Reasoning             string   `json:"reasoning,omitempty"`
}

// Actions returns the full ordered action list: primary first, then
// additional actions.
func (i Intent) Actions() []Action {
	out := make([]Action, 0, 1+len(i.AdditionalActions))
	out = append(out, i.PrimaryAction)
	out = append(out, i.AdditionalActions...)
	return out
}

// ResultKey names a slot in the per-request action results map. Both
// vision operations share the "vision" key.
type ResultKey string

const (
	ResultTranscription ResultKey = "transcription"
	ResultVision        ResultKey = "vision"
	ResultPDF           ResultKey = "pdf"
	ResultPPTX          ResultKey = "pptx"
	ResultSummary       ResultKey = "summary"
)

// ActionResults maps result keys (or, for failures, the failing
// action's own name) to capability payloads or error records.
type ActionResults map[string]any

// ErrorRecord is the recorded outcome of a failed action. A failed
// action never aborts its siblings.
type ErrorRecord struct {
	Error string `json:"error"`
}

// IsError reports whether the value stored under a results key is an
// error record.
func IsError(v any) bool {
	switch e := v.(type) {
	case ErrorRecord:
		return e.Error != ""
	case *ErrorRecord:
		return e != nil && e.Error != ""
	case map[string]any:
		_, ok := e["error"]
		return ok
	}
	return false
}
