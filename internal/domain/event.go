package domain

// StreamUpdate is one message on a streaming query. Zero or more
// progress updates (Confidence 0) precede exactly one terminal update
// (Confidence 1) carrying the full response and artifacts; the stream
// closes after the terminal update.
type StreamUpdate struct {
	Stage      Stage      `json:"stage"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Final      bool       `json:"final"`
	Actions    []Action   `json:"actions,omitempty"`
	Artifacts  []Artifact `json:"artifacts,omitempty"`
}

// Stage is a state of the per-request orchestration pipeline.
type Stage string

const (
	StageReceived               Stage = "received"
	StageClassifying            Stage = "classifying"
	StageDispatching            Stage = "dispatching"
	StageSynthesizing           Stage = "synthesizing"
	StageCompleted              Stage = "completed"
	StageClarificationRequested Stage = "clarification_requested"
)

// QueryResult is the terminal outcome of one request cycle.
type QueryResult struct {
	SessionID     string     `json:"sessionId"`
	Response      string     `json:"response"`
	Actions       []Action   `json:"actions"`
	Artifacts     []Artifact `json:"artifacts,omitempty"`
	Clarification bool       `json:"clarification,omitempty"`
}
