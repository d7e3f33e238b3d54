// Package domain holds the core data model for query orchestration:
// sessions, messages, intents, artifacts, and the stream protocol.
package domain

import (
	"time"
)

// Session is the unit of conversational continuity. The video reference
// is set on the first turn and immutable afterwards.
type Session struct {
	ID        string    `json:"id"`
	VideoRef  string    `json:"videoRef"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContextKey names a slot of accumulated analysis state carried across
// turns. Values are overwritten, not merged, on each successful action.
type ContextKey string

const (
	ContextTranscription ContextKey = "transcription"
	ContextVisionResults ContextKey = "vision_results"
	ContextSummary       ContextKey = "summary"
)

// AnalysisContext maps context keys to the most recently produced value
// for that key.
type AnalysisContext map[ContextKey]any

// Clone returns a shallow copy so callers can read a snapshot without
// holding the session lock.
func (c AnalysisContext) Clone() AnalysisContext {
	out := make(AnalysisContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// HasTranscription reports whether a transcription value is present.
func (c AnalysisContext) HasTranscription() bool {
	_, ok := c[ContextTranscription]
	return ok
}

// HasVision reports whether vision results are present.
func (c AnalysisContext) HasVision() bool {
	_, ok := c[ContextVisionResults]
	return ok
}
