package domain

// ArtifactType identifies what kind of byproduct an action produced.
type ArtifactType string

const (
	ArtifactTranscript ArtifactType = "transcript-json"
	ArtifactVision     ArtifactType = "vision-json"
	ArtifactPDF        ArtifactType = "pdf"
	ArtifactPPTX       ArtifactType = "pptx"
)

// Artifact is a file or structured byproduct referenced by a message.
// It is created by the dispatch or synthesis step that produced it and
// referenced, never duplicated, by the enclosing message.
type Artifact struct {
	ID       string            `json:"id"`
	Type     ArtifactType      `json:"type"`
	Path     string            `json:"path"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
