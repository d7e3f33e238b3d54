package capability

// Transcription operations.
const (
	OpTranscribe = "transcribe"
)

// NewTranscription creates the transcription capability client.
// Results carry {transcription, segments: [{start, end, text}], language}.
func NewTranscription(baseURL string) *HTTPInvoker {
	return NewHTTPInvoker(Transcription, baseURL)
}
