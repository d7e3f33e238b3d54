package capability

// Vision operations. detect returns per-frame object lists, describe
// returns per-frame captions; both carry frames_analyzed and results.
const (
	OpDetect   = "detect"
	OpDescribe = "describe"
)

// NewVision creates the vision capability client.
func NewVision(baseURL string) *HTTPInvoker {
	return NewHTTPInvoker(Vision, baseURL)
}
