package capability

// Generation operations.
const (
	OpGeneratePDF  = "generate_pdf"
	OpGeneratePPTX = "generate_pptx"
)

// NewGeneration creates the document generation capability client.
// Results carry {status, output_path, size}.
func NewGeneration(baseURL string) *HTTPInvoker {
	return NewHTTPInvoker(Generation, baseURL)
}
