package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okabe/vidql/internal/logging"
	"github.com/okabe/vidql/internal/metrics"
)

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Verify http.Client implements HTTPClient
var _ HTTPClient = (*http.Client)(nil)

// invokeRequest is the wire shape posted to a provider.
type invokeRequest struct {
	Operation  string         `json:"operation"`
	Parameters map[string]any `json:"parameters"`
}

// HTTPInvoker calls a remote capability provider over HTTP/JSON.
// Operations map to POST <baseURL>/invoke/<operation>.
type HTTPInvoker struct {
	name    string
	baseURL string
	client  HTTPClient
}

// NewHTTPInvoker creates an invoker for a capability at a base URL.
func NewHTTPInvoker(name, baseURL string) *HTTPInvoker {
	return NewHTTPInvokerWithClient(name, baseURL, &http.Client{})
}

// NewHTTPInvokerWithClient creates an invoker with an injected HTTP client.
func NewHTTPInvokerWithClient(name, baseURL string, client HTTPClient) *HTTPInvoker {
	return &HTTPInvoker{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (h *HTTPInvoker) Name() string { return h.name }

// Invoke posts {operation, parameters} and decodes the JSON result map.
func (h *HTTPInvoker) Invoke(ctx context.Context, operation string, params map[string]any) (result map[string]any, err error) {
	start := time.Now()
	defer func() {
		metrics.Global().RecordCapabilityCall(err == nil, time.Since(start).Milliseconds())
		logging.CapabilityEvent(h.name, operation, logging.GetSessionID(ctx), time.Since(start), err)
	}()

	body, err := json.Marshal(invokeRequest{Operation: operation, Parameters: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := h.baseURL + "/invoke/" + operation
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", h.name, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s %s: status %d: %s", h.name, operation, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	result = make(map[string]any)
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode %s %s response: %w", h.name, operation, err)
	}
	return result, nil
}

var _ Invoker = (*HTTPInvoker)(nil)
