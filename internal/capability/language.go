package capability

import (
	"context"
	"fmt"
)

// Language operations.
const (
	OpComplete = "complete"
)

// NewLanguage creates the language model capability client.
func NewLanguage(baseURL string) *HTTPInvoker {
	return NewHTTPInvoker(Language, baseURL)
}

// CompletionRequest is a typed prompt for the language capability.
type CompletionRequest struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// LanguageClient wraps an invoker with a typed completion helper used
// by the intent classifier and response synthesizer.
type LanguageClient struct {
	inv Invoker
}

// NewLanguageClient wraps any invoker registered under the language name.
func NewLanguageClient(inv Invoker) *LanguageClient {
	return &LanguageClient{inv: inv}
}

// Complete runs one completion and returns the generated text.
func (l *LanguageClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := map[string]any{
		"prompt":      req.Prompt,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	if req.Model != "" {
		params["model"] = req.Model
	}
	if len(req.Stop) > 0 {
		params["stop"] = req.Stop
	}

	result, err := l.inv.Invoke(ctx, OpComplete, params)
	if err != nil {
		return "", err
	}

	text, ok := result["text"].(string)
	if !ok {
		return "", fmt.Errorf("language response missing text field")
	}
	return text, nil
}
