package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nvandessel/hivesight/internal/constants"
)

const geminiDefaultModel = "gemini-2.0-flash"

// GeminiOracle implements Oracle using Google's Gemini API.
type GeminiOracle struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiOracle creates a GeminiOracle. If config.APIKey is empty it falls
// back to GEMINI_API_KEY, then GOOGLE_API_KEY.
func NewGeminiOracle(config ClientConfig) (*GeminiOracle, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w: missing API key", ProviderGemini, ErrUnavailable)
	}

	model := config.Model
	if model == "" {
		model = geminiDefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = constants.DefaultOracleTimeout
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiOracle{client: client, model: model, timeout: timeout}, nil
}

// Name implements Oracle.
func (g *GeminiOracle) Name() string {
	return ProviderGemini
}

// Available implements Checker.
func (g *GeminiOracle) Available() bool {
	return g.client != nil
}

// Invoke implements Oracle.
func (g *GeminiOracle) Invoke(ctx context.Context, prompt string, params Params) (string, error) {
	model := params.Model
	if model == "" {
		model = g.model
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(params.Temperature)),
	}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", geminiError(err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// geminiError maps 429 / RESOURCE_EXHAUSTED to a RateLimitError.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isExhausted(apiErr) {
		return &RateLimitError{Provider: ProviderGemini, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isExhausted(*apiErrPtr) {
		return &RateLimitError{Provider: ProviderGemini, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("%s: generating content: %w", ProviderGemini, err)
}

func isExhausted(e genai.APIError) bool {
	return e.Code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}
