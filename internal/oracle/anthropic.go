package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nvandessel/hivesight/internal/constants"
)

const (
	anthropicAPIURL       = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion   = "2023-06-01"
	anthropicDefaultModel = "claude-3-haiku-20240307"
)

// AnthropicOracle implements Oracle using the Anthropic Messages API.
type AnthropicOracle struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

// NewAnthropicOracle creates a new AnthropicOracle with the given configuration.
// If config.APIKey is empty, it falls back to the ANTHROPIC_API_KEY environment variable.
// If config.Model is empty, it defaults to claude-3-haiku-20240307.
func NewAnthropicOracle(config ClientConfig) *AnthropicOracle {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	url := anthropicAPIURL
	if config.BaseURL != "" {
		url = strings.TrimRight(config.BaseURL, "/") + "/v1/messages"
	}

	model := config.Model
	if model == "" {
		model = anthropicDefaultModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = constants.DefaultOracleTimeout
	}

	return &AnthropicOracle{
		apiKey:     apiKey,
		url:        url,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// anthropicRequest represents a request to the Anthropic Messages API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

// anthropicMessage represents a message in the Anthropic API format.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse represents a response from the Anthropic Messages API.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Name implements Oracle.
func (c *AnthropicOracle) Name() string {
	return ProviderAnthropic
}

// Available returns true if an API key is configured.
func (c *AnthropicOracle) Available() bool {
	return c.apiKey != ""
}

// Invoke implements Oracle.
func (c *AnthropicOracle) Invoke(ctx context.Context, prompt string, params Params) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("%s: %w: missing API key", ProviderAnthropic, ErrUnavailable)
	}

	model := params.Model
	if model == "" {
		model = c.model
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = constants.DefaultMaxTokens
	}

	reqBody := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: params.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var apiResp anthropicResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Error != nil && apiResp.Error.Type == "rate_limit_error" {
			return "", &RateLimitError{
				Provider:   ProviderAnthropic,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    apiResp.Error.Message,
			}
		}
		return "", statusError(ProviderAnthropic, resp, body)
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("API error: %s", apiResp.Error.Message)
	}

	for _, content := range apiResp.Content {
		if content.Type == "text" {
			return strings.TrimSpace(content.Text), nil
		}
	}

	return "", fmt.Errorf("no text content in API response")
}
