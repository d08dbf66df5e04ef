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
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	ollamaDefaultBaseURL = "http://localhost:11434/v1"
	openAIDefaultModel   = "gpt-4o-mini"
)

// OpenAIOracle implements Oracle against the OpenAI chat completions API or
// any compatible endpoint (Ollama, vLLM, LiteLLM).
type OpenAIOracle struct {
	apiKey   string
	baseURL  string
	model    string
	provider string
	client   *http.Client
}

// NewOpenAIOracle creates a new OpenAIOracle with the given configuration.
// If config.APIKey is empty, it falls back to the OPENAI_API_KEY environment variable.
// If config.Model is empty, it defaults to gpt-4o-mini.
func NewOpenAIOracle(config ClientConfig) *OpenAIOracle {
	apiKey := config.APIKey
	if apiKey == "" && config.BaseURL == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}

	model := config.Model
	if model == "" {
		model = openAIDefaultModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = constants.DefaultOracleTimeout
	}

	provider := ProviderOpenAI
	if strings.EqualFold(config.Provider, ProviderOllama) {
		provider = ProviderOllama
	}

	return &OpenAIOracle{
		apiKey:   apiKey,
		baseURL:  baseURL,
		model:    model,
		provider: provider,
		client:   &http.Client{Timeout: timeout},
	}
}

// openAIChatRequest represents a request to the chat completions API.
type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	N           int                 `json:"n"`
}

// openAIChatMessage represents a message in the OpenAI chat format.
type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIChatResponse represents a response from the chat completions API.
type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Name implements Oracle.
func (c *OpenAIOracle) Name() string {
	return c.provider
}

// Available returns true if the client can authenticate. Custom endpoints
// (Ollama and friends) need no key.
func (c *OpenAIOracle) Available() bool {
	return c.apiKey != "" || c.baseURL != openAIDefaultBaseURL
}

// Invoke implements Oracle.
func (c *OpenAIOracle) Invoke(ctx context.Context, prompt string, params Params) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("%s: %w: missing API key", c.provider, ErrUnavailable)
	}

	model := params.Model
	if model == "" {
		model = c.model
	}

	reqBody := openAIChatRequest{
		Model: model,
		Messages: []openAIChatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		N:           1,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var chatResp openAIChatResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &chatResp) == nil && chatResp.Error != nil && chatResp.Error.Code == "rate_limit_exceeded" {
			return "", &RateLimitError{
				Provider:   c.provider,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    chatResp.Error.Message,
			}
		}
		return "", statusError(c.provider, resp, body)
	}

	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
