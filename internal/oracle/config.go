package oracle

import (
	"fmt"
	"strings"
	"time"

	"github.com/nvandessel/hivesight/internal/constants"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// ClientConfig configures an oracle client.
type ClientConfig struct {
	// Provider identifies the backend: "openai", "ollama", "anthropic", "gemini" or "mock".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider (not used for ollama or mock).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint. Used for ollama or custom OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the default model identifier when a request names none.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout is the maximum duration to wait for a single response.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider: ProviderOpenAI,
		Model:    openAIDefaultModel,
		Timeout:  constants.DefaultOracleTimeout,
	}
}

// New builds the oracle selected by cfg.Provider.
func New(cfg ClientConfig) (Oracle, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAIOracle(cfg), nil
	case ProviderOllama:
		if cfg.BaseURL == "" {
			cfg.BaseURL = ollamaDefaultBaseURL
		}
		return NewOpenAIOracle(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicOracle(cfg), nil
	case ProviderGemini:
		g, err := NewGeminiOracle(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderMock:
		return NewMockOracle(), nil
	}
	return nil, fmt.Errorf("unknown oracle provider %q (valid: openai, ollama, anthropic, gemini, mock)", cfg.Provider)
}
