package llm

import (
	"fmt"
	"time"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Options tunes the oracle's transport behavior.
type Options struct {
	Model             string
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	Backoff           time.Duration
}

func DefaultOptions() Options {
	return Options{
		RequestsPerSecond: 2,
		Burst:             4,
		MaxRetries:        3,
		Backoff:           500 * time.Millisecond,
	}
}

// NewKnowledgeOracle creates a knowledge oracle for the named provider.
// Returns an error if the provider is unknown or the API key is empty
// (except for mock).
func NewKnowledgeOracle(provider, apiKey string, opts Options, logger *zap.Logger) (domain.KnowledgeOracle, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOracle(NewOpenAIClient(apiKey, opts.Model), opts, logger), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		return NewOracle(NewAnthropicClient(apiKey, opts.Model), opts, logger), nil

	case ProviderMock:
		return NewMockOracle(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, anthropic, mock)", provider)
	}
}
