package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/lazypower/nudge/internal/config"
)

// Client is the interface for oracle providers: complete a prompt, return text.
// No output schema is guaranteed; callers parse defensively (see ParseJSON).
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultMaxTokens = 500
)

// NewClient creates an LLM client based on the config provider setting.
func NewClient(cfg config.LLMConfig) (Client, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	switch cfg.Provider {
	case "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("groq provider requires GROQ_API_KEY or llm.api_key")
		}
		model := cfg.Model
		if model == "" {
			model = "llama-3.3-70b-versatile"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = groqBaseURL
		}
		return NewOpenAI("groq", cfg.APIKey, baseURL, model, timeout), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY or llm.api_key")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAI("openai", cfg.APIKey, cfg.BaseURL, model, timeout), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or llm.api_key")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.APIKey, model, timeout), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
