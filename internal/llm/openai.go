package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint. Groq is
// the default deployment target.
type OpenAI struct {
	name   string
	model  string
	client *openai.Client
}

// NewOpenAI creates a chat-completions client. An empty baseURL keeps the
// library default (api.openai.com).
func NewOpenAI(name, apiKey, baseURL, model string, timeout time.Duration) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAI{
		name:   name,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Complete sends a single user turn (plus optional system turn).
func (o *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		MaxTokens:   maxTokens(req),
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s completion: no choices returned", o.name)
	}

	return &Response{
		Content:    resp.Choices[0].Message.Content,
		Provider:   o.name,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
