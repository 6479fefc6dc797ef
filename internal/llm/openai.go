package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"learnhub_backend/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAICompatProvider 走OpenAI chat-completions协议的供应商适配器。
// BaseURL可覆盖，因此同一实现同时服务OpenAI层和Groq层
type OpenAICompatProvider struct {
	name   string
	client *openai.Client
	model  string
}

func NewOpenAIProvider(cfg config.ProviderConfig) *OpenAICompatProvider {
	return newCompatProvider("openai", cfg, defaultOpenAIModel)
}

func newCompatProvider(name string, cfg config.ProviderConfig, defaultModel string) *OpenAICompatProvider {
	p := &OpenAICompatProvider{name: name}
	if cfg.APIKey == "" {
		// 未配置：保留空client，Complete时直接报ErrUnconfigured
		return p
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	p.client = openai.NewClientWithConfig(clientCfg)
	p.model = cfg.Model
	if p.model == "" {
		p.model = defaultModel
	}
	return p
}

func (p *OpenAICompatProvider) Name() string {
	return p.name
}

func (p *OpenAICompatProvider) Complete(ctx context.Context, req Request) (string, error) {
	if p.client == nil {
		return "", ErrUnconfigured
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    buildMessages(req),
		Temperature: 0.7,
		MaxTokens:   1500,
		TopP:        0.9,
	}

	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", p.mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Provider: p.name, Err: fmt.Errorf("no choices in response")}
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", &UpstreamError{Provider: p.name, Err: fmt.Errorf("empty completion")}
	}
	return content, nil
}

func (p *OpenAICompatProvider) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return &UpstreamError{Provider: p.name, Err: fmt.Errorf("rejected credentials: %w", err)}
		}
	}
	return &UpstreamError{Provider: p.name, Err: err}
}

func buildMessages(req Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	return messages
}
