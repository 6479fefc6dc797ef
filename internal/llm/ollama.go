package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"learnhub_backend/internal/config"
)

const defaultOllamaModel = "llama3"

// OllamaProvider 本地自托管层。Ollama没有Go SDK，直接走它的原生 /api/chat 接口
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(cfg config.ProviderConfig) *OllamaProvider {
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: cfg.BaseURL,
		model:   model,
		client:  &http.Client{},
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req Request) (string, error) {
	if p.baseURL == "" {
		return "", ErrUnconfigured
	}

	messages := make([]Message, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: "user", Content: req.Prompt})

	body := ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
	}
	if req.JSONMode {
		body.Format = "json"
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", &UpstreamError{Provider: p.Name(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &UpstreamError{Provider: p.Name(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &UpstreamError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{
			Provider: p.Name(),
			Err:      fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(respBody)),
		}
	}

	var result ollamaChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &UpstreamError{Provider: p.Name(), Err: err}
	}
	if result.Error != "" {
		return "", &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("%s", result.Error)}
	}
	if result.Message.Content == "" {
		return "", &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("empty completion")}
	}

	return result.Message.Content, nil
}
