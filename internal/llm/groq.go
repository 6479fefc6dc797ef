package llm

import "learnhub_backend/internal/config"

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.1-8b-instant"
)

// NewGroqProvider Groq兼容OpenAI的chat-completions协议，复用同一适配器，
// 只换默认地址和模型
func NewGroqProvider(cfg config.ProviderConfig) *OpenAICompatProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGroqBaseURL
	}
	return newCompatProvider("groq", cfg, defaultGroqModel)
}
