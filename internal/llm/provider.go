package llm

import "context"

// Capability 一次AI调用的能力类型，决定提示词和降级行为
type Capability string

const (
	CapabilityChat               Capability = "chat"
	CapabilityVideoAnalysis      Capability = "video-analysis"
	CapabilityQuestionGeneration Capability = "question-generation"
	CapabilityQuizGeneration     Capability = "quiz-generation"
	CapabilityFeedback           Capability = "feedback"
)

// Message 对话历史中的一条消息
type Message struct {
	Role    string `json:"role"` // user 或 assistant
	Content string `json:"content"`
}

// Request 一次补全请求。Prompt是本次用户输入，System是能力相关的系统提示词，
// History是可选的多轮上下文。JSONMode要求供应商输出JSON对象（测验生成用）。
// Fallback由调用方预先算好，所有层级都失败时原样返回
type Request struct {
	Capability Capability
	System     string
	Prompt     string
	History    []Message
	JSONMode   bool
	Fallback   string
}

// Provider 包装一个外部补全能力。统一签名，统一失败契约：
// 未配置返回ErrUnconfigured，调用失败返回*UpstreamError，
// 适配器内部不做重试，超时由调用方通过ctx控制
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}
