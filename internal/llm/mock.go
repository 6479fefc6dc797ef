package llm

import (
	"context"
	"errors"
	"sync"
)

// MockResponse 预置响应，按FIFO顺序返回
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider 测试用的确定性Provider，记录所有收到的请求
type MockProvider struct {
	mu        sync.Mutex
	name      string
	responses []MockResponse
	Calls     []Request
}

func NewMockProvider(name string, responses ...MockResponse) *MockProvider {
	return &MockProvider{name: name, responses: responses}
}

func (m *MockProvider) Name() string {
	return m.name
}

// Complete 返回下一个预置响应；队列为空时报UpstreamError
func (m *MockProvider) Complete(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return "", &UpstreamError{Provider: m.name, Err: errors.New("no responses queued")}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Content, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
