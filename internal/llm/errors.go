package llm

import (
	"errors"
	"fmt"
)

// ErrUnconfigured 凭据或地址缺失，在任何网络调用之前检查
var ErrUnconfigured = errors.New("provider not configured")

// UpstreamError 供应商调用失败或返回不可用的输出（含超时）
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedOutputError 输出未通过结构校验（仅测验生成场景）
type MalformedOutputError struct {
	Content string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed provider output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// FailureKind 返回失败类型标签，用于日志和指标
func FailureKind(err error) string {
	var up *UpstreamError
	var mal *MalformedOutputError
	switch {
	case errors.Is(err, ErrUnconfigured):
		return "unconfigured"
	case errors.As(err, &mal):
		return "malformed_output"
	case errors.As(err, &up):
		return "upstream_error"
	default:
		return "upstream_error"
	}
}
