package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// quizSchemaDef AI生成测验的结构约束：非空题目列表，每题恰好4个选项且有答案
var quizSchemaDef = map[string]any{
	"type":     "object",
	"required": []any{"title", "questions"},
	"properties": map[string]any{
		"id":    map[string]any{"type": "string"},
		"title": map[string]any{"type": "string", "minLength": 1},
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "question", "options", "correct"},
				"properties": map[string]any{
					"id":       map[string]any{"type": "integer"},
					"question": map[string]any{"type": "string", "minLength": 1},
					"options": map[string]any{
						"type":     "array",
						"minItems": 4,
						"maxItems": 4,
						"items":    map[string]any{"type": "string"},
					},
					"correct": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

var (
	quizSchemaOnce sync.Once
	quizSchema     *jsonschema.Schema
	quizSchemaErr  error
)

func compiledQuizSchema() (*jsonschema.Schema, error) {
	quizSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://quiz.json", quizSchemaDef); err != nil {
			quizSchemaErr = err
			return
		}
		quizSchema, quizSchemaErr = c.Compile("schema://quiz.json")
	})
	return quizSchema, quizSchemaErr
}

// ValidateQuizPayload 校验测验JSON的结构。正确答案必须与某个选项逐字相等，
// 这一点schema表达不了，单独检查。校验失败返回*MalformedOutputError
func ValidateQuizPayload(content string) error {
	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return &MalformedOutputError{Content: content, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	schema, err := compiledQuizSchema()
	if err != nil {
		return fmt.Errorf("compile quiz schema: %w", err)
	}

	if err := schema.Validate(parsed); err != nil {
		return &MalformedOutputError{Content: content, Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	var quiz struct {
		Questions []struct {
			Options []string `json:"options"`
			Correct string   `json:"correct"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &quiz); err != nil {
		return &MalformedOutputError{Content: content, Err: err}
	}

	for i, q := range quiz.Questions {
		match := false
		for _, opt := range q.Options {
			if opt == q.Correct {
				match = true
				break
			}
		}
		if !match {
			return &MalformedOutputError{
				Content: content,
				Err:     fmt.Errorf("question %d: correct answer not present among options", i+1),
			}
		}
	}

	return nil
}
