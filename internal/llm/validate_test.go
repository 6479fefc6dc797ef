package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQuizJSON = `{
	"title": "Go Basics Quiz",
	"questions": [
		{"id": 1, "question": "What is a goroutine?", "options": ["A lightweight thread", "A package", "A compiler", "A loop"], "correct": "A lightweight thread"}
	]
}`

func TestValidateQuizPayload_Valid(t *testing.T) {
	assert.NoError(t, ValidateQuizPayload(validQuizJSON))
}

func TestValidateQuizPayload_NotJSON(t *testing.T) {
	err := ValidateQuizPayload("Sure! Here is your quiz: 1. What is...")
	var mal *MalformedOutputError
	require.ErrorAs(t, err, &mal)
}

func TestValidateQuizPayload_MissingCorrectField(t *testing.T) {
	payload := `{
		"title": "Quiz",
		"questions": [
			{"id": 1, "question": "Q?", "options": ["a", "b", "c", "d"]}
		]
	}`
	err := ValidateQuizPayload(payload)
	var mal *MalformedOutputError
	require.ErrorAs(t, err, &mal)
}

func TestValidateQuizPayload_WrongOptionCount(t *testing.T) {
	payload := `{
		"title": "Quiz",
		"questions": [
			{"id": 1, "question": "Q?", "options": ["a", "b", "c"], "correct": "a"}
		]
	}`
	err := ValidateQuizPayload(payload)
	var mal *MalformedOutputError
	require.ErrorAs(t, err, &mal)
}

func TestValidateQuizPayload_CorrectNotAmongOptions(t *testing.T) {
	payload := `{
		"title": "Quiz",
		"questions": [
			{"id": 1, "question": "Q?", "options": ["a", "b", "c", "d"], "correct": "e"}
		]
	}`
	err := ValidateQuizPayload(payload)
	var mal *MalformedOutputError
	require.ErrorAs(t, err, &mal)
}

func TestValidateQuizPayload_EmptyQuestions(t *testing.T) {
	err := ValidateQuizPayload(`{"title": "Quiz", "questions": []}`)
	var mal *MalformedOutputError
	require.ErrorAs(t, err, &mal)
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "unconfigured", FailureKind(ErrUnconfigured))
	assert.Equal(t, "malformed_output", FailureKind(&MalformedOutputError{Err: errors.New("bad")}))
	assert.Equal(t, "upstream_error", FailureKind(&UpstreamError{Provider: "groq", Err: errors.New("503")}))
	assert.Equal(t, "upstream_error", FailureKind(errors.New("anything else")))
}
