package errors

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatForCLI(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
		{
			name: "with suggestion",
			err: New(ErrCodeMissingCredentials, "OPENAI_API_KEY is not set", nil).
				WithSuggestion("Export it or add it to .env"),
			expected: "Error: OPENAI_API_KEY is not set\n  Hint: Export it or add it to .env\n  Code: ERR_103_MISSING_CREDENTIALS\n",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: "Error: boom\n  Code: ERR_501_INTERNAL\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatForCLI(tt.err))
		})
	}
}

func TestLogAttrs(t *testing.T) {
	// Given: a structured error with details
	err := New(ErrCodeCorruptIndex, "invalid record", errors.New("unexpected EOF")).
		WithDetail("line", "7").
		WithDetail("path", "data/corpus_index.jsonl")

	// When: converting to attributes
	attrs := LogAttrs(err)

	// Then: code, cause and sorted details are present
	byKey := map[string]slog.Value{}
	for _, a := range attrs {
		byKey[a.Key] = a.Value
	}
	assert.Equal(t, ErrCodeCorruptIndex, byKey["error_code"].String())
	assert.Equal(t, "unexpected EOF", byKey["cause"].String())
	assert.Equal(t, "7", byKey["detail_line"].String())
	assert.Equal(t, "detail_line", attrs[len(attrs)-2].Key)
	assert.Equal(t, "detail_path", attrs[len(attrs)-1].Key)

	assert.Nil(t, LogAttrs(nil))
	plain := LogAttrs(errors.New("x"))
	if assert.Len(t, plain, 1) {
		assert.Equal(t, "error", plain[0].Key)
		assert.Equal(t, "x", plain[0].Value.String())
	}
}
