package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinInt(t *testing.T) {
	tests := []struct {
		name string
		a, b int
		want int
	}{
		{"FirstSmaller", 3, 5, 3},
		{"SecondSmaller", 5, 3, 3},
		{"Equal", 4, 4, 4},
		{"Negative", -1, 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, minInt(tt.a, tt.b))
		})
	}
}

func TestMultiSelectPromptEmpty(t *testing.T) {
	// Empty items short-circuit before any interactive prompt
	selected, err := MultiSelectPrompt("Test", []string{})
	assert.NoError(t, err)
	assert.Nil(t, selected)
}
