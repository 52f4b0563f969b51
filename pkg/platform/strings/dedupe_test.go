package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		fold     bool
		expected []string
	}{
		{name: "nil", input: nil, expected: nil},
		{name: "only blanks", input: []string{" ", ""}, expected: nil},
		{name: "trims and keeps first occurrence", input: []string{" b", "a ", "b"}, expected: []string{"b", "a"}},
		{name: "case sensitive without fold", input: []string{"Cooling-Off", "cooling-off"}, expected: []string{"Cooling-Off", "cooling-off"}},
		{name: "fold merges case variants", input: []string{"Cooling-Off", " cooling-off "}, fold: true, expected: []string{"cooling-off"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input, tt.fold))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"2026-01-26", "2026-08-15"}, SplitList("2026-01-26, 2026-08-15,,2026-01-26"))
	assert.Nil(t, SplitList(""))
}
