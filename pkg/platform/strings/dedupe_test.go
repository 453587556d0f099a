package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace only", raw: "  ", want: nil},
		{name: "single broker", raw: "localhost:9092", want: []string{"localhost:9092"}},
		{name: "trims and drops blanks", raw: " k1:9092, k2:9092,, ", want: []string{"k1:9092", "k2:9092"}},
		{name: "drops repeats keeping order", raw: "k2:9092,k1:9092,k2:9092", want: []string{"k2:9092", "k1:9092"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.raw))
		})
	}
}

func TestDedupeAndTrim_EmptyInput(t *testing.T) {
	assert.Empty(t, DedupeAndTrim(nil))
	assert.Equal(t, []string{}, DedupeAndTrim([]string{" ", ""}))
}
