package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims surrounding whitespace", input: "  hello world \n", want: "hello world"},
		{name: "empty stays empty", input: "", want: ""},
		{name: "whitespace only becomes empty", input: " \t\n\r ", want: ""},
		{name: "inner whitespace untouched", input: "a  b", want: "a  b"},
		{name: "unchanged short text", input: "clip", want: "clip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_TruncatesLongInput(t *testing.T) {
	long := strings.Repeat("x", MaxContentLen+500)
	got := Normalize(long)
	assert.Len(t, got, MaxContentLen)
	assert.Equal(t, strings.Repeat("x", MaxContentLen), got)
}

func TestNormalize_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("п", MaxContentLen+10)
	got := Normalize(long)
	assert.Equal(t, MaxContentLen, len([]rune(got)))
	// результат остаётся валидным UTF-8
	assert.Equal(t, strings.Repeat("п", MaxContentLen), got)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"  hello  ",
		"",
		" \t ",
		strings.Repeat("long ", 10000),
		"многострочный\nтекст",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
		assert.LessOrEqual(t, len([]rune(once)), MaxContentLen)
	}
}
