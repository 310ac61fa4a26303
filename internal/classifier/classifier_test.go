package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	chain := Default()

	tests := []struct {
		text string
		want Verdict
	}{
		{"What are your opening hours?", VerdictNone},
		{"I have been feeling suicidal lately", VerdictCrisis},
		{"I want to die", VerdictCrisis},
		{"I keep thinking about SELF-HARM", VerdictCrisis},
		{"can you write my essay for me", VerdictOffTopic},
		{"this shit is broken", VerdictOffTopic},
		{"where is the history section", VerdictNone},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := chain.Classify(tt.text)
			assert.Equal(t, tt.want, r.Verdict)
			assert.Equal(t, tt.want != VerdictNone, r.Matched())
		})
	}
}

func TestChain_FirstMatchWins(t *testing.T) {
	a, err := NewPatternClassifier("a", "first", []string{`hello`})
	require.NoError(t, err)
	b, err := NewPatternClassifier("b", "second", []string{`hello`})
	require.NoError(t, err)

	r := Chain{nil, a, b}.Classify("HELLO there")
	assert.Equal(t, Verdict("a"), r.Verdict)
	assert.Equal(t, "first", r.Response)
}

func TestNewPatternClassifier_BadPattern(t *testing.T) {
	_, err := NewPatternClassifier("x", "", []string{`(`})
	assert.Error(t, err)
}
