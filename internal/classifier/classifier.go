// Package classifier holds the text checks that run before a message reaches
// the conversation store. A match answers the user directly and leaves the
// conversation untouched.
package classifier

import (
	"regexp"
	"strings"
)

// Verdict names the classifier that matched. Empty means the text passed.
type Verdict string

const (
	VerdictNone     Verdict = ""
	VerdictCrisis   Verdict = "crisis"
	VerdictOffTopic Verdict = "off_topic"
)

// Result is a classifier decision. Response is returned to the user verbatim.
type Result struct {
	Verdict  Verdict
	Response string
}

func (r Result) Matched() bool {
	return r.Verdict != VerdictNone
}

type Classifier interface {
	Classify(text string) Result
}

// PatternClassifier matches case-insensitive regular expressions.
type PatternClassifier struct {
	verdict  Verdict
	response string
	patterns []*regexp.Regexp
}

// NewPatternClassifier compiles patterns. Each pattern is made
// case-insensitive unless it already sets flags.
func NewPatternClassifier(verdict Verdict, response string, patterns []string) (*PatternClassifier, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if !strings.HasPrefix(p, "(?") {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &PatternClassifier{verdict: verdict, response: response, patterns: compiled}, nil
}

func (c *PatternClassifier) Classify(text string) Result {
	for _, re := range c.patterns {
		if re.MatchString(text) {
			return Result{Verdict: c.verdict, Response: c.response}
		}
	}
	return Result{}
}

// Chain consults classifiers in order and stops at the first match.
type Chain []Classifier

func (ch Chain) Classify(text string) Result {
	for _, c := range ch {
		if c == nil {
			continue
		}
		if r := c.Classify(text); r.Matched() {
			return r
		}
	}
	return Result{}
}
