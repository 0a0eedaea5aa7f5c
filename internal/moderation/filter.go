// Package moderation screens group messages against a word blocklist and a
// set of spam patterns.
package moderation

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

type Verdict int

const (
	Clean Verdict = iota
	Blocklisted
	SpamPattern
)

func (v Verdict) String() string {
	switch v {
	case Blocklisted:
		return "blocklisted"
	case SpamPattern:
		return "spam"
	default:
		return "clean"
	}
}

// strategy inspects lower-cased text and reports a verdict when it matches.
type strategy func(text string) (Verdict, bool)

// Filter is immutable after construction and safe for concurrent use.
type Filter struct {
	words    []string
	patterns []*regexp.Regexp
	order    []strategy
}

// New builds a filter from the given words and regular expressions.
func New(words, patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			f.words = append(f.words, w)
		}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "compile spam pattern %q", p)
		}
		f.patterns = append(f.patterns, re)
	}

	// Blocklist first, spam second. The first strategy that matches decides.
	f.order = []strategy{f.matchBlocklist, f.matchSpam}
	return f, nil
}

// Default returns the filter with the built-in rules plus any extras.
func Default(extraWords, extraPatterns []string) (*Filter, error) {
	words := append(append([]string{}, DefaultBlockedWords...), extraWords...)
	patterns := append(append([]string{}, DefaultSpamPatterns...), extraPatterns...)
	return New(words, patterns)
}

// Evaluate classifies a message. Matching is case-insensitive.
func (f *Filter) Evaluate(text string) Verdict {
	lowered := strings.ToLower(text)
	for _, match := range f.order {
		if v, ok := match(lowered); ok {
			return v
		}
	}
	return Clean
}

func (f *Filter) matchBlocklist(text string) (Verdict, bool) {
	for _, w := range f.words {
		if strings.Contains(text, w) {
			return Blocklisted, true
		}
	}
	return Clean, false
}

func (f *Filter) matchSpam(text string) (Verdict, bool) {
	for _, re := range f.patterns {
		if re.MatchString(text) {
			return SpamPattern, true
		}
	}
	return Clean, false
}
