// Package gate checks the shape of a generated article before it is stored.
package gate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Bounds used when Limits leaves a field at zero. Headline bounds count
// characters, not bytes.
const (
	DefaultMinWords    = 30
	DefaultMaxWords    = 600
	DefaultMinHeadline = 5
	DefaultMaxHeadline = 200
)

// Limits bounds body word count and headline length in characters. Zero
// fields take the defaults.
type Limits struct {
	MinWords    int
	MaxWords    int
	MinHeadline int
	MaxHeadline int
}

// DefaultLimits returns the standard bounds.
func DefaultLimits() Limits {
	return Limits{
		MinWords:    DefaultMinWords,
		MaxWords:    DefaultMaxWords,
		MinHeadline: DefaultMinHeadline,
		MaxHeadline: DefaultMaxHeadline,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MinWords <= 0 {
		l.MinWords = d.MinWords
	}
	if l.MaxWords <= 0 {
		l.MaxWords = d.MaxWords
	}
	if l.MinHeadline <= 0 {
		l.MinHeadline = d.MinHeadline
	}
	if l.MaxHeadline <= 0 {
		l.MaxHeadline = d.MaxHeadline
	}
	return l
}

// Rejection is returned when an article fails the gate. It is an expected
// outcome, not a fault.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return "gate: rejected: " + r.Reason
}

// Validate returns nil when the article passes, or a *Rejection.
func Validate(headline, body string, l Limits) error {
	l = l.withDefaults()

	words := len(strings.Fields(body))
	switch {
	case words < l.MinWords:
		return &Rejection{Reason: fmt.Sprintf("body too short: %d words, minimum %d", words, l.MinWords)}
	case words > l.MaxWords:
		return &Rejection{Reason: fmt.Sprintf("body too long: %d words, maximum %d", words, l.MaxWords)}
	}

	chars := utf8.RuneCountInString(strings.TrimSpace(headline))
	switch {
	case chars < l.MinHeadline:
		return &Rejection{Reason: fmt.Sprintf("headline too short: %d characters, minimum %d", chars, l.MinHeadline)}
	case chars > l.MaxHeadline:
		return &Rejection{Reason: fmt.Sprintf("headline too long: %d characters, maximum %d", chars, l.MaxHeadline)}
	}
	return nil
}
