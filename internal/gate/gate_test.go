package gate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		headline string
		body     string
		reason   string
	}{
		{"passes", "Twenty chars headline", words(150), ""},
		{"short body", "Twenty chars headline", words(10), "too short"},
		{"long body", "Twenty chars headline", words(700), "too long"},
		{"one char headline", "X", words(150), "headline too short"},
		{"long headline", strings.Repeat("h", 201), words(150), "headline too long"},
		{"lower bounds inclusive", "Five!", words(30), ""},
		{"upper bounds inclusive", strings.Repeat("h", 200), words(600), ""},
		{"headline whitespace trimmed", "   ab   ", words(50), "headline too short"},
		{"headline counts runes", "ééééé", words(50), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.headline, tt.body, DefaultLimits())
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var rej *Rejection
			require.True(t, errors.As(err, &rej), "want *Rejection, got %v", err)
			assert.Contains(t, rej.Reason, tt.reason)
		})
	}
}

func TestValidateZeroLimitsUseDefaults(t *testing.T) {
	assert.NoError(t, Validate("A fine headline", words(100), Limits{}))
	assert.Error(t, Validate("A fine headline", words(5), Limits{}))
}

func TestValidateCustomLimits(t *testing.T) {
	l := Limits{MinWords: 3, MaxWords: 5}
	assert.NoError(t, Validate("Headline", words(4), l))
	assert.ErrorContains(t, Validate("Headline", words(6), l), "too long")
}
