package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
		{"", "", 0},
		{"ab", "ba", 2},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "will bitcoin reach 100k by 2025", Normalize("  Will Bitcoin reach $100k   by 2025? "))
	assert.Equal(t, "election outcome 2028", Normalize("Election\tOutcome\n2028?"))
	assert.Equal(t, "perez wins", Normalize("Pérez wins!"))
	assert.Equal(t, "", Normalize("?!... "))
}

func TestScore(t *testing.T) {
	t.Run("identical titles score one", func(t *testing.T) {
		for _, s := range []string{"Will X happen", "Fed cuts rates in March", "a"} {
			assert.Equal(t, 1.0, Score(s, s), s)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"Will Trump win 2028", "Will Trump win in 2028"},
			{"Bitcoin price prediction", "NFL Super Bowl 2025"},
			{"Fed cuts rates in March", "Fed hikes rates in March"},
		}
		for _, p := range pairs {
			assert.Equal(t, Score(p[0], p[1]), Score(p[1], p[0]))
		}
	})

	t.Run("trailing punctuation tolerated", func(t *testing.T) {
		assert.Greater(t, Score("Will Bitcoin reach $100k by 2025?", "Will Bitcoin reach $100k by 2025"), 0.9)
	})

	t.Run("unrelated titles score low", func(t *testing.T) {
		assert.Less(t, Score("Bitcoin price prediction", "NFL Super Bowl 2025"), 0.5)
	})

	t.Run("near duplicates cross the dedup threshold", func(t *testing.T) {
		assert.GreaterOrEqual(t, Score("Election outcome 2028", "Election Outcome 2028?"), EditionDedupThreshold)
		assert.InDelta(t, 0.8636, Score("Will Trump win 2028", "Will Trump win in 2028"), 0.001)
	})

	t.Run("empty titles never match", func(t *testing.T) {
		assert.Equal(t, 0.0, Score("", ""))
		assert.Equal(t, 0.0, Score("???", "!!!"))
		assert.Equal(t, 0.0, Score("", "Will X happen"))
	})

	t.Run("bounded", func(t *testing.T) {
		s := Score("abc", "xyz")
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	})
}

func TestUpperBound(t *testing.T) {
	pairs := [][2]string{
		{"will x happen", "will x happen today"},
		{"bitcoin price prediction", "nfl super bowl 2025"},
		{"abc", "abd"},
	}
	for _, p := range pairs {
		assert.GreaterOrEqual(t, UpperBound(p[0], p[1]), ScoreNormalized(p[0], p[1]), p[0])
	}
	assert.Equal(t, 0.0, UpperBound("", "abc"))
}
