package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "Here you go:\n```json\n{\"a\": 1}\n```\nthanks", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 2}\n```", `{"a": 2}`},
		{"fence on one line", "```{\"a\": 3}```", `{"a": 3}`},
		{"prose around bare", `Sure! {"layout": []} Hope that helps.`, `{"layout": []}`},
		{"braces in strings", `x {"s": "a } b { c"} y`, `{"s": "a } b { c"}`},
		{"escaped quote", `{"s": "say \"}\""}`, `{"s": "say \"}\""}`},
		{"skips invalid first span", `{not json} then {"ok": true}`, `{"ok": true}`},
		{"nested", `{"a": {"b": [1, {"c": 2}]}}`, `{"a": {"b": [1, {"c": 2}]}}`},
		{"skips non-object fence", "```\n[1,2]\n```\n{\"a\": 4}", `{"a": 4}`},
		{"first fence wins", "```json\n{\"a\": 5}\n```\n```json\n{\"a\": 6}\n```", `{"a": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Object(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectNone(t *testing.T) {
	for _, in := range []string{"", "no json here", "{unterminated", `[1, 2]`, "```json\n{bad}\n```"} {
		_, err := Object(in)
		assert.ErrorIs(t, err, ErrNoObject, in)
	}
}

func TestDecode(t *testing.T) {
	type draft struct {
		Headline string `json:"headline"`
		Body     string `json:"body"`
	}

	got, err := Decode[draft]("```json\n{\"headline\": \"H\", \"body\": \"B\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, draft{Headline: "H", Body: "B"}, got)

	_, err = Decode[draft]("nothing")
	assert.ErrorIs(t, err, ErrNoObject)

	_, err = Decode[draft](`{"headline": 7}`)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoObject)
}
