package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "bare object", raw: `{"direction":"YES"}`, want: `{"direction":"YES"}`, ok: true},
		{name: "object with bracket in string", raw: `Sure: {"reasoning":"see [1] and [2]"} done`, want: `{"reasoning":"see [1] and [2]"}`, ok: true},
		{name: "fenced array", raw: "```json\n[{\"agent\":\"QuantAgent\"}]\n```", want: `[{"agent":"QuantAgent"}]`, ok: true},
		{name: "escaped quote", raw: `{"a":"x\"}y"}`, want: `{"a":"x\"}y"}`, ok: true},
		{name: "unterminated", raw: `{"a":1`, ok: false},
		{name: "empty", raw: "   ", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.raw)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestPretty(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(`{"a":1}`))
	assert.Equal(t, "not json", Pretty("not json"))
}
