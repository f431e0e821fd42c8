package decision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionAccepts(t *testing.T) {
	cases := map[string]string{
		"plain":  `{"direction":"YES","confidence":70,"size":1000,"reasoning":"A. B. C. D."}`,
		"fenced": "```json\n{\"direction\":\"YES\",\"confidence\":70,\"size\":1000,\"reasoning\":\"A. B. C. D.\"}\n```",
		"prose":  `Here you go: {"direction":"YES","confidence":70,"size":1000,"reasoning":"A. B. C. D."} hope it helps`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := ParseDecision("QuantAgent", raw)
			require.NoError(t, err)
			assert.Equal(t, AgentDecision{Direction: DirectionYes, Confidence: 70, Size: 1000, Reasoning: "A. B. C. D."}, d)
		})
	}
}

func TestParseDecisionRejects(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"maybe direction", `{"direction":"MAYBE","confidence":50,"size":0,"reasoning":"..."}`, "direction"},
		{"lowercase direction", `{"direction":"yes","confidence":50,"size":0,"reasoning":"x"}`, "direction"},
		{"string confidence", `{"direction":"YES","confidence":"high","size":0,"reasoning":"x"}`, "confidence"},
		{"confidence above range", `{"direction":"YES","confidence":101,"size":0,"reasoning":"x"}`, "confidence"},
		{"negative size", `{"direction":"NO","confidence":50,"size":-1,"reasoning":"x"}`, "size"},
		{"string size", `{"direction":"NO","confidence":50,"size":"0","reasoning":"x"}`, "size"},
		{"overflowing size", `{"direction":"YES","confidence":50,"size":1e999,"reasoning":"x"}`, "size"},
		{"overflowing negative size", `{"direction":"NO","confidence":50,"size":-1e999,"reasoning":"x"}`, "size"},
		{"overflowing confidence", `{"direction":"YES","confidence":1e999,"size":0,"reasoning":"x"}`, "confidence"},
		{"blank reasoning", `{"direction":"NO","confidence":50,"size":0,"reasoning":"  "}`, "reasoning"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDecision("QuantAgent", tc.raw)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestParseDecisionParseErrors(t *testing.T) {
	for _, raw := range []string{
		"not json at all",
		`[1,2,3]`,
		`{"direction":"YES","confidence":50,"size":0}`,
	} {
		_, err := ParseDecision("RiskAgent", raw)
		var perr *ParseError
		assert.ErrorAs(t, err, &perr, raw)
	}
}

func TestValidateTyped(t *testing.T) {
	assert.NoError(t, Validate(AgentDecision{Direction: DirectionNo, Confidence: 0, Size: 0, Reasoning: "x"}))
	assert.Error(t, Validate(AgentDecision{Direction: "MAYBE", Confidence: 1, Reasoning: "x"}))
	assert.Error(t, Validate(AgentDecision{Direction: DirectionYes, Confidence: -1, Reasoning: "x"}))
	assert.Error(t, Validate(AgentDecision{Direction: DirectionYes, Confidence: 50, Size: math.Inf(1), Reasoning: "x"}))
	assert.Error(t, Validate(AgentDecision{Direction: DirectionYes, Confidence: math.NaN(), Reasoning: "x"}))
}
