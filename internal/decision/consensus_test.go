package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateMajorityProperty(t *testing.T) {
	for mask := 0; mask < 32; mask++ {
		dirs := make([]Direction, 5)
		sizes := make([]float64, 5)
		yes := 0
		for i := range dirs {
			dirs[i] = DirectionNo
			sizes[i] = float64((i + 1) * 100)
			if mask&(1<<i) != 0 {
				dirs[i] = DirectionYes
				yes++
			}
		}
		outs := outputsFrom(dirs, []float64{50, 60, 70, 80, 90}, sizes)
		c, err := Aggregate(outs)
		require.NoError(t, err)

		want := DirectionNo
		if yes > 5-yes {
			want = DirectionYes
		}
		assert.Equal(t, want, c.Direction, "mask %05b", mask)

		var sum float64
		var n int
		for i := range dirs {
			if dirs[i] == want {
				sum += sizes[i]
				n++
			}
		}
		assert.InDelta(t, sum/float64(n), c.Size, 1e-9, "mask %05b", mask)
	}
}

func TestAggregateSizeUsesMajorityOnly(t *testing.T) {
	outs := outputsFrom(
		[]Direction{DirectionYes, DirectionYes, DirectionYes, DirectionNo, DirectionNo},
		[]float64{60, 70, 80, 90, 90},
		[]float64{100, 200, 300, 5000, 5000},
	)
	c, err := Aggregate(outs)
	require.NoError(t, err)
	assert.Equal(t, DirectionYes, c.Direction)
	assert.Equal(t, 200.0, c.Size)
}

func TestAggregateMixedScenario(t *testing.T) {
	outs := outputsFrom(
		[]Direction{DirectionYes, DirectionNo, DirectionYes, DirectionNo, DirectionYes},
		[]float64{70, 65, 60, 75, 55},
		[]float64{500, 0, 1500, 0, 1000},
	)
	c, err := Aggregate(outs)
	require.NoError(t, err)
	assert.Equal(t, DirectionYes, c.Direction)
	assert.Equal(t, 1000.0, c.Size)
}

func TestAggregateIsIdempotent(t *testing.T) {
	outs := initialOutputs()
	a, err := Aggregate(outs)
	require.NoError(t, err)
	b, err := Aggregate(outs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, initialOutputs(), outs)
}

func TestAggregateContractViolations(t *testing.T) {
	_, err := Aggregate(initialOutputs()[:4])
	var cerr *ContractError
	assert.ErrorAs(t, err, &cerr)

	bad := initialOutputs()
	bad[2].Decision.Direction = "HOLD"
	_, err = Aggregate(bad)
	assert.ErrorAs(t, err, &cerr)

	_, err = Aggregate(nil)
	assert.ErrorAs(t, err, &cerr)
}

func TestWeightedConfidence(t *testing.T) {
	same := outputsFrom(
		[]Direction{DirectionYes, DirectionNo, DirectionYes, DirectionNo, DirectionYes},
		[]float64{80, 80, 80, 80, 80}, []float64{1, 0, 1, 0, 1},
	)
	assert.InDelta(t, 80, WeightedConfidence(same), 1e-9)

	outs := outputsFrom(
		[]Direction{DirectionYes, DirectionYes, DirectionYes, DirectionYes, DirectionYes},
		[]float64{100, 0, 0, 0, 0}, []float64{0, 0, 0, 0, 0},
	)
	// Fundamental carries 0.25 of the total weight.
	assert.InDelta(t, 25, WeightedConfidence(outs), 1e-9)

	quantOnly := outputsFrom(
		[]Direction{DirectionYes, DirectionYes, DirectionYes, DirectionYes, DirectionYes},
		[]float64{0, 100, 0, 0, 0}, []float64{0, 0, 0, 0, 0},
	)
	assert.InDelta(t, 30, WeightedConfidence(quantOnly), 1e-9)

	unknown := []AgentOutput{output("MacroAgent", DirectionYes, 40, 0), output("QuantAgent", DirectionYes, 80, 0)}
	assert.InDelta(t, (40*0.10+80*0.30)/0.40, WeightedConfidence(unknown), 1e-9)
	assert.Equal(t, 0.0, WeightedConfidence(nil))
}

func TestWeightedConfidenceOrderInvariant(t *testing.T) {
	outs := initialOutputs()
	reversed := make([]AgentOutput, len(outs))
	for i := range outs {
		reversed[len(outs)-1-i] = outs[i]
	}
	assert.Equal(t, WeightedConfidence(outs), WeightedConfidence(reversed))
}

func TestSummarize(t *testing.T) {
	outs := outputsFrom(
		[]Direction{DirectionYes, DirectionNo, DirectionYes, DirectionNo, DirectionYes},
		[]float64{70, 90, 60, 90, 50},
		[]float64{500, 0, 1500, 0, 1000},
	)
	c, err := Aggregate(outs)
	require.NoError(t, err)
	assert.Equal(t,
		"The consensus decision is to take a long position with a position size of $1,000 based on weighted analysis from 5 specialized AI agents. "+
			"3 agents recommend YES with an average confidence of 60.0%, while 2 agents recommend the opposite. "+
			"The QuantAgent shows the highest confidence at 90% and recommends NO, contributing significantly to the final decision. "+
			"This decision reflects a balanced evaluation across fundamental analysis, quantitative metrics, sentiment indicators, risk management, and strategic market structure considerations.",
		c.Reasoning)

	top, ok := TopAgent(outs)
	require.True(t, ok)
	assert.Equal(t, "QuantAgent", top.Agent)
}

func TestSummarizeNoConsensus(t *testing.T) {
	outs := outputsFrom(
		[]Direction{DirectionNo, DirectionNo, DirectionNo, DirectionNo, DirectionYes},
		[]float64{50, 60, 70, 80, 40}, []float64{0, 0, 0, 0, 800},
	)
	c, err := Aggregate(outs)
	require.NoError(t, err)
	assert.Equal(t, DirectionNo, c.Direction)
	assert.Equal(t, 0.0, c.Size)
	assert.Contains(t, c.Reasoning, "avoid or take a short position with a position size of $0")
	assert.Contains(t, c.Reasoning, "4 agents recommend NO with an average confidence of 65.0%, while 1 agents recommend the opposite.")
}
