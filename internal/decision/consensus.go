package decision

import (
	"fmt"
	"sort"
	"strings"

	"evergreen/internal/persona"
	"evergreen/internal/pkg/money"
)

// Aggregate reduces exactly five outputs to one call. With five voters and
// two directions a tie cannot occur, so anything other than five outputs is
// rejected rather than resolved.
func Aggregate(outputs []AgentOutput) (ConsensusDecision, error) {
	if err := checkConsensusInput(outputs); err != nil {
		return ConsensusDecision{}, err
	}
	yes, no := Tally(outputs)
	majority, dir := no, DirectionNo
	if len(yes) > len(no) {
		majority, dir = yes, DirectionYes
	}
	sum := 0.0
	for _, o := range majority {
		sum += o.Decision.Size
	}
	c := ConsensusDecision{Direction: dir, Size: sum / float64(len(majority))}
	c.Reasoning = Summarize(c, outputs)
	return c, nil
}

func checkConsensusInput(outputs []AgentOutput) error {
	if len(outputs) != persona.Count {
		return &ContractError{Stage: "consensus", Reason: fmt.Sprintf("expected %d outputs, got %d", persona.Count, len(outputs))}
	}
	for _, o := range outputs {
		if err := Validate(o.Decision); err != nil {
			return &ContractError{Stage: "consensus", Reason: fmt.Sprintf("%s: %v", o.Agent, err)}
		}
	}
	return nil
}

// Tally splits outputs by direction, preserving input order.
func Tally(outputs []AgentOutput) (yes, no []AgentOutput) {
	for _, o := range outputs {
		if o.Decision.Direction == DirectionYes {
			yes = append(yes, o)
		} else {
			no = append(no, o)
		}
	}
	return yes, no
}

// WeightedConfidence is the weight-table mean of every agent's confidence.
// Terms are summed in name order so the result does not depend on input order.
func WeightedConfidence(outputs []AgentOutput) float64 {
	sorted := cloneOutputs(outputs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Agent < sorted[j].Agent })
	var sum, total float64
	for _, o := range sorted {
		w := persona.WeightOf(o.Agent)
		sum += o.Decision.Confidence * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// TopAgent is the highest-confidence output; the earliest one wins ties.
func TopAgent(outputs []AgentOutput) (AgentOutput, bool) {
	if len(outputs) == 0 {
		return AgentOutput{}, false
	}
	top := outputs[0]
	for _, o := range outputs[1:] {
		if o.Decision.Confidence > top.Decision.Confidence {
			top = o
		}
	}
	return top, true
}

// Summarize renders the four-sentence consensus narrative.
func Summarize(c ConsensusDecision, outputs []AgentOutput) string {
	yes, no := Tally(outputs)
	support, oppose := no, yes
	action := "avoid or take a short position"
	if c.Direction == DirectionYes {
		support, oppose = yes, no
		action = "take a long position"
	}
	avg := 0.0
	for _, o := range support {
		avg += o.Decision.Confidence
	}
	if len(support) > 0 {
		avg /= float64(len(support))
	}

	sentences := []string{
		fmt.Sprintf("The consensus decision is to %s with a position size of $%s based on weighted analysis from %d specialized AI agents.",
			action, money.FormatUSD(c.Size), len(outputs)),
		fmt.Sprintf("%d agents recommend %s with an average confidence of %s%%, while %d agents recommend the opposite.",
			len(support), c.Direction, money.Fixed(avg, 1), len(oppose)),
	}
	if top, ok := TopAgent(outputs); ok {
		sentences = append(sentences, fmt.Sprintf("The %s shows the highest confidence at %s%% and recommends %s, contributing significantly to the final decision.",
			top.Agent, formatNumber(top.Decision.Confidence), top.Decision.Direction))
	}
	sentences = append(sentences, "This decision reflects a balanced evaluation across fundamental analysis, quantitative metrics, sentiment indicators, risk management, and strategic market structure considerations.")
	return strings.Join(sentences, " ")
}
