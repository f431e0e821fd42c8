package decision

// Direction is the binary trade call.
type Direction string

const (
	DirectionYes Direction = "YES"
	DirectionNo  Direction = "NO"
)

func (d Direction) Valid() bool {
	return d == DirectionYes || d == DirectionNo
}

// AgentDecision is one persona's call for one run. Size is USD notional and
// is expected, not enforced, to be 0 for NO.
type AgentDecision struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Size       float64   `json:"size"`
	Reasoning  string    `json:"reasoning"`
}

// AgentOutput pairs an agent name with its current decision.
type AgentOutput struct {
	Agent    string        `json:"agent"`
	Decision AgentDecision `json:"decision"`
}

// ConsensusDecision is the single call a run produces.
type ConsensusDecision struct {
	Direction Direction `json:"direction"`
	Size      float64   `json:"size"`
	Reasoning string    `json:"reasoning"`
}

// cloneOutputs copies the slice; decisions are values so this is a deep copy.
func cloneOutputs(in []AgentOutput) []AgentOutput {
	if in == nil {
		return nil
	}
	out := make([]AgentOutput, len(in))
	copy(out, in)
	return out
}
