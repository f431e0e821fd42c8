package decision

import (
	"context"
	"fmt"

	"evergreen/internal/gateway/provider"

	"github.com/stretchr/testify/mock"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) ID() string { return "mock-model" }

func (m *MockCompleter) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func purpose(name string) any {
	return mock.MatchedBy(func(p provider.ChatPayload) bool { return p.Purpose == name })
}

func decisionJSON(dir string, conf, size float64) string {
	return fmt.Sprintf(`{"direction":%q,"confidence":%v,"size":%v,"reasoning":"One. Two. Three. Four."}`, dir, conf, size)
}

func output(agent string, dir Direction, conf, size float64) AgentOutput {
	return AgentOutput{Agent: agent, Decision: AgentDecision{Direction: dir, Confidence: conf, Size: size, Reasoning: "One. Two. Three. Four."}}
}

var canonicalAgents = []string{"FundamentalAgent", "QuantAgent", "SentimentAgent", "RiskAgent", "StrategistAgent"}

func outputsFrom(dirs []Direction, confs, sizes []float64) []AgentOutput {
	out := make([]AgentOutput, len(dirs))
	for i := range dirs {
		out[i] = output(canonicalAgents[i], dirs[i], confs[i], sizes[i])
	}
	return out
}
