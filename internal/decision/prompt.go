package decision

import (
	"fmt"
	"strings"

	"evergreen/internal/persona"
	"evergreen/internal/pkg/money"
	"evergreen/internal/types"
)

const decisionSchema = `Return your decision as a JSON object:
{
  "direction": "YES" or "NO",
  "confidence": number 0-100,
  "size": number (position size in USD, 0 if direction is NO),
  "reasoning": "string"
}`

const sentenceRule = "Your reasoning must be EXACTLY 4 sentences, each providing a distinct point supporting your decision."

// BuildAgentPrompt renders the system and user messages for one persona.
func BuildAgentPrompt(p persona.Persona, market types.MarketData, data types.AgentData) (string, string) {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(p.Context(market, data), "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Using your %s perspective, evaluate this opportunity. Consider:\n", strings.ToLower(p.Title())))
	for i, c := range p.Considerations() {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, c))
	}
	sb.WriteString("\n")
	sb.WriteString(decisionSchema)
	sb.WriteString("\n\n")
	sb.WriteString(sentenceRule)
	if focus := strings.TrimSpace(p.Focus()); focus != "" {
		sb.WriteString(" ")
		sb.WriteString(focus)
	}
	return p.Instructions(), sb.String()
}

const debateSystem = "You moderate a single debate round between five trading agents. You answer on behalf of every agent and return strict JSON."

// BuildDebatePrompt shows every agent the others' calls and asks for revisions.
func BuildDebatePrompt(outputs []AgentOutput) (string, string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d agents have made an initial decision on the same opportunity. Each can now read the others and refine its own call.\n\n", len(outputs)))
	sb.WriteString("Current Agent Decisions:\n")
	for _, o := range outputs {
		d := o.Decision
		sb.WriteString(fmt.Sprintf("\n%s:\n- Direction: %s\n- Confidence: %s%%\n- Size: $%s\n- Reasoning: %s\n",
			o.Agent, d.Direction, formatNumber(d.Confidence), money.FormatUSD(d.Size), d.Reasoning))
	}
	sb.WriteString(`
Your task:
1. Review all agent decisions
2. Let each agent refine its decision after reading the others' reasoning
3. An agent may strengthen, moderate or reverse its position if convinced
4. Each agent's updated reasoning must reference points raised by other agents

Return a JSON object of the form {"decisions": [...]} where the array holds exactly one entry per agent:
`)
	sb.WriteString("[\n")
	for i, o := range outputs {
		sb.WriteString(fmt.Sprintf(`  {"agent": %q, "decision": {"direction": "YES" or "NO", "confidence": number 0-100, "size": number (USD), "reasoning": "EXACTLY 4 sentences referencing the debate"}}`, o.Agent))
		if i < len(outputs)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("]\n\nKeep every agent's name unchanged and preserve each agent's distinct perspective.")
	return debateSystem, sb.String()
}
