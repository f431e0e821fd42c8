package notifier

import (
	"fmt"

	"evergreen/internal/decision"
	"evergreen/internal/pkg/money"
	"evergreen/internal/pkg/text"
	"evergreen/internal/store"
)

const reasoningPreview = 280

// DecisionMessage 将一次共识决策转换为推送消息。
func DecisionMessage(rec store.DecisionRecord) StructuredMessage {
	icon := "🟢"
	if rec.ConsensusDirection == decision.DirectionNo {
		icon = "🔴"
	}
	title := fmt.Sprintf("%s %s $%s", rec.MarketSymbol, rec.ConsensusDirection, money.FormatUSD(rec.ConsensusSize))

	market := []string{
		"Price: " + money.Fixed(rec.MarketPrice, 4),
		fmt.Sprintf("Confidence: %s%%", money.Fixed(rec.ConsensusConfidence, 1)),
	}
	if rec.MarketQuestion != "" {
		market = append([]string{rec.MarketQuestion}, market...)
	}

	agents := make([]string, 0, len(rec.AgentDecisions))
	for _, a := range rec.AgentDecisions {
		line := fmt.Sprintf("%s: %s %s%% $%s", a.AgentName, a.FinalDirection,
			money.Fixed(a.FinalConfidence, 0), money.FormatUSD(a.FinalSize))
		if a.FinalDirection != a.InitialDirection {
			line += fmt.Sprintf(" (was %s)", a.InitialDirection)
		}
		agents = append(agents, line)
	}

	return StructuredMessage{
		Icon:  icon,
		Title: title,
		Sections: []MessageSection{
			{Title: "Market", Lines: market},
			{Title: "Agents", Lines: agents},
		},
		Footer:    text.Truncate(rec.ConsensusReasoning, reasoningPreview),
		Timestamp: rec.Timestamp,
	}
}
