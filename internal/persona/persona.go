package persona

import (
	"evergreen/internal/types"
)

// Renderer turns the shared run inputs into a persona's context sections.
type Renderer func(market types.MarketData, data types.AgentData) string

// Persona is an immutable analytical viewpoint. It carries no state between
// runs; two personas differ only by text and by how they render context.
type Persona struct {
	id             ID
	title          string
	instructions   string
	considerations []string
	focus          string
	render         Renderer
}

func (p Persona) ID() ID               { return p.id }
func (p Persona) Name() string         { return p.id.Name() }
func (p Persona) Title() string        { return p.title }
func (p Persona) Instructions() string { return p.instructions }
func (p Persona) Weight() float64      { return p.id.Weight() }

// Focus is the closing emphasis appended after the sentence rule.
func (p Persona) Focus() string { return p.focus }

func (p Persona) Considerations() []string {
	out := make([]string, len(p.considerations))
	copy(out, p.considerations)
	return out
}

// Context renders the persona specific market, portfolio and history blocks.
func (p Persona) Context(market types.MarketData, data types.AgentData) string {
	if p.render == nil {
		return renderMarketBlock("Market Data", market, false)
	}
	return p.render(market, data)
}

func (p Persona) withInstructions(text string) Persona {
	p.instructions = text
	p.considerations = p.Considerations()
	return p
}

// Set is a read-only registry of the five personas.
type Set struct {
	byID map[ID]Persona
}

// Default returns the built-in personas.
func Default() Set {
	all := []Persona{fundamentalPersona(), quantPersona(), sentimentPersona(), riskPersona(), strategistPersona()}
	s := Set{byID: make(map[ID]Persona, len(all))}
	for _, p := range all {
		s.byID[p.id] = p
	}
	return s
}

func (s Set) Get(id ID) (Persona, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// All lists personas in canonical order.
func (s Set) All() []Persona {
	out := make([]Persona, 0, len(Order))
	for _, id := range Order {
		if p, ok := s.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// WithInstructions returns a copy with instruction texts replaced. Empty
// entries keep the built-in text.
func (s Set) WithInstructions(overrides map[ID]string) Set {
	next := Set{byID: make(map[ID]Persona, len(s.byID))}
	for id, p := range s.byID {
		if text, ok := overrides[id]; ok && text != "" {
			p = p.withInstructions(text)
		}
		next.byID[id] = p
	}
	return next
}

const decisionContract = `Respond with a JSON object containing:
- direction: "YES" or "NO" (whether to take the position)
- confidence: number 0-100
- size: position size in USD, 0 when direction is NO
- reasoning: string`

func fundamentalPersona() Persona {
	return Persona{
		id:    Fundamental,
		title: "Fundamental Analyst",
		instructions: `You are a Fundamental Analyst. You reason from facts, events and long-term value.

Approach:
- Weigh real-world utility, adoption and the durability of the underlying thesis
- Read news, partnerships, upgrades and ecosystem changes for their lasting effect
- Look at supply dynamics and sustainability rather than short-term price action
- Leave technical indicators to others and keep the argument logical and evidence based

` + decisionContract,
		considerations: []string{
			"Fundamental value and utility",
			"Recent news and events",
			"Ecosystem developments",
			"Long-term sustainability",
			"Market fundamentals",
		},
		render: renderFundamental,
	}
}

func quantPersona() Persona {
	return Persona{
		id:    Quant,
		title: "Quantitative Analyst",
		instructions: `You are a Quantitative Analyst. You trust numbers only.

Approach:
- Work from prices, volumes, returns, volatility and correlations
- Apply statistical models such as mean reversion, momentum and volatility clustering
- Estimate probabilities, expected value and risk-adjusted return
- Ignore narrative, news and sentiment
- Size positions with a Kelly style rule or similar

` + decisionContract,
		considerations: []string{
			"Expected return and volatility",
			"Risk-adjusted metrics",
			"Statistical significance",
			"Optimal position sizing",
			"Correlation with existing portfolio",
		},
		focus:  "Cite specific numbers and calculations.",
		render: renderQuant,
	}
}

func sentimentPersona() Persona {
	return Persona{
		id:    Sentiment,
		title: "Sentiment Analyst",
		instructions: `You are a Sentiment Analyst. You follow narrative, momentum and crowd psychology.

Approach:
- Read social and news sentiment and how it is shifting
- Track hype cycles, FOMO and FUD
- Judge momentum and whether it is accelerating or fading
- Treat extreme readings as possible contrarian signals
- Scale size with the strength of the sentiment signal

` + decisionContract,
		considerations: []string{
			"Current social media sentiment and narrative",
			"Momentum and trend direction",
			"Hype cycles and viral potential",
			"Market psychology indicators",
			"Contrarian signals (if sentiment is extreme)",
			"Community engagement and influencer activity",
		},
		focus:  "Focus on sentiment and narrative factors.",
		render: renderSentiment,
	}
}

func riskPersona() Persona {
	return Persona{
		id:    Risk,
		title: "Risk Manager",
		instructions: `You are a Risk Manager. Capital preservation comes before return.

Approach:
- Keep portfolio heat under control and respect its ceiling
- Think about tail risk, drawdown limits and worst cases
- Check overlap with positions already held
- Account for liquidity and slippage
- Size conservatively, usually 5-15% of the portfolio, and reject anything too risky even if it looks profitable

` + decisionContract,
		considerations: []string{
			"Portfolio heat and remaining capacity",
			"Position size limits (conservative sizing)",
			"Correlation with existing positions",
			"Liquidity and slippage risks",
			"Tail risk and worst-case scenarios",
			"Maximum drawdown limits",
		},
		focus:  "Focus on risk metrics and capital preservation. Reject if risk is too high.",
		render: renderRisk,
	}
}

func strategistPersona() Persona {
	return Persona{
		id:    Strategist,
		title: "Market Strategist",
		instructions: `You are a Market Strategist. You study market structure, incentives and inefficiencies.

Approach:
- Look at how the market is built and who provides liquidity
- Search for mispricing, arbitrage and cross-market edges
- Reason about incentives and game theory among participants
- Consider order flow, timing and positioning
- Watch for manipulation patterns

` + decisionContract,
		considerations: []string{
			"Market structure and mechanics",
			"Arbitrage opportunities and pricing inefficiencies",
			"Incentive structures and game theory",
			"Order flow and market maker behavior",
			"Cross-market opportunities",
			"Strategic timing and positioning",
			"Funding rates and derivatives pricing (if applicable)",
		},
		focus:  "Focus on market structure and strategic advantages.",
		render: renderStrategist,
	}
}
