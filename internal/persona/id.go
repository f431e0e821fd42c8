package persona

import "strings"

// ID is the closed set of analytical viewpoints.
type ID int

const (
	Unknown ID = iota
	Fundamental
	Quant
	Sentiment
	Risk
	Strategist
)

// Order is the canonical run order. Downstream lookups go by name, so this
// only fixes output ordering.
var Order = []ID{Fundamental, Quant, Sentiment, Risk, Strategist}

// Count is the number of personas in every run.
const Count = 5

// DefaultWeight applies to any agent name outside the table.
const DefaultWeight = 0.10

var names = map[ID]string{
	Fundamental: "FundamentalAgent",
	Quant:       "QuantAgent",
	Sentiment:   "SentimentAgent",
	Risk:        "RiskAgent",
	Strategist:  "StrategistAgent",
}

var weights = map[ID]float64{
	Quant:       0.30,
	Fundamental: 0.25,
	Risk:        0.25,
	Sentiment:   0.10,
	Strategist:  0.10,
}

// Name is the stable key used in prompts, responses and storage.
func (id ID) Name() string {
	if n, ok := names[id]; ok {
		return n
	}
	return "UnknownAgent"
}

func (id ID) String() string { return id.Name() }

func (id ID) Valid() bool {
	_, ok := names[id]
	return ok
}

// Weight is the consensus-confidence weight for id.
func (id ID) Weight() float64 {
	if w, ok := weights[id]; ok {
		return w
	}
	return DefaultWeight
}

// ParseID accepts the canonical name as well as loose spellings such as
// "quant", "Quant Agent" or "RISKAGENT".
func ParseID(name string) (ID, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	key = strings.TrimSuffix(key, "agent")
	for id, n := range names {
		if strings.TrimSuffix(strings.ToLower(n), "agent") == key {
			return id, true
		}
	}
	return Unknown, false
}

// WeightOf resolves a weight by exact canonical agent name, falling back to
// DefaultWeight for anything else.
func WeightOf(name string) float64 {
	for id, n := range names {
		if n == name {
			return id.Weight()
		}
	}
	return DefaultWeight
}
