package types

// Portfolio is the caller's book at decision time.
type Portfolio struct {
	TotalValue float64 `json:"totalValue"`
	// Heat is aggregate risk utilisation, 0-100.
	Heat      float64    `json:"heat"`
	Positions []Position `json:"positions"`
}

type Position struct {
	Symbol string  `json:"symbol"`
	Size   float64 `json:"size"`
	// PnL is a percentage.
	PnL float64 `json:"pnl"`
}

// HoldsSymbol reports whether any open position is on symbol.
func (p *Portfolio) HoldsSymbol(symbol string) bool {
	if p == nil {
		return false
	}
	for _, pos := range p.Positions {
		if pos.Symbol == symbol {
			return true
		}
	}
	return false
}

// Symbols lists position symbols in book order.
func (p *Portfolio) Symbols() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		out = append(out, pos.Symbol)
	}
	return out
}
