package persona

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"evergreen/internal/pkg/jsonutil"
	"evergreen/internal/pkg/money"
	"evergreen/internal/types"
)

const historyWindow = 20

func renderMarketBlock(title string, m types.MarketData, withCap bool) string {
	var sb strings.Builder
	sb.WriteString(title + ":\n")
	sb.WriteString(fmt.Sprintf("- Symbol: %s\n", m.Symbol))
	if q := strings.TrimSpace(m.Question); q != "" {
		sb.WriteString(fmt.Sprintf("- Question: %s\n", q))
	}
	sb.WriteString(fmt.Sprintf("- Current Price: $%s\n", trimFloat(m.Price)))
	if withCap && m.MarketCap > 0 {
		sb.WriteString(fmt.Sprintf("- Market Cap: $%s\n", money.FormatUSD(m.MarketCap)))
	}
	if m.Volume24h > 0 {
		sb.WriteString(fmt.Sprintf("- 24h Volume: $%s\n", money.FormatUSD(m.Volume24h)))
	}
	return sb.String()
}

func renderFundamental(m types.MarketData, d types.AgentData) string {
	blocks := []string{renderMarketBlock("Market Opportunity", m, true)}

	if p := d.Portfolio; p != nil {
		var sb strings.Builder
		sb.WriteString("Current Portfolio:\n")
		sb.WriteString(fmt.Sprintf("- Total Value: $%s\n", money.FormatUSD(p.TotalValue)))
		sb.WriteString(fmt.Sprintf("- Portfolio Heat: %s%%\n", trimFloat(p.Heat)))
		sb.WriteString(fmt.Sprintf("- Current Positions: %d\n", len(p.Positions)))
		for _, pos := range p.Positions {
			sign := ""
			if pos.PnL > 0 {
				sign = "+"
			}
			sb.WriteString(fmt.Sprintf("  - %s: $%s (PnL: %s%s%%)\n", pos.Symbol, money.FormatUSD(pos.Size), sign, money.Fixed(pos.PnL, 2)))
		}
		blocks = append(blocks, sb.String())
	} else {
		blocks = append(blocks, "No portfolio data available\n")
	}

	if s := d.Sentiment; s != nil {
		blocks = append(blocks, fmt.Sprintf("Sentiment Data:\n- Social Score: %s/100\n- News Score: %s/100\n- Trend: %s\n",
			trimFloat(s.SocialScore), trimFloat(s.NewsScore), s.Trend))
	} else {
		blocks = append(blocks, "No sentiment data available\n")
	}

	if extra := prettyRaw(d.MarketData); extra != "" {
		blocks = append(blocks, "Additional Market Data: "+extra+"\n")
	}
	if d.HasResearch() {
		blocks = append(blocks, renderResearch(d))
	}
	return strings.Join(blocks, "\n")
}

func renderResearch(d types.AgentData) string {
	var sb strings.Builder
	sb.WriteString("Research:\n")
	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(title + ":\n")
		for _, it := range items {
			sb.WriteString("  - " + it + "\n")
		}
	}
	list("Key Facts", d.KeyFacts)
	list("Recent Events", d.RecentEvents)
	list("Historical Context", d.HistoricalContext)
	list("Price Drivers", d.PriceDrivers)
	return sb.String()
}

func renderQuant(m types.MarketData, d types.AgentData) string {
	blocks := []string{renderMarketBlock("Market Data", m, true)}

	if hist := d.HistoricalData; len(hist) > 0 {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Historical Price Data (last %d periods):\n", len(hist)))
		for _, pt := range hist[max(0, len(hist)-historyWindow):] {
			sb.WriteString(fmt.Sprintf("  %s: Price=$%s, Volume=$%s\n", pt.Date, trimFloat(pt.Price), money.FormatUSD(pt.Volume)))
		}
		sb.WriteString("\nStatistical Metrics:\n")
		sb.WriteString(fmt.Sprintf("- Mean Price: $%s\n", money.Fixed(MeanPrice(hist), 2)))
		sb.WriteString(fmt.Sprintf("- Price Volatility: %s\n", money.Fixed(ReturnVolatility(prices(hist)), 4)))
		sb.WriteString(fmt.Sprintf("- Average Volume: $%s\n", money.FormatUSD(AverageVolume(hist))))
		blocks = append(blocks, sb.String())
	} else {
		blocks = append(blocks, "No historical data available\n")
	}

	if p := d.Portfolio; p != nil {
		blocks = append(blocks, fmt.Sprintf("Portfolio Metrics:\n- Total Value: $%s\n- Portfolio Heat: %s%%\n- Correlation with existing positions: %s\n",
			money.FormatUSD(p.TotalValue), trimFloat(p.Heat), CorrelationLabel(m.Symbol, p)))
	} else {
		blocks = append(blocks, "No portfolio data available\n")
	}
	return strings.Join(blocks, "\n")
}

func renderRisk(m types.MarketData, d types.AgentData) string {
	var mb strings.Builder
	mb.WriteString("Market Opportunity:\n")
	mb.WriteString(fmt.Sprintf("- Symbol: %s\n- Current Price: $%s\n", m.Symbol, trimFloat(m.Price)))
	if m.Volume24h > 0 {
		line := fmt.Sprintf("- 24h Volume: $%s", money.FormatUSD(m.Volume24h))
		if LowLiquidity(m.Volume24h) {
			line += " (Low liquidity risk)"
		}
		mb.WriteString(line + "\n")
	}
	if m.MarketCap > 0 {
		mb.WriteString(fmt.Sprintf("- Market Cap: $%s\n", money.FormatUSD(m.MarketCap)))
	}
	blocks := []string{mb.String()}

	p := d.Portfolio
	if p == nil {
		blocks = append(blocks, "No portfolio data - use conservative defaults (max 10% position size)\n")
		return strings.Join(blocks, "\n")
	}
	var sb strings.Builder
	sb.WriteString("Current Portfolio Risk Metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total Portfolio Value: $%s\n", money.FormatUSD(p.TotalValue)))
	sb.WriteString(fmt.Sprintf("- Portfolio Heat: %s%% (%s)\n", trimFloat(p.Heat), HeatLabel(p.Heat)))
	sb.WriteString(fmt.Sprintf("- Current Positions: %d\n", len(p.Positions)))
	sb.WriteString("- Maximum Recommended Heat: 75%\n")
	for _, pos := range p.Positions {
		share := money.Ratio(pos.Size, p.TotalValue) * 100
		sb.WriteString(fmt.Sprintf("  - %s: $%s (%s%% of portfolio)\n", pos.Symbol, money.FormatUSD(pos.Size), money.Fixed(share, 1)))
	}
	sb.WriteString("\nRisk Constraints:\n")
	sb.WriteString(fmt.Sprintf("- Maximum position size: %s USD (15%% of portfolio or remaining heat capacity)\n", money.Fixed(MaxPositionSize(*p), 2)))
	sb.WriteString("- Maximum portfolio heat: 75%\n")
	blocks = append(blocks, sb.String())

	if len(p.Positions) > 0 {
		if p.HoldsSymbol(m.Symbol) {
			blocks = append(blocks, "Correlation Risk: HIGH - Already holding this asset\n")
		} else {
			blocks = append(blocks, "Correlation Risk: Medium - Different asset\n")
		}
	}
	return strings.Join(blocks, "\n")
}

func renderSentiment(m types.MarketData, d types.AgentData) string {
	var mb strings.Builder
	mb.WriteString("Market Data:\n")
	mb.WriteString(fmt.Sprintf("- Symbol: %s\n- Current Price: $%s\n", m.Symbol, trimFloat(m.Price)))
	if m.Volume24h > 0 {
		mb.WriteString(fmt.Sprintf("- 24h Volume: $%s (%s activity)\n", money.FormatUSD(m.Volume24h), VolumeActivity(m.Volume24h)))
	}
	blocks := []string{mb.String()}

	if s := d.Sentiment; s != nil {
		blocks = append(blocks, fmt.Sprintf("Sentiment Metrics:\n- Social Score: %s/100\n- News Score: %s/100\n- Overall Trend: %s\n- Momentum: %s\n",
			trimFloat(s.SocialScore), trimFloat(s.NewsScore), s.Trend, Momentum(s.SocialScore)))
	} else {
		blocks = append(blocks, "Limited sentiment data available - using market indicators\n")
	}
	if dir, ok := LastVolumeDirection(d.HistoricalData); ok {
		blocks = append(blocks, "Volume Trend: "+dir+"\n")
	}
	return strings.Join(blocks, "\n")
}

func renderStrategist(m types.MarketData, d types.AgentData) string {
	blocks := []string{renderMarketBlock("Market Structure Data", m, true)}
	if len(d.HistoricalData) >= 5 {
		blocks = append(blocks, fmt.Sprintf("Volume Analysis:\n- Recent Volume Trend: %s\n- Volume Profile: %s\n",
			VolumeTrend(d.HistoricalData), VolumeProfile(d.HistoricalData)))
	}
	if p := d.Portfolio; p != nil {
		held := strings.Join(p.Symbols(), ", ")
		if held == "" {
			held = "None"
		}
		blocks = append(blocks, fmt.Sprintf("Current Portfolio:\n- Total Value: $%s\n- Existing Positions: %s\n",
			money.FormatUSD(p.TotalValue), held))
	}
	return strings.Join(blocks, "\n")
}

func prettyRaw(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	return jsonutil.Pretty(trimmed)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
