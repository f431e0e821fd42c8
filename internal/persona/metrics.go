package persona

import (
	"math"

	"evergreen/internal/types"

	"github.com/markcheno/go-talib"
)

// Prompt-side statistics. All are pure functions of the history or book.

func MeanPrice(points []types.PricePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Price
	}
	return sum / float64(len(points))
}

func AverageVolume(points []types.PricePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return meanVolume(points)
}

// ReturnVolatility is the population standard deviation of simple returns.
func ReturnVolatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}
	series := talib.StdDev(returns, len(returns), 1.0)
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func prices(points []types.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

// CorrelationLabel is a coarse overlap signal with the current book.
func CorrelationLabel(symbol string, p *types.Portfolio) string {
	if p == nil || len(p.Positions) == 0 {
		return "N/A"
	}
	if p.HoldsSymbol(symbol) {
		return "High (same asset)"
	}
	return "Medium"
}

// VolumeTrend compares the mean volume of the last three samples with the
// three before them.
func VolumeTrend(points []types.PricePoint) string {
	if len(points) < 2 {
		return "Insufficient data"
	}
	n := len(points)
	recent := points[max(0, n-3):]
	avgRecent := meanVolume(recent)
	earlier := points[max(0, n-6):max(0, n-3)]
	avgEarlier := avgRecent
	if len(earlier) > 0 {
		avgEarlier = meanVolume(earlier)
	}
	switch {
	case avgRecent > avgEarlier*1.2:
		return "Increasing (bullish structure)"
	case avgRecent < avgEarlier*0.8:
		return "Decreasing (bearish structure)"
	default:
		return "Stable"
	}
}

// VolumeProfile classifies the spread of volumes around their mean.
func VolumeProfile(points []types.PricePoint) string {
	if len(points) == 0 {
		return "No data"
	}
	avg := meanVolume(points)
	if avg <= 0 {
		return "Normal distribution"
	}
	hi, lo := points[0].Volume, points[0].Volume
	for _, p := range points[1:] {
		hi = math.Max(hi, p.Volume)
		lo = math.Min(lo, p.Volume)
	}
	switch {
	case hi/avg > 2:
		return "High volatility (opportunities present)"
	case lo/avg < 0.5:
		return "Low liquidity periods (risk)"
	default:
		return "Normal distribution"
	}
}

func meanVolume(points []types.PricePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Volume
	}
	return sum / float64(len(points))
}

// LastVolumeDirection compares the two most recent samples.
func LastVolumeDirection(points []types.PricePoint) (string, bool) {
	if len(points) < 2 {
		return "", false
	}
	if points[len(points)-1].Volume > points[len(points)-2].Volume {
		return "Increasing", true
	}
	return "Decreasing", true
}

// HeatLabel buckets portfolio heat against the 75% ceiling.
func HeatLabel(heat float64) string {
	switch {
	case heat > 75:
		return "HIGH - near limit"
	case heat > 50:
		return "Moderate"
	default:
		return "Low"
	}
}

// MaxPositionSize is the lesser of 15% of the book and the remaining heat
// capacity under a 75% ceiling, never negative.
func MaxPositionSize(p types.Portfolio) float64 {
	capped := math.Min(p.TotalValue*0.15, p.TotalValue*(0.75-p.Heat/100))
	if capped < 0 {
		return 0
	}
	return capped
}

func Momentum(socialScore float64) string {
	switch {
	case socialScore > 70:
		return "Strong Bullish"
	case socialScore < 30:
		return "Strong Bearish"
	default:
		return "Neutral"
	}
}

func VolumeActivity(volume24h float64) string {
	if volume24h > 1_000_000 {
		return "High"
	}
	return "Low"
}

// LowLiquidity flags thin markets.
func LowLiquidity(volume24h float64) bool {
	return volume24h > 0 && volume24h < 100_000
}
