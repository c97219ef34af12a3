package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/0xwick/straddlebot/internal/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DOJI DETECTION
// ═══════════════════════════════════════════════════════════════════════════════
//
// The signal candle: open and close sit together while both wicks stretch
// away from the body, signaling indecision. The straddle trades the breakout
// from that indecision in either direction.
//
// ═══════════════════════════════════════════════════════════════════════════════

// IsDoji reports whether both wicks are at least wickBodyRatio times the
// body. A flat candle (no body, no wicks) never qualifies.
func IsDoji(candle types.Candle, wickBodyRatio decimal.Decimal) bool {
	body := candle.Open.Sub(candle.Close).Abs()
	upperWick := candle.High.Sub(decimal.Max(candle.Open, candle.Close))
	lowerWick := decimal.Min(candle.Open, candle.Close).Sub(candle.Low)

	isFlat := body.IsZero() && upperWick.IsZero() && lowerWick.IsZero()
	minWick := wickBodyRatio.Mul(body)

	return upperWick.GreaterThanOrEqual(minWick) &&
		lowerWick.GreaterThanOrEqual(minWick) &&
		upperWick.IsPositive() &&
		lowerWick.IsPositive() &&
		!isFlat
}

// FindTargetHourCandle returns the first candle whose start time (in loc)
// matches one of the configured HH:MM:SS target hours.
func FindTargetHourCandle(candles []types.Candle, targetHours []string, loc *time.Location) (types.Candle, bool) {
	for _, candle := range candles {
		timeOfDay := candle.StartTime.In(loc).Format("15:04:05")
		for _, hour := range targetHours {
			if timeOfDay == hour {
				return candle, true
			}
		}
	}
	return types.Candle{}, false
}
