package strategy

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xwick/straddlebot/internal/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRADDLE ORDER MATH
// ═══════════════════════════════════════════════════════════════════════════════
//
// Long leg triggers on a break above the candle high, short leg on a break
// below the low. Stops sit a couple of ticks beyond the opposite wick, and
// the take-profit pays the configured multiple of the risked distance.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ErrDegenerateCandle means the candle produced an order whose entry, stop
// and target are not all distinct; such a candle must never be traded.
var ErrDegenerateCandle = errors.New("degenerate candle: order prices collapse")

const (
	// Take-profit distance as a multiple of the entry→stop distance.
	riskRewardRatio = 3

	// Stops sit this many ticks beyond the opposite wick.
	stopLossTicks = 2

	// The exchange accepts at most two leverage decimals.
	leverageDecimals = 2

	// Strategy-level leverage ceiling; the conformer clamps further to the
	// instrument's own maximum.
	maxStrategyLeverage = 100
)

// LongOrder derives the long straddle leg from the signal candle.
func LongOrder(candle types.Candle, tickSize decimal.Decimal) (types.Order, error) {
	entry := candle.High
	stopLoss := candle.Low.Sub(tickSize.Mul(decimal.NewFromInt(stopLossTicks)))
	takeProfit := entry.Add(decimal.NewFromInt(riskRewardRatio).Mul(entry.Sub(stopLoss)))

	order := types.Order{
		Side:       types.SideBuy,
		Entry:      entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}
	return order, validatePrices(order, candle)
}

// ShortOrder derives the short straddle leg from the signal candle.
func ShortOrder(candle types.Candle, tickSize decimal.Decimal) (types.Order, error) {
	entry := candle.Low
	stopLoss := candle.High.Add(tickSize.Mul(decimal.NewFromInt(stopLossTicks)))
	takeProfit := entry.Sub(decimal.NewFromInt(riskRewardRatio).Mul(stopLoss.Sub(entry)))

	order := types.Order{
		Side:       types.SideSell,
		Entry:      entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}
	return order, validatePrices(order, candle)
}

func validatePrices(order types.Order, candle types.Candle) error {
	if order.Entry.Equal(order.StopLoss) || order.StopLoss.Equal(order.TakeProfit) {
		return fmt.Errorf("%w: entry %s, stop %s, target %s (candle high %s, low %s)",
			ErrDegenerateCandle,
			order.Entry.String(), order.StopLoss.String(), order.TakeProfit.String(),
			candle.High.String(), candle.Low.String())
	}
	return nil
}

// Leverage returns the multiplier that turns a stop-loss distance into a loss
// of maxLossPct of the position's margin. If the stop is 5% away from entry
// and maxLossPct is 0.10, the answer is 2x.
func Leverage(entry, stopLoss, maxLossPct decimal.Decimal) (decimal.Decimal, error) {
	if entry.Equal(stopLoss) {
		return decimal.Zero, fmt.Errorf("%w: entry equals stop-loss at %s", ErrDegenerateCandle, entry.String())
	}

	relativeLoss := entry.Sub(stopLoss).Abs().Div(entry)
	leverage := maxLossPct.Div(relativeLoss).Round(leverageDecimals)

	if max := decimal.NewFromInt(maxStrategyLeverage); leverage.GreaterThan(max) {
		log.Info().
			Str("calculated", leverage.String()).
			Int("max", maxStrategyLeverage).
			Msg("Calculated leverage exceeds strategy ceiling, using ceiling")
		return max, nil
	}
	return leverage, nil
}

// Quantity sizes the position: budget times leverage, denominated in the
// base asset at the entry price.
func Quantity(entry, budget, leverage decimal.Decimal) decimal.Decimal {
	return budget.Mul(leverage).Div(entry)
}
