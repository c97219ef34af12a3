package conform

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xwick/straddlebot/internal/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ORDER CONFORMER
// ═══════════════════════════════════════════════════════════════════════════════
//
// Maps strategy-computed prices, sizes and leverage onto exchange-legal
// values while preserving the strategy's directional intent. Pipeline:
//
//   leverage clamp → quantity rounding → price rounding →
//   directional repair → margin sufficiency
//
// Any rejection aborts the whole trading cycle; the caller must not place
// either straddle leg.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Rejections. Fatal for the current cycle, recoverable for the process.
var (
	ErrLeverageTooLow     = errors.New("desired leverage below instrument minimum")
	ErrQuantityOutOfRange = errors.New("order quantity outside instrument limits")
	ErrInsufficientMargin = errors.New("wallet balance cannot cover required margin")
)

// Margin comparisons are rounded to this many decimals before the check;
// beyond it the executable size is rounding noise anyway.
const marginPrecision = 6

// RoundToStep rounds value to the nearest multiple of step. The final result
// is re-rounded to step's own decimal precision so float-ish artifacts from
// the multiplication cannot survive (step 0.001 means 3 fractional digits).
func RoundToStep(value, step decimal.Decimal) decimal.Decimal {
	precision := StepPrecision(step)
	return value.Div(step).Round(0).Mul(step).Round(precision)
}

// StepPrecision is the number of fractional digits in step's decimal
// representation.
func StepPrecision(step decimal.Decimal) int32 {
	if exp := step.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// Order adjusts one straddle leg in place to the instrument's constraints and
// verifies the wallet can carry it. A non-nil error is one of the Err*
// rejections (wrapped with detail) and means the leg must not be placed.
func Order(order *types.Order, candle types.Candle, info types.InstrumentInfo, walletBalance decimal.Decimal) error {
	if err := leverage(order, info); err != nil {
		return err
	}
	if err := quantity(order, info); err != nil {
		return err
	}
	prices(order, info)
	repairPrices(order, candle, info.TickSize)
	return checkMargin(order, walletBalance)
}

// leverage clamps to the instrument maximum but refuses to raise to the
// minimum: under-leveraging contradicts the risk model that sized the trade.
func leverage(order *types.Order, info types.InstrumentInfo) error {
	if order.Leverage.GreaterThan(info.MaxLeverage) {
		log.Warn().
			Str("desired", order.Leverage.String()).
			Str("max", info.MaxLeverage.String()).
			Msg("Desired leverage exceeds instrument maximum, clamping")
		order.Leverage = info.MaxLeverage
	}

	if order.Leverage.LessThan(info.MinLeverage) {
		return fmt.Errorf("%w: desired %s, minimum %s",
			ErrLeverageTooLow, order.Leverage.String(), info.MinLeverage.String())
	}
	return nil
}

func quantity(order *types.Order, info types.InstrumentInfo) error {
	rounded := RoundToStep(order.Quantity, info.QtyStep)

	log.Info().
		Str("from", order.Quantity.String()).
		Str("to", rounded.String()).
		Str("step", info.QtyStep.String()).
		Msg("Rounding order quantity")

	if rounded.LessThan(info.MinQty) || rounded.GreaterThan(info.MaxQty) {
		return fmt.Errorf("%w: rounded %s, limits [%s, %s]",
			ErrQuantityOutOfRange, rounded.String(), info.MinQty.String(), info.MaxQty.String())
	}

	order.Quantity = rounded
	return nil
}

func prices(order *types.Order, info types.InstrumentInfo) {
	for _, p := range []struct {
		name  string
		value *decimal.Decimal
	}{
		{"entry", &order.Entry},
		{"stop_loss", &order.StopLoss},
		{"take_profit", &order.TakeProfit},
	} {
		rounded := RoundToStep(*p.value, info.TickSize)
		log.Info().
			Str("field", p.name).
			Str("from", p.value.String()).
			Str("to", rounded.String()).
			Msg("Rounding order price to tick size")
		*p.value = rounded
	}
}

// repairPrices fixes prices that tick rounding pushed across the candle's
// wick boundary, which would invert the strategy's intent. A long must
// trigger at or above the candle high with its stop strictly below the low;
// a short mirrors that. Take-profit is best-effort and never repaired.
func repairPrices(order *types.Order, candle types.Candle, tickSize decimal.Decimal) {
	if order.Side == types.SideBuy {
		if order.Entry.LessThan(candle.High) {
			log.Warn().Msg("Rounded long entry fell below candle high, adding one tick")
			order.Entry = order.Entry.Add(tickSize)
		}
		if order.StopLoss.GreaterThanOrEqual(candle.Low) {
			log.Warn().Msg("Rounded long stop-loss reached candle low, subtracting one tick")
			order.StopLoss = order.StopLoss.Sub(tickSize)
		}
		return
	}

	if order.Entry.GreaterThan(candle.Low) {
		log.Warn().Msg("Rounded short entry rose above candle low, subtracting one tick")
		order.Entry = order.Entry.Sub(tickSize)
	}
	if order.StopLoss.LessThanOrEqual(candle.High) {
		log.Warn().Msg("Rounded short stop-loss reached candle high, adding one tick")
		order.StopLoss = order.StopLoss.Add(tickSize)
	}
}

// checkMargin verifies quantity*entry/leverage fits in the wallet. Exact
// equality counts as insufficient: rounding earlier in the pipeline makes the
// true executable size uncertain at that boundary.
func checkMargin(order *types.Order, walletBalance decimal.Decimal) error {
	required := order.Quantity.Mul(order.Entry).Div(order.Leverage)

	if required.Round(marginPrecision).GreaterThanOrEqual(walletBalance.Round(marginPrecision)) {
		return fmt.Errorf("%w: required %s, available %s",
			ErrInsufficientMargin, required.String(), walletBalance.String())
	}
	return nil
}
