package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Side is the exchange-facing order direction. A long straddle leg is a Buy,
// a short leg is a Sell.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Order is one leg of a straddle: a conditional market order with attached
// TP/SL. Built by the strategy, adjusted in place by the conformer, then
// handed to the exchange client exactly once.
type Order struct {
	Side       Side
	Entry      decimal.Decimal // trigger price
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Quantity   decimal.Decimal
	Leverage   decimal.Decimal // multiplier, e.g. 12.5 = 12.5x
}

// Candle is a closed kline. Immutable once fetched.
type Candle struct {
	StartTime time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// InstrumentInfo is the per-symbol trading constraints snapshot, fetched once
// per cycle and treated as read-only.
type InstrumentInfo struct {
	TickSize    decimal.Decimal
	QtyStep     decimal.Decimal
	MinQty      decimal.Decimal
	MaxQty      decimal.Decimal
	MinLeverage decimal.Decimal
	MaxLeverage decimal.Decimal
}
