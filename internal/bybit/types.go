package bybit

// ═══════════════════════════════════════════════════════════════════════════════
// BYBIT V5 WIRE TYPES
// ═══════════════════════════════════════════════════════════════════════════════
//
// All numeric fields arrive as decimal strings; parsing into decimal.Decimal
// happens at the client boundary so nothing above it touches raw strings.
//
// ═══════════════════════════════════════════════════════════════════════════════

import "encoding/json"

// OrderStatus is the remote order status enumeration. Only the four listed
// values are meaningful to the race resolver; anything else is treated as an
// unexpected exchange state.
type OrderStatus string

const (
	StatusNew             OrderStatus = "New"
	StatusUntriggered     OrderStatus = "Untriggered"
	StatusFilled          OrderStatus = "Filled"
	StatusPartiallyFilled OrderStatus = "PartiallyFilled"
)

// envelope is the common v5 response wrapper.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type klineResult struct {
	Symbol string     `json:"symbol"`
	List   [][]string `json:"list"` // [startTimeMs, open, high, low, close, volume, turnover], newest first
}

type instrumentsResult struct {
	List []struct {
		Symbol      string `json:"symbol"`
		PriceFilter struct {
			TickSize string `json:"tickSize"`
		} `json:"priceFilter"`
		LotSizeFilter struct {
			QtyStep     string `json:"qtyStep"`
			MinOrderQty string `json:"minOrderQty"`
			MaxOrderQty string `json:"maxOrderQty"`
		} `json:"lotSizeFilter"`
		LeverageFilter struct {
			MinLeverage string `json:"minLeverage"`
			MaxLeverage string `json:"maxLeverage"`
		} `json:"leverageFilter"`
	} `json:"list"`
}

type walletResult struct {
	List []struct {
		TotalWalletBalance string `json:"totalWalletBalance"`
	} `json:"list"`
}

type placeOrderResult struct {
	OrderID string `json:"orderId"`
}

// OpenOrder is an order row from the realtime orders endpoint, carrying the
// fields cleanup needs to tell stray entry orders from protective TP/SL ones.
type OpenOrder struct {
	OrderID        string `json:"orderId"`
	Side           string `json:"side"`
	Price          string `json:"price"`
	Qty            string `json:"qty"`
	OrderStatus    string `json:"orderStatus"`
	OrderFilter    string `json:"orderFilter"` // "tpslOrder" marks protective orders
	ReduceOnly     bool   `json:"reduceOnly"`
	CloseOnTrigger bool   `json:"closeOnTrigger"`
}

type openOrdersResult struct {
	List []OpenOrder `json:"list"`
}

// Position is an open position row, used only for shutdown reporting.
type Position struct {
	Side          string `json:"side"`
	Size          string `json:"size"`
	AvgPrice      string `json:"avgPrice"`
	Leverage      string `json:"leverage"`
	TakeProfit    string `json:"takeProfit"`
	StopLoss      string `json:"stopLoss"`
	UnrealisedPnl string `json:"unrealisedPnl"`
}

type positionsResult struct {
	List []Position `json:"list"`
}
