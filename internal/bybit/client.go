package bybit

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xwick/straddlebot/internal/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BYBIT V5 REST CLIENT
// ═══════════════════════════════════════════════════════════════════════════════
//
// Thin typed client over the unified-trading HTTP API. Not safe for
// concurrent use on its own; wrap it in a SyncSession.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	mainnetURL = "https://api.bybit.com"
	testnetURL = "https://api-testnet.bybit.com"

	recvWindow = "5000"

	// One-way position mode: a single net position per symbol.
	oneWayPositionIdx = 0
)

// Client talks to the Bybit v5 REST API for one product category.
type Client struct {
	http      *resty.Client
	apiKey    string
	apiSecret string
	category  string // "linear"
}

// NewClient creates a Bybit client. Testnet and mainnet differ only by host.
func NewClient(apiKey, apiSecret string, testnet bool, category string) *Client {
	baseURL := mainnetURL
	if testnet {
		baseURL = testnetURL
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	log.Info().
		Str("base_url", baseURL).
		Str("category", category).
		Bool("testnet", testnet).
		Msg("Bybit client initialized")

	return &Client{
		http:      httpClient,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		category:  category,
	}
}

// GetKlines returns up to limit candles for the symbol, newest first. The
// first entry is the still-forming candle; callers that need closed candles
// must drop it.
func (c *Client) GetKlines(symbol, interval string, limit int) ([]types.Candle, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var result klineResult
	if err := c.get("/v5/market/kline", params, false, &result); err != nil {
		return nil, err
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("kline response for %s is empty", symbol)
	}

	candles := make([]types.Candle, 0, len(result.List))
	for _, row := range result.List {
		candle, err := parseCandle(row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetInstrumentInfo fetches the trading constraints for a symbol.
func (c *Client) GetInstrumentInfo(symbol string) (types.InstrumentInfo, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)

	var result instrumentsResult
	if err := c.get("/v5/market/instruments-info", params, false, &result); err != nil {
		return types.InstrumentInfo{}, err
	}
	if len(result.List) == 0 {
		return types.InstrumentInfo{}, fmt.Errorf("no instrument info for %s", symbol)
	}

	entry := result.List[0]
	info := types.InstrumentInfo{}
	var err error
	if info.TickSize, err = decimal.NewFromString(entry.PriceFilter.TickSize); err != nil {
		return types.InstrumentInfo{}, fmt.Errorf("bad tickSize: %w", err)
	}
	if info.QtyStep, err = decimal.NewFromString(entry.LotSizeFilter.QtyStep); err != nil {
		return types.InstrumentInfo{}, fmt.Errorf("bad qtyStep: %w", err)
	}
	if info.MinQty, err = decimal.NewFromString(entry.LotSizeFilter.MinOrderQty); err != nil {
		return types.InstrumentInfo{}, fmt.Errorf("bad minOrderQty: %w", err)
	}
	if info.MaxQty, err = decimal.NewFromString(entry.LotSizeFilter.MaxOrderQty); err != nil {
		return types.InstrumentInfo{}, fmt.Errorf("bad maxOrderQty: %w", err)
	}
	if info.MinLeverage, err = decimal.NewFromString(entry.LeverageFilter.MinLeverage); err != nil {
		return types.InstrumentInfo{}, fmt.Errorf("bad minLeverage: %w", err)
	}
	if info.MaxLeverage, err = decimal.NewFromString(entry.LeverageFilter.MaxLeverage); err != nil {
		return types.InstrumentInfo{}, fmt.Errorf("bad maxLeverage: %w", err)
	}
	return info, nil
}

// GetWalletBalance returns the total wallet balance for one coin.
func (c *Client) GetWalletBalance(accountType, coin string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("accountType", accountType)
	params.Set("coin", coin)

	var result walletResult
	if err := c.get("/v5/account/wallet-balance", params, true, &result); err != nil {
		return decimal.Zero, err
	}
	if len(result.List) == 0 {
		return decimal.Zero, fmt.Errorf("wallet balance response is empty")
	}
	return decimal.NewFromString(result.List[0].TotalWalletBalance)
}

// SetMarginMode sets the account-wide margin mode. Call once at startup.
func (c *Client) SetMarginMode(mode string) error {
	payload := map[string]any{"setMarginMode": mode}
	return c.post("/v5/account/set-margin-mode", payload, nil)
}

// SetLeverage sets buy and sell leverage for a symbol. Setting the current
// value again fails with retCode 110043; callers decide whether to tolerate
// that (see IsLeverageNotModified).
func (c *Client) SetLeverage(symbol string, leverage decimal.Decimal) error {
	payload := map[string]any{
		"category":     c.category,
		"symbol":       symbol,
		"buyLeverage":  leverage.String(),
		"sellLeverage": leverage.String(),
	}
	return c.post("/v5/position/set-leverage", payload, nil)
}

// PlaceOrder submits one straddle leg as a conditional market order with
// attached full-position TP/SL, and returns the exchange order ID.
func (c *Client) PlaceOrder(symbol string, order types.Order) (string, error) {
	// 1: trigger when price rises to triggerPrice, 2: when it falls to it.
	triggerDirection := 1
	if order.Side == types.SideSell {
		triggerDirection = 2
	}

	payload := map[string]any{
		"category":         c.category,
		"symbol":           symbol,
		"isLeverage":       1,
		"side":             string(order.Side),
		"orderType":        "Market",
		"qty":              order.Quantity.String(),
		"price":            order.Entry.String(),
		"triggerDirection": triggerDirection,
		"triggerPrice":     order.Entry.String(),
		"triggerBy":        "LastPrice",
		"timeInForce":      "GTC",
		"positionIdx":      oneWayPositionIdx,
		"takeProfit":       order.TakeProfit.String(),
		"stopLoss":         order.StopLoss.String(),
		"tpTriggerBy":      "LastPrice",
		"slTriggerBy":      "LastPrice",
		"reduceOnly":       false,
		"closeOnTrigger":   false,
		"tpslMode":         "Full",
		"tpOrderType":      "Market",
		"slOrderType":      "Market",
	}

	log.Info().
		Str("symbol", symbol).
		Str("side", string(order.Side)).
		Str("qty", order.Quantity.String()).
		Str("trigger", order.Entry.String()).
		Str("tp", order.TakeProfit.String()).
		Str("sl", order.StopLoss.String()).
		Str("leverage", order.Leverage.String()+"x").
		Msg("📤 Placing conditional order")

	var result placeOrderResult
	if err := c.post("/v5/order/create", payload, &result); err != nil {
		return "", err
	}
	return result.OrderID, nil
}

// GetOrderStatus queries a single order by ID. An empty response to a
// direct-by-ID query is a model mismatch and returns ErrOrderNotFound.
func (c *Client) GetOrderStatus(orderID string) (OrderStatus, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("orderId", orderID)

	var result openOrdersResult
	if err := c.get("/v5/order/realtime", params, true, &result); err != nil {
		return "", err
	}
	if len(result.List) == 0 {
		return "", fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	return OrderStatus(result.List[0].OrderStatus), nil
}

// CancelOrder cancels an order by ID.
func (c *Client) CancelOrder(symbol, orderID string) error {
	payload := map[string]any{
		"category": c.category,
		"symbol":   symbol,
		"orderId":  orderID,
	}
	return c.post("/v5/order/cancel", payload, nil)
}

// GetOpenOrders lists all open orders for a symbol.
func (c *Client) GetOpenOrders(symbol string) ([]OpenOrder, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)

	var result openOrdersResult
	if err := c.get("/v5/order/realtime", params, true, &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

// GetPositions lists open positions for a symbol.
func (c *Client) GetPositions(symbol string) ([]Position, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)

	var result positionsResult
	if err := c.get("/v5/position/list", params, true, &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// ═══════════════════════════════════════════════════════════════════════════════

func (c *Client) get(path string, params url.Values, auth bool, out any) error {
	query := params.Encode()

	req := c.http.R()
	if auth {
		c.authorize(req, query)
	}

	target := path
	if query != "" {
		target += "?" + query
	}
	resp, err := req.Get(target)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return decodeEnvelope(path, resp, out)
}

func (c *Client) post(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("POST %s: marshal: %w", path, err)
	}

	req := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	c.authorize(req, string(body))

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return decodeEnvelope(path, resp, out)
}

// authorize attaches the signed auth headers. payload is the exact query
// string or JSON body that will be sent; the signature covers it verbatim.
func (c *Client) authorize(req *resty.Request, payload string) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.SetHeaders(map[string]string{
		"X-BAPI-API-KEY":     c.apiKey,
		"X-BAPI-TIMESTAMP":   timestamp,
		"X-BAPI-RECV-WINDOW": recvWindow,
		"X-BAPI-SIGN":        sign(c.apiSecret, timestamp, c.apiKey, recvWindow, payload),
	})
}

func decodeEnvelope(path string, resp *resty.Response, out any) error {
	if !resp.IsSuccess() {
		return fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode(), resp.String())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%s: decode envelope: %w", path, err)
	}
	if env.RetCode != 0 {
		return fmt.Errorf("%s: %w", path, &APIError{RetCode: env.RetCode, RetMsg: env.RetMsg})
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", path, err)
		}
	}
	return nil
}

// parseCandle converts one kline row into a Candle.
func parseCandle(row []string) (types.Candle, error) {
	if len(row) < 6 {
		return types.Candle{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}

	startMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return types.Candle{}, fmt.Errorf("bad kline start time %q: %w", row[0], err)
	}

	candle := types.Candle{StartTime: time.UnixMilli(startMs)}
	fields := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"open", &candle.Open},
		{"high", &candle.High},
		{"low", &candle.Low},
		{"close", &candle.Close},
		{"volume", &candle.Volume},
	}
	for i, f := range fields {
		value, err := decimal.NewFromString(row[i+1])
		if err != nil {
			return types.Candle{}, fmt.Errorf("bad kline %s %q: %w", f.name, row[i+1], err)
		}
		*f.dst = value
	}
	return candle, nil
}
