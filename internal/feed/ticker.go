package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PUBLIC TICKER FEED
// ═══════════════════════════════════════════════════════════════════════════════
//
// Streams the last traded price over the public v5 WebSocket. Purely
// informational: logs and notifications read it, the trading path never
// does. Reconnects on its own and reports staleness instead of failing.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	mainnetWSURL = "wss://stream.bybit.com/v5/public/linear"
	testnetWSURL = "wss://stream-testnet.bybit.com/v5/public/linear"

	pingInterval     = 20 * time.Second
	reconnectDelay   = 5 * time.Second
	priceStaleAfter  = 30 * time.Second
	readLimitTimeout = 60 * time.Second
)

// Ticker maintains a live last-price cache for one symbol.
type Ticker struct {
	mu        sync.RWMutex
	conn      *websocket.Conn
	url       string
	symbol    string
	lastPrice decimal.Decimal
	updatedAt time.Time
	running   bool
	stopCh    chan struct{}
}

type tickerMessage struct {
	Topic string `json:"topic"`
	Data  struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"data"`
}

// NewTicker creates a ticker feed for symbol.
func NewTicker(symbol string, testnet bool) *Ticker {
	url := mainnetWSURL
	if testnet {
		url = testnetWSURL
	}
	return &Ticker{
		url:    url,
		symbol: symbol,
		stopCh: make(chan struct{}),
	}
}

// Start connects and begins streaming. Returns an error only if the first
// dial fails; later disconnects reconnect in the background.
func (t *Ticker) Start() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = true
	t.mu.Unlock()

	if err := t.connect(); err != nil {
		return err
	}

	go t.readLoop()
	go t.pingLoop()

	log.Info().Str("symbol", t.symbol).Str("url", t.url).Msg("📈 Ticker feed started")
	return nil
}

// Stop closes the feed.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.stopCh)
	if t.conn != nil {
		t.conn.Close()
	}
	log.Info().Msg("Ticker feed stopped")
}

// LastPrice returns the most recent price; ok is false when no fresh price
// is available.
func (t *Ticker) LastPrice() (price decimal.Decimal, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.updatedAt.IsZero() || time.Since(t.updatedAt) > priceStaleAfter {
		return decimal.Zero, false
	}
	return t.lastPrice, true
}

func (t *Ticker) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
	if err != nil {
		return fmt.Errorf("ticker dial failed: %w", err)
	}
	conn.SetReadDeadline(time.Now().Add(readLimitTimeout))

	subscribe := map[string]any{
		"op":   "subscribe",
		"args": []string{"tickers." + t.symbol},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return fmt.Errorf("ticker subscribe failed: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *Ticker) readLoop() {
	for {
		t.mu.RLock()
		conn := t.conn
		t.mu.RUnlock()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
			}
			log.Warn().Err(err).Msg("Ticker feed disconnected, reconnecting")
			t.reconnect()
			continue
		}
		conn.SetReadDeadline(time.Now().Add(readLimitTimeout))

		var msg tickerMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Data.LastPrice == "" {
			continue // op acks, pongs, deltas without a price
		}

		price, err := decimal.NewFromString(msg.Data.LastPrice)
		if err != nil {
			continue
		}

		t.mu.Lock()
		t.lastPrice = price
		t.updatedAt = time.Now()
		t.mu.Unlock()
	}
}

func (t *Ticker) reconnect() {
	for {
		select {
		case <-t.stopCh:
			return
		case <-time.After(reconnectDelay):
		}

		if err := t.connect(); err != nil {
			log.Warn().Err(err).Msg("Ticker reconnect failed, retrying")
			continue
		}
		log.Info().Msg("Ticker feed reconnected")
		return
	}
}

func (t *Ticker) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.mu.RLock()
			conn := t.conn
			t.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteJSON(map[string]string{"op": "ping"})
			}
		}
	}
}
