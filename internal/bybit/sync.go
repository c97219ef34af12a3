package bybit

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/0xwick/straddlebot/internal/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SYNCHRONIZED SESSION
// ═══════════════════════════════════════════════════════════════════════════════
//
// The exchange rate-limits per IP, and the underlying HTTP session is shared
// by the trading loop and every live race resolver. SyncSession serializes
// all remote operations behind one mutex so at most one network call is in
// flight at a time, no matter how many goroutines hold the session.
//
// It guarantees nothing about ordering between unrelated calls, and a
// multi-call sequence (set-leverage then place-order) is not atomic with
// respect to other goroutines.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Session is the narrow capability surface the bot needs from the exchange.
type Session interface {
	GetKlines(symbol, interval string, limit int) ([]types.Candle, error)
	GetInstrumentInfo(symbol string) (types.InstrumentInfo, error)
	GetWalletBalance(accountType, coin string) (decimal.Decimal, error)
	SetMarginMode(mode string) error
	SetLeverage(symbol string, leverage decimal.Decimal) error
	PlaceOrder(symbol string, order types.Order) (string, error)
	GetOrderStatus(orderID string) (OrderStatus, error)
	CancelOrder(symbol, orderID string) error
	GetOpenOrders(symbol string) ([]OpenOrder, error)
	GetPositions(symbol string) ([]Position, error)
}

var (
	_ Session = (*Client)(nil)
	_ Session = (*SyncSession)(nil)
)

// SyncSession wraps a Session with a single mutex around every call. No code
// path in this program calls the session while already holding the lock (the
// shutdown cleanup runs only after the cycle loop has returned, and each
// resolver goroutine calls from its own stack), so a plain mutex suffices.
type SyncSession struct {
	mu      sync.Mutex
	session Session
}

// NewSyncSession wraps session so that all calls serialize.
func NewSyncSession(session Session) *SyncSession {
	return &SyncSession{session: session}
}

func (s *SyncSession) GetKlines(symbol, interval string, limit int) ([]types.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.GetKlines(symbol, interval, limit)
}

func (s *SyncSession) GetInstrumentInfo(symbol string) (types.InstrumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.GetInstrumentInfo(symbol)
}

func (s *SyncSession) GetWalletBalance(accountType, coin string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.GetWalletBalance(accountType, coin)
}

func (s *SyncSession) SetMarginMode(mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.SetMarginMode(mode)
}

func (s *SyncSession) SetLeverage(symbol string, leverage decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.SetLeverage(symbol, leverage)
}

func (s *SyncSession) PlaceOrder(symbol string, order types.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.PlaceOrder(symbol, order)
}

func (s *SyncSession) GetOrderStatus(orderID string) (OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.GetOrderStatus(orderID)
}

func (s *SyncSession) CancelOrder(symbol, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.CancelOrder(symbol, orderID)
}

func (s *SyncSession) GetOpenOrders(symbol string) ([]OpenOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.GetOpenOrders(symbol)
}

func (s *SyncSession) GetPositions(symbol string) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.GetPositions(symbol)
}
