package bybit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/0xwick/straddlebot/internal/types"
)

// overlapSession records whether two calls were ever in flight at once.
type overlapSession struct {
	inFlight int32
	overlaps int32
	calls    int32
}

func (s *overlapSession) enter() {
	if atomic.AddInt32(&s.inFlight, 1) > 1 {
		atomic.AddInt32(&s.overlaps, 1)
	}
	atomic.AddInt32(&s.calls, 1)
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&s.inFlight, -1)
}

func (s *overlapSession) GetKlines(symbol, interval string, limit int) ([]types.Candle, error) {
	s.enter()
	return nil, nil
}

func (s *overlapSession) GetInstrumentInfo(symbol string) (types.InstrumentInfo, error) {
	s.enter()
	return types.InstrumentInfo{}, nil
}

func (s *overlapSession) GetWalletBalance(accountType, coin string) (decimal.Decimal, error) {
	s.enter()
	return decimal.Zero, nil
}

func (s *overlapSession) SetMarginMode(mode string) error {
	s.enter()
	return nil
}

func (s *overlapSession) SetLeverage(symbol string, leverage decimal.Decimal) error {
	s.enter()
	return nil
}

func (s *overlapSession) PlaceOrder(symbol string, order types.Order) (string, error) {
	s.enter()
	return "order-1", nil
}

func (s *overlapSession) GetOrderStatus(orderID string) (OrderStatus, error) {
	s.enter()
	return StatusNew, nil
}

func (s *overlapSession) CancelOrder(symbol, orderID string) error {
	s.enter()
	return nil
}

func (s *overlapSession) GetOpenOrders(symbol string) ([]OpenOrder, error) {
	s.enter()
	return nil, nil
}

func (s *overlapSession) GetPositions(symbol string) ([]Position, error) {
	s.enter()
	return nil, nil
}

// Hammers the wrapper from many goroutines mixing every operation; the
// underlying session must never observe two calls in flight at once.
func TestSyncSessionSerializesCalls(t *testing.T) {
	underlying := &overlapSession{}
	session := NewSyncSession(underlying)

	ops := []func(){
		func() { _, _ = session.GetKlines("BTCUSDT", "60", 5) },
		func() { _, _ = session.GetInstrumentInfo("BTCUSDT") },
		func() { _, _ = session.GetWalletBalance("UNIFIED", "USDT") },
		func() { _ = session.SetLeverage("BTCUSDT", decimal.NewFromInt(10)) },
		func() { _, _ = session.PlaceOrder("BTCUSDT", types.Order{}) },
		func() { _, _ = session.GetOrderStatus("order-1") },
		func() { _ = session.CancelOrder("BTCUSDT", "order-1") },
		func() { _, _ = session.GetOpenOrders("BTCUSDT") },
		func() { _, _ = session.GetPositions("BTCUSDT") },
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				ops[(g+i)%len(ops)]()
			}
		}(g)
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&underlying.overlaps), "overlapping calls reached the underlying session")
	assert.Equal(t, int32(40), atomic.LoadInt32(&underlying.calls))
}
