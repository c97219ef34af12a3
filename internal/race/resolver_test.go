package race

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwick/straddlebot/internal/bybit"
)

// fakeOrderAPI scripts a sequence of statuses per order; the last entry
// repeats once the script runs out.
type fakeOrderAPI struct {
	mu        sync.Mutex
	statuses  map[string][]bybit.OrderStatus
	cancelled []string
	cancelErr error
}

func (f *fakeOrderAPI) GetOrderStatus(orderID string) (bybit.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	script := f.statuses[orderID]
	if len(script) == 0 {
		return "", bybit.ErrOrderNotFound
	}
	status := script[0]
	if len(script) > 1 {
		f.statuses[orderID] = script[1:]
	}
	return status, nil
}

func (f *fakeOrderAPI) CancelOrder(symbol, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orderID)
	return f.cancelErr
}

func (f *fakeOrderAPI) cancels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

func newTestResolver(api OrderAPI) *Resolver {
	return NewResolver(api, "BTCUSDT", time.Millisecond, time.Minute)
}

func TestResolveShortWins(t *testing.T) {
	api := &fakeOrderAPI{statuses: map[string][]bybit.OrderStatus{
		"long-1":  {bybit.StatusUntriggered},
		"short-1": {bybit.StatusFilled},
	}}

	outcome, err := newTestResolver(api).Resolve("long-1", "short-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeShortFilled, outcome)
	assert.Equal(t, []string{"long-1"}, api.cancels(), "only the losing leg is cancelled")
}

func TestResolveLongWinsAfterPolling(t *testing.T) {
	api := &fakeOrderAPI{statuses: map[string][]bybit.OrderStatus{
		"long-1":  {bybit.StatusUntriggered, bybit.StatusNew, bybit.StatusPartiallyFilled},
		"short-1": {bybit.StatusUntriggered},
	}}

	outcome, err := newTestResolver(api).Resolve("long-1", "short-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeLongFilled, outcome)
	assert.Equal(t, []string{"short-1"}, api.cancels())
}

func TestResolveDoubleFillCancelsBoth(t *testing.T) {
	api := &fakeOrderAPI{statuses: map[string][]bybit.OrderStatus{
		"long-1":  {bybit.StatusFilled},
		"short-1": {bybit.StatusPartiallyFilled},
	}}

	outcome, err := newTestResolver(api).Resolve("long-1", "short-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDoubleFill, outcome)
	assert.ElementsMatch(t, []string{"long-1", "short-1"}, api.cancels())
}

func TestResolveUnexpectedStatusAborts(t *testing.T) {
	api := &fakeOrderAPI{statuses: map[string][]bybit.OrderStatus{
		"long-1":  {"Rejected"},
		"short-1": {bybit.StatusUntriggered},
	}}

	_, err := newTestResolver(api).Resolve("long-1", "short-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
	assert.Empty(t, api.cancels(), "nothing is cancelled on an aborted race")
}

func TestResolveStatusErrorAborts(t *testing.T) {
	api := &fakeOrderAPI{statuses: map[string][]bybit.OrderStatus{
		"short-1": {bybit.StatusUntriggered},
	}}

	_, err := newTestResolver(api).Resolve("long-1", "short-1")
	require.ErrorIs(t, err, bybit.ErrOrderNotFound)
}

func TestResolveCancelFailureTolerated(t *testing.T) {
	api := &fakeOrderAPI{
		statuses: map[string][]bybit.OrderStatus{
			"long-1":  {bybit.StatusFilled},
			"short-1": {bybit.StatusNew},
		},
		cancelErr: assert.AnError,
	}

	outcome, err := newTestResolver(api).Resolve("long-1", "short-1")
	require.NoError(t, err, "a failed cancel does not abort the race")
	assert.Equal(t, OutcomeLongFilled, outcome)
}

func TestOnResolvedCallback(t *testing.T) {
	api := &fakeOrderAPI{statuses: map[string][]bybit.OrderStatus{
		"long-1":  {bybit.StatusUntriggered},
		"short-1": {bybit.StatusFilled},
	}}

	var got []Outcome
	resolver := newTestResolver(api)
	resolver.OnResolved(func(o Outcome) { got = append(got, o) })

	_, err := resolver.Resolve("long-1", "short-1")
	require.NoError(t, err)
	assert.Equal(t, []Outcome{OutcomeShortFilled}, got)
}
