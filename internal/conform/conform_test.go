package conform

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwick/straddlebot/internal/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testInfo() types.InstrumentInfo {
	return types.InstrumentInfo{
		TickSize:    dec("0.01"),
		QtyStep:     dec("0.001"),
		MinQty:      dec("0.001"),
		MaxQty:      dec("100"),
		MinLeverage: dec("1"),
		MaxLeverage: dec("50"),
	}
}

func TestRoundToStep(t *testing.T) {
	tests := []struct {
		value string
		step  string
		want  string
	}{
		{"100.567", "0.01", "100.57"},
		{"100.564", "0.01", "100.56"},
		{"0.0004", "0.001", "0"},
		{"0.0016", "0.001", "0.002"},
		{"27123.4", "0.5", "27123.5"},
		{"99.9", "1", "100"},
		{"42", "0.01", "42"},
	}

	for _, tt := range tests {
		got := RoundToStep(dec(tt.value), dec(tt.step))
		assert.True(t, got.Equal(dec(tt.want)),
			"RoundToStep(%s, %s) = %s, want %s", tt.value, tt.step, got, tt.want)
	}
}

func TestRoundToStepIdempotent(t *testing.T) {
	steps := []decimal.Decimal{dec("0.01"), dec("0.001"), dec("0.5"), dec("1"), dec("5")}

	property := func(f float64) bool {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
		value := decimal.NewFromFloat(f)
		for _, step := range steps {
			once := RoundToStep(value, step)
			twice := RoundToStep(once, step)
			if !once.Equal(twice) {
				t.Logf("not idempotent: value=%s step=%s once=%s twice=%s", value, step, once, twice)
				return false
			}
		}
		return true
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 200}))
}

func TestStepPrecision(t *testing.T) {
	assert.Equal(t, int32(3), StepPrecision(dec("0.001")))
	assert.Equal(t, int32(2), StepPrecision(dec("0.01")))
	assert.Equal(t, int32(1), StepPrecision(dec("0.5")))
	assert.Equal(t, int32(0), StepPrecision(dec("1")))
	assert.Equal(t, int32(0), StepPrecision(dec("100")))
}

func TestLeverageClamp(t *testing.T) {
	order := &types.Order{Leverage: dec("75")}
	require.NoError(t, leverage(order, testInfo()))
	assert.True(t, order.Leverage.Equal(dec("50")), "leverage clamped to max, got %s", order.Leverage)
}

func TestLeverageTooLow(t *testing.T) {
	order := &types.Order{Leverage: dec("0.5")}
	err := leverage(order, testInfo())
	require.ErrorIs(t, err, ErrLeverageTooLow)
}

func TestQuantityRoundsBelowMinimum(t *testing.T) {
	order := &types.Order{Quantity: dec("0.0004")}
	err := quantity(order, testInfo())
	require.ErrorIs(t, err, ErrQuantityOutOfRange)
}

func TestQuantityAboveMaximum(t *testing.T) {
	order := &types.Order{Quantity: dec("150")}
	err := quantity(order, testInfo())
	require.ErrorIs(t, err, ErrQuantityOutOfRange)
}

func TestQuantityRounded(t *testing.T) {
	order := &types.Order{Quantity: dec("1.23456")}
	require.NoError(t, quantity(order, testInfo()))
	assert.True(t, order.Quantity.Equal(dec("1.235")), "got %s", order.Quantity)
}

// After full conformance a long entry must sit at or above the candle high
// and its stop strictly below the low; shorts mirror that.
func TestDirectionalRepair(t *testing.T) {
	info := testInfo()
	candle := types.Candle{
		Open:  dec("99.801"),
		High:  dec("100.003"), // not a tick multiple: rounding pulls entry below it
		Low:   dec("99.557"),
		Close: dec("99.798"),
	}

	t.Run("long", func(t *testing.T) {
		order := &types.Order{
			Side:       types.SideBuy,
			Entry:      candle.High,
			StopLoss:   dec("99.537"),
			TakeProfit: dec("101.401"),
			Quantity:   dec("0.5"),
			Leverage:   dec("10"),
		}
		require.NoError(t, Order(order, candle, info, dec("1000")))
		assert.True(t, order.Entry.GreaterThanOrEqual(candle.High),
			"long entry %s below candle high %s", order.Entry, candle.High)
		assert.True(t, order.StopLoss.LessThan(candle.Low),
			"long stop %s not below candle low %s", order.StopLoss, candle.Low)
	})

	t.Run("short", func(t *testing.T) {
		order := &types.Order{
			Side:       types.SideSell,
			Entry:      candle.Low,
			StopLoss:   dec("100.023"),
			TakeProfit: dec("98.159"),
			Quantity:   dec("0.5"),
			Leverage:   dec("10"),
		}
		require.NoError(t, Order(order, candle, info, dec("1000")))
		assert.True(t, order.Entry.LessThanOrEqual(candle.Low),
			"short entry %s above candle low %s", order.Entry, candle.Low)
		assert.True(t, order.StopLoss.GreaterThan(candle.High),
			"short stop %s not above candle high %s", order.StopLoss, candle.High)
	})
}

func TestMarginCheck(t *testing.T) {
	info := types.InstrumentInfo{
		TickSize:    dec("0.01"),
		QtyStep:     dec("0.001"),
		MinQty:      dec("0.001"),
		MaxQty:      dec("100"),
		MinLeverage: dec("1"),
		MaxLeverage: dec("100"),
	}
	candle := types.Candle{
		Open:  dec("49500"),
		High:  dec("50000"),
		Low:   dec("49000"),
		Close: dec("49600"),
	}
	newOrder := func() *types.Order {
		// required margin = 1 * 50000 / 10 = 5000
		return &types.Order{
			Side:       types.SideBuy,
			Entry:      dec("50000"),
			StopLoss:   dec("48998"),
			TakeProfit: dec("53006"),
			Quantity:   dec("1"),
			Leverage:   dec("10"),
		}
	}

	err := Order(newOrder(), candle, info, dec("4000"))
	require.ErrorIs(t, err, ErrInsufficientMargin)

	// Exact equality counts as insufficient.
	err = Order(newOrder(), candle, info, dec("5000"))
	require.ErrorIs(t, err, ErrInsufficientMargin)

	require.NoError(t, Order(newOrder(), candle, info, dec("6000")))
}
