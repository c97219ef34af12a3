package race

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xwick/straddlebot/internal/bybit"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RACE RESOLVER
// ═══════════════════════════════════════════════════════════════════════════════
//
// A placed straddle is two mutually exclusive conditional orders. The
// resolver polls both until one fills, cancels the loser and exits. It runs
// as a detached goroutine, one per trading cycle; several can be live at
// once, all sharing the synchronized session.
//
// A partial fill counts as a fill: the exchange has committed real size, so
// the opposite leg must go.
//
// ═══════════════════════════════════════════════════════════════════════════════

// OrderAPI is the slice of the exchange session the resolver needs.
type OrderAPI interface {
	GetOrderStatus(orderID string) (bybit.OrderStatus, error)
	CancelOrder(symbol, orderID string) error
}

// Outcome describes how a race ended.
type Outcome string

const (
	OutcomeLongFilled  Outcome = "long_filled"
	OutcomeShortFilled Outcome = "short_filled"

	// Both legs triggered before we could cancel either, e.g. a whipsaw
	// through both wicks. The straddle's premise is violated, so both orders
	// are cancelled rather than keeping an arbitrary side.
	OutcomeDoubleFill Outcome = "double_fill"
)

// Resolver races one pair of straddle legs to the first fill.
type Resolver struct {
	api          OrderAPI
	symbol       string
	pollInterval time.Duration
	logInterval  time.Duration
	onResolved   func(Outcome)
}

// NewResolver creates a resolver. pollInterval must stay well under the
// exchange's per-IP rate limit; logInterval throttles the liveness log.
func NewResolver(api OrderAPI, symbol string, pollInterval, logInterval time.Duration) *Resolver {
	return &Resolver{
		api:          api,
		symbol:       symbol,
		pollInterval: pollInterval,
		logInterval:  logInterval,
	}
}

// OnResolved registers a callback invoked with the final outcome. Errors do
// not produce an outcome.
func (r *Resolver) OnResolved(fn func(Outcome)) {
	r.onResolved = fn
}

// Start launches the race in its own goroutine. Nothing joins it; an error
// is terminal for this race only and is logged inside the goroutine.
func (r *Resolver) Start(longOrderID, shortOrderID string) {
	go func() {
		if _, err := r.Resolve(longOrderID, shortOrderID); err != nil {
			log.Error().
				Err(err).
				Str("long_order", longOrderID).
				Str("short_order", shortOrderID).
				Msg("❌ Race resolver aborted")
		}
	}()
}

// Resolve blocks until one leg fills (or both do), cancels whatever must not
// stay live, and returns the outcome. An unexpected exchange state aborts
// the race with an error; local logic cannot safely interpret it.
func (r *Resolver) Resolve(longOrderID, shortOrderID string) (Outcome, error) {
	log.Info().
		Str("long_order", longOrderID).
		Str("short_order", shortOrderID).
		Msg("🏁 Racing straddle legs")

	var lastLog time.Time
	for {
		if time.Since(lastLog) >= r.logInterval {
			log.Info().
				Str("long_order", longOrderID).
				Str("short_order", shortOrderID).
				Msg("Waiting for a straddle leg to fill")
			lastLog = time.Now()
		}

		time.Sleep(r.pollInterval)

		longFilled, err := r.orderFilled(longOrderID)
		if err != nil {
			return "", err
		}
		shortFilled, err := r.orderFilled(shortOrderID)
		if err != nil {
			return "", err
		}

		switch {
		case longFilled && shortFilled:
			log.Warn().Msg("Both straddle legs filled, cancelling both")
			r.cancel(longOrderID)
			r.cancel(shortOrderID)
			return r.finish(OutcomeDoubleFill), nil
		case longFilled:
			log.Info().Msg("Long leg filled, cancelling short leg")
			r.cancel(shortOrderID)
			return r.finish(OutcomeLongFilled), nil
		case shortFilled:
			log.Info().Msg("Short leg filled, cancelling long leg")
			r.cancel(longOrderID)
			return r.finish(OutcomeShortFilled), nil
		}
	}
}

// orderFilled maps the remote status onto the race state machine. Partially
// filled orders count as filled.
func (r *Resolver) orderFilled(orderID string) (bool, error) {
	status, err := r.api.GetOrderStatus(orderID)
	if err != nil {
		return false, err
	}

	switch status {
	case bybit.StatusFilled, bybit.StatusPartiallyFilled:
		log.Info().
			Str("order", orderID).
			Str("status", string(status)).
			Msg("Considering order as filled")
		return true, nil
	case bybit.StatusNew, bybit.StatusUntriggered:
		return false, nil
	default:
		return false, fmt.Errorf("order %s has unexpected status %q", orderID, status)
	}
}

// cancel is best-effort: the order may already be filled or gone, and the
// race is over either way.
func (r *Resolver) cancel(orderID string) {
	if err := r.api.CancelOrder(r.symbol, orderID); err != nil {
		log.Warn().Err(err).Str("order", orderID).Msg("Failed to cancel order")
		return
	}
	log.Info().Str("order", orderID).Msg("Cancelled order")
}

func (r *Resolver) finish(outcome Outcome) Outcome {
	if r.onResolved != nil {
		r.onResolved(outcome)
	}
	return outcome
}
