package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xwick/straddlebot/internal/bybit"
	"github.com/0xwick/straddlebot/internal/config"
	"github.com/0xwick/straddlebot/internal/conform"
	"github.com/0xwick/straddlebot/internal/database"
	"github.com/0xwick/straddlebot/internal/feed"
	"github.com/0xwick/straddlebot/internal/notify"
	"github.com/0xwick/straddlebot/internal/race"
	"github.com/0xwick/straddlebot/internal/strategy"
	"github.com/0xwick/straddlebot/internal/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TRADING CYCLE ORCHESTRATOR
// ═══════════════════════════════════════════════════════════════════════════════
//
// One cycle per target hour: fetch the closed signal candle → doji check →
// derive both straddle legs → conform BOTH legs → place both → hand the pair
// to a race resolver and go back to sleep. Resolvers are never joined, so
// several may still be racing while a new cycle starts; the synchronized
// session is the only thing they share.
//
// Conformance rejections abandon the cycle without placing anything — a
// single-legged straddle is never allowed to exist on purpose.
//
// ═══════════════════════════════════════════════════════════════════════════════

const candlesToFetch = 3

// Bot drives the straddle strategy for one symbol.
type Bot struct {
	cfg            *config.Config
	api            bybit.Session
	db             *database.Database
	notifier       *notify.Telegram
	ticker         *feed.Ticker
	loc            *time.Location
	candleInterval time.Duration
}

// New wires the orchestrator. db and ticker may be nil; notifier is
// nil-safe by itself.
func New(cfg *config.Config, api bybit.Session, db *database.Database, notifier *notify.Telegram, ticker *feed.Ticker) *Bot {
	minutes, err := strconv.Atoi(cfg.Interval)
	if err != nil || minutes <= 0 {
		minutes = 3
	}
	return &Bot{
		cfg:            cfg,
		api:            api,
		db:             db,
		notifier:       notifier,
		ticker:         ticker,
		loc:            cfg.Location(),
		candleInterval: time.Duration(minutes) * time.Minute,
	}
}

// Setup performs the once-per-start account configuration.
func (b *Bot) Setup() error {
	if b.cfg.DryRun {
		return nil
	}

	if err := b.api.SetMarginMode(b.cfg.MarginMode); err != nil {
		var apiErr *bybit.APIError
		if errors.As(err, &apiErr) {
			// Usually means the account is already in this mode.
			log.Warn().Err(err).Msg("Margin mode not changed")
			return nil
		}
		return fmt.Errorf("set margin mode: %w", err)
	}
	log.Info().Str("mode", b.cfg.MarginMode).Msg("Margin mode set")
	return nil
}

// Run executes cycles until the configured run length elapses or ctx is
// cancelled. Cycle rejections are logged and skipped; fatal errors return.
func (b *Bot) Run(ctx context.Context) error {
	endTime := time.Now().AddDate(0, 0, b.cfg.DaysToRun)

	log.Info().
		Str("symbol", b.cfg.Symbol).
		Strs("target_hours", b.cfg.TargetHours).
		Time("until", endTime).
		Bool("dry_run", b.cfg.DryRun).
		Msg("🤖 Straddle bot running")

	for time.Now().Before(endTime) {
		if err := b.sleepUntilNextTarget(ctx); err != nil {
			return err
		}

		if err := b.runCycle(); err != nil {
			if isRejection(err) {
				log.Warn().Err(err).Msg("Cycle abandoned, waiting for next target hour")
				b.notifier.CycleAborted(b.cfg.Symbol, err)
				continue
			}
			return err
		}
	}

	log.Info().Msg("Run window elapsed")
	return nil
}

// isRejection tells apart fatal-for-cycle rejections (skip to next wake-up)
// from fatal errors (stop the bot).
func isRejection(err error) bool {
	return errors.Is(err, conform.ErrLeverageTooLow) ||
		errors.Is(err, conform.ErrQuantityOutOfRange) ||
		errors.Is(err, conform.ErrInsufficientMargin) ||
		errors.Is(err, strategy.ErrDegenerateCandle)
}

func (b *Bot) sleepUntilNextTarget(ctx context.Context) error {
	wake := NextWake(time.Now(), b.cfg.TargetHours, b.loc, b.candleInterval)
	sleep := time.Until(wake)

	log.Info().
		Time("wake", wake).
		Str("in", sleep.Round(time.Second).String()).
		Msg("Sleeping until next target hour")

	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		log.Info().Msg("Woken up for target hour")
		return nil
	}
}

// runCycle runs one full fetch→classify→conform→place→race pass.
func (b *Bot) runCycle() error {
	candles, err := b.latestClosedCandles()
	if err != nil {
		return err
	}

	candle, ok := strategy.FindTargetHourCandle(candles, b.cfg.TargetHours, b.loc)
	if !ok {
		return fmt.Errorf("no candle in target hours among %d closed candles", len(candles))
	}

	if !strategy.IsDoji(candle, b.cfg.WickBodyRatio) {
		log.Info().
			Time("candle_start", candle.StartTime).
			Str("open", candle.Open.String()).
			Str("close", candle.Close.String()).
			Msg("Candle is not a doji, skipping cycle")
		return nil
	}

	log.Info().
		Time("candle_start", candle.StartTime).
		Str("high", candle.High.String()).
		Str("low", candle.Low.String()).
		Msg("🕯️ Identified doji candle")

	if b.ticker != nil {
		if mark, ok := b.ticker.LastPrice(); ok {
			log.Info().Str("mark_price", mark.String()).Msg("Current market price")
		}
	}

	info, err := b.api.GetInstrumentInfo(b.cfg.Symbol)
	if err != nil {
		return err
	}

	long, err := strategy.LongOrder(candle, info.TickSize)
	if err != nil {
		return err
	}
	short, err := strategy.ShortOrder(candle, info.TickSize)
	if err != nil {
		return err
	}

	if long.Leverage, err = strategy.Leverage(long.Entry, long.StopLoss, b.cfg.RiskPerPosition); err != nil {
		return err
	}
	if short.Leverage, err = strategy.Leverage(short.Entry, short.StopLoss, b.cfg.RiskPerPosition); err != nil {
		return err
	}

	balance, err := b.api.GetWalletBalance(b.cfg.AccountType, b.cfg.Coin)
	if err != nil {
		return err
	}

	// Half the wallet per leg, so both conditional orders can be margined at
	// the same time.
	budget := balance.Div(decimal.NewFromInt(2)).Floor()
	long.Quantity = strategy.Quantity(long.Entry, budget, long.Leverage)
	short.Quantity = strategy.Quantity(short.Entry, budget, short.Leverage)

	// Conform BOTH legs before placing EITHER: if one leg is rejected after
	// the other was already live, we would be left with an unhedged single
	// leg. All-or-nothing.
	if err := conform.Order(&long, candle, info, balance); err != nil {
		return fmt.Errorf("long leg: %w", err)
	}
	if err := conform.Order(&short, candle, info, balance); err != nil {
		return fmt.Errorf("short leg: %w", err)
	}

	if b.cfg.DryRun {
		log.Info().
			Str("long_entry", long.Entry.String()).
			Str("long_sl", long.StopLoss.String()).
			Str("short_entry", short.Entry.String()).
			Str("short_sl", short.StopLoss.String()).
			Msg("📝 DRY RUN: straddle computed, not placed")
		return nil
	}

	longID, err := b.placeLeg(long)
	if err != nil {
		return err
	}
	shortID, err := b.placeLeg(short)
	if err != nil {
		// The long leg is already live with no opposite hedge; take it down
		// best-effort before surfacing the failure.
		log.Error().Err(err).Msg("Short leg placement failed, cancelling long leg")
		if cancelErr := b.api.CancelOrder(b.cfg.Symbol, longID); cancelErr != nil {
			log.Warn().Err(cancelErr).Str("order", longID).Msg("Failed to cancel stranded long leg")
		}
		return err
	}

	cycleID := b.journalCycle(candle, long, short, longID, shortID)

	resolver := race.NewResolver(b.api, b.cfg.Symbol, b.cfg.PollInterval, b.cfg.ProgressLogInterval)
	resolver.OnResolved(func(outcome race.Outcome) {
		if b.db != nil && cycleID != 0 {
			if err := b.db.ResolveCycle(cycleID, string(outcome)); err != nil {
				log.Warn().Err(err).Msg("Failed to journal race outcome")
			}
		}
		b.notifier.RaceResolved(b.cfg.Symbol, string(outcome))
	})
	resolver.Start(longID, shortID)

	var mark decimal.Decimal
	if b.ticker != nil {
		mark, _ = b.ticker.LastPrice()
	}
	b.notifier.StraddlePlaced(b.cfg.Symbol, long, short, longID, shortID, mark)

	return nil
}

// placeLeg sets the leg's leverage and places it. Re-setting an unchanged
// leverage is a tolerated no-op.
func (b *Bot) placeLeg(order types.Order) (string, error) {
	log.Info().Str("leverage", order.Leverage.String()+"x").Msg("Setting symbol leverage")
	if err := b.api.SetLeverage(b.cfg.Symbol, order.Leverage); err != nil && !bybit.IsLeverageNotModified(err) {
		return "", fmt.Errorf("set leverage: %w", err)
	}
	return b.api.PlaceOrder(b.cfg.Symbol, order)
}

// latestClosedCandles fetches recent klines and drops the still-forming one.
func (b *Bot) latestClosedCandles() ([]types.Candle, error) {
	candles, err := b.api.GetKlines(b.cfg.Symbol, b.cfg.Interval, candlesToFetch)
	if err != nil {
		return nil, err
	}
	if len(candles) < 2 {
		return nil, fmt.Errorf("got %d candles, need at least 2", len(candles))
	}
	return candles[1:], nil
}

func (b *Bot) journalCycle(candle types.Candle, long, short types.Order, longID, shortID string) uint {
	if b.db == nil {
		return 0
	}

	cycle := &database.Cycle{
		Symbol:       b.cfg.Symbol,
		CandleStart:  candle.StartTime,
		CandleHigh:   candle.High,
		CandleLow:    candle.Low,
		LongOrderID:  longID,
		ShortOrderID: shortID,
		Outcome:      "racing",
	}
	if err := b.db.SaveCycle(cycle); err != nil {
		log.Warn().Err(err).Msg("Failed to journal cycle")
		return 0
	}

	for _, leg := range []struct {
		order types.Order
		id    string
	}{{long, longID}, {short, shortID}} {
		err := b.db.SaveOrderLeg(&database.OrderLeg{
			CycleID:    cycle.ID,
			OrderID:    leg.id,
			Side:       string(leg.order.Side),
			Entry:      leg.order.Entry,
			StopLoss:   leg.order.StopLoss,
			TakeProfit: leg.order.TakeProfit,
			Quantity:   leg.order.Quantity,
			Leverage:   leg.order.Leverage,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to journal order leg")
		}
	}
	return cycle.ID
}

// ═══════════════════════════════════════════════════════════════════════════════
// SHUTDOWN CLEANUP
// ═══════════════════════════════════════════════════════════════════════════════

// Cleanup cancels stray entry orders and reports what remains. Protective
// TP/SL orders are left alone: they guard positions that may still be open.
func (b *Bot) Cleanup() {
	if b.cfg.DryRun {
		return
	}

	b.cancelStrayOrders()
	b.logOpenOrders()
	b.logOpenPositions()
}

func (b *Bot) cancelStrayOrders() {
	orders, err := b.api.GetOpenOrders(b.cfg.Symbol)
	if err != nil {
		log.Error().Err(err).Msg("Cleanup: failed to list open orders")
		return
	}

	for _, order := range orders {
		if order.OrderFilter == "tpslOrder" || order.ReduceOnly || order.CloseOnTrigger {
			log.Info().
				Str("order", order.OrderID).
				Str("filter", order.OrderFilter).
				Msg("Keeping protective order")
			continue
		}

		if err := b.api.CancelOrder(b.cfg.Symbol, order.OrderID); err != nil {
			log.Error().Err(err).Str("order", order.OrderID).Msg("Cleanup: failed to cancel order")
			continue
		}
		log.Info().
			Str("order", order.OrderID).
			Str("side", order.Side).
			Str("price", order.Price).
			Msg("Cancelled stray order")
	}
}

func (b *Bot) logOpenOrders() {
	orders, err := b.api.GetOpenOrders(b.cfg.Symbol)
	if err != nil {
		log.Error().Err(err).Msg("Cleanup: failed to list remaining orders")
		return
	}

	log.Info().Int("count", len(orders)).Msg("Remaining open orders")
	for _, order := range orders {
		log.Info().
			Str("order", order.OrderID).
			Str("side", order.Side).
			Str("price", order.Price).
			Str("status", order.OrderStatus).
			Msg("Open order")
	}
}

func (b *Bot) logOpenPositions() {
	positions, err := b.api.GetPositions(b.cfg.Symbol)
	if err != nil {
		log.Error().Err(err).Msg("Cleanup: failed to list positions")
		return
	}

	if len(positions) == 0 {
		log.Info().Msg("No open positions")
		return
	}

	for _, pos := range positions {
		log.Info().
			Str("side", pos.Side).
			Str("size", pos.Size).
			Str("entry", pos.AvgPrice).
			Str("leverage", pos.Leverage).
			Str("tp", pos.TakeProfit).
			Str("sl", pos.StopLoss).
			Str("pnl", pos.UnrealisedPnl).
			Msg("Open position")
	}
}
