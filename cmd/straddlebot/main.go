// Straddlebot - doji straddle bot for Bybit linear perpetuals
//
// At configured target hours it inspects the just-closed candle. If the
// candle is a doji, it places two opposing conditional orders: a long
// triggering above the wick high and a short triggering below the wick low,
// each with attached TP/SL. Whichever triggers first wins the race and the
// other order is cancelled.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/0xwick/straddlebot/internal/bot"
	"github.com/0xwick/straddlebot/internal/bybit"
	"github.com/0xwick/straddlebot/internal/config"
	"github.com/0xwick/straddlebot/internal/database"
	"github.com/0xwick/straddlebot/internal/feed"
	"github.com/0xwick/straddlebot/internal/notify"
)

const version = "1.0.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("symbol", cfg.Symbol).
		Bool("testnet", cfg.Testnet).
		Bool("dry_run", cfg.DryRun).
		Msg("⚡ Straddlebot starting...")

	// Journal (optional: the bot trades fine without it)
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Journal unavailable, continuing without persistence")
		db = nil
	}

	// Telegram notifications (optional)
	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Telegram unavailable, continuing without notifications")
	}

	// Live mark price feed (informational only)
	ticker := feed.NewTicker(cfg.Symbol, cfg.Testnet)
	if err := ticker.Start(); err != nil {
		log.Warn().Err(err).Msg("⚠️ Ticker feed unavailable, continuing without live prices")
		ticker = nil
	}

	// The one shared remote session: every call from the cycle loop and from
	// race resolvers serializes through this wrapper.
	client := bybit.NewClient(cfg.APIKey, cfg.APISecret, cfg.Testnet, cfg.Category)
	session := bybit.NewSyncSession(client)

	straddleBot := bot.New(cfg, session, db, notifier, ticker)

	if err := straddleBot.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure account")
	}

	ctx, cancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("🛑 Shutdown signal received")
		cancel()
	}()

	if err := straddleBot.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("❌ Bot stopped with error")
	}

	// Best-effort cleanup: in-flight race resolvers are abandoned, stray
	// entry orders are cancelled, protective TP/SL orders stay.
	log.Info().Msg("Cleaning up...")
	straddleBot.Cleanup()

	if ticker != nil {
		ticker.Stop()
	}

	log.Info().Msg("👋 Goodbye!")
}
