package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xwick/straddlebot/internal/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM NOTIFICATIONS
// ═══════════════════════════════════════════════════════════════════════════════
//
// Send-only alerts: straddle placed, race resolved, cycle aborted. A nil
// *Telegram is a valid no-op notifier, so callers never branch on whether
// Telegram is configured.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Telegram pushes bot events to a chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a notifier, or returns (nil, nil) when token/chat are
// not configured.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		log.Info().Msg("Telegram not configured, notifications disabled")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	log.Info().Str("bot", api.Self.UserName).Msg("📱 Telegram notifier ready")
	return &Telegram{api: api, chatID: chatID}, nil
}

// StraddlePlaced announces a newly placed straddle pair.
func (t *Telegram) StraddlePlaced(symbol string, long, short types.Order, longID, shortID string, markPrice decimal.Decimal) {
	mark := "n/a"
	if !markPrice.IsZero() {
		mark = markPrice.String()
	}
	t.send(fmt.Sprintf(
		"🎯 *Straddle placed* on %s (mark %s)\n"+
			"⬆️ Long: entry %s, SL %s, TP %s, qty %s @ %sx\n"+
			"⬇️ Short: entry %s, SL %s, TP %s, qty %s @ %sx\n"+
			"IDs: `%s` / `%s`",
		symbol, mark,
		long.Entry, long.StopLoss, long.TakeProfit, long.Quantity, long.Leverage,
		short.Entry, short.StopLoss, short.TakeProfit, short.Quantity, short.Leverage,
		longID, shortID,
	))
}

// RaceResolved announces the race outcome.
func (t *Telegram) RaceResolved(symbol, outcome string) {
	icon := "🏁"
	if outcome == "double_fill" {
		icon = "⚠️"
	}
	t.send(fmt.Sprintf("%s *Race resolved* on %s: %s", icon, symbol, outcome))
}

// CycleAborted announces a cycle that ended before placement.
func (t *Telegram) CycleAborted(symbol string, reason error) {
	t.send(fmt.Sprintf("🚫 Cycle aborted on %s: %v", symbol, reason))
}

func (t *Telegram) send(text string) {
	if t == nil {
		return
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Failed to send Telegram message")
	}
}
