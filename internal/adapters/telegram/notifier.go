package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/internal/adapters/config"
	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/models"
)

// Notifier broadcasts emitted signals to a Telegram channel
type Notifier struct {
	api *tgbotapi.BotAPI
	cfg *config.TelegramConfig
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
		zap.Int64("chat_id", cfg.ChatID),
	)

	return &Notifier{
		api: bot,
		cfg: cfg,
	}, nil
}

// SendSignal sends an asset signal notification
func (n *Notifier) SendSignal(sig *models.Signal) error {
	if !n.cfg.Enabled {
		return nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s %s*\n\n", directionEmoji(sig.Direction), sig.Asset, sig.Direction)
	fmt.Fprintf(&b, "Score: *%.0f/100* (%s)\n", sig.Score, sig.Confidence)
	fmt.Fprintf(&b, "Entry: `%.4f - %.4f`\n", sig.EntryRange.Min, sig.EntryRange.Max)
	fmt.Fprintf(&b, "Stop loss: `%.4f`\n", sig.StopLoss)

	if len(sig.TakeProfits) > 0 {
		targets := make([]string, len(sig.TakeProfits))
		for i, tp := range sig.TakeProfits {
			targets[i] = fmt.Sprintf("`%.4f`", tp)
		}
		fmt.Fprintf(&b, "Targets: %s\n", strings.Join(targets, " / "))
	}

	if len(sig.Reasons) > 0 {
		b.WriteString("\n")
		for _, reason := range sig.Reasons {
			fmt.Fprintf(&b, "• %s\n", reason)
		}
	}

	fmt.Fprintf(&b, "\n_%s_", sig.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))

	return n.sendMessageMarkdown(n.cfg.ChatID, b.String())
}

// SendMarketSignal sends a market-wide signal notification
func (n *Notifier) SendMarketSignal(sig *models.MarketSignal) error {
	if !n.cfg.Enabled {
		return nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s *Market signal: %s*\n\n", marketEmoji(sig.Action), sig.Type)
	fmt.Fprintf(&b, "Action: *%s*\n", sig.Action)
	fmt.Fprintf(&b, "Confidence: %s\n", sig.Confidence)

	if sig.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", sig.Reason)
	}

	fmt.Fprintf(&b, "\n_%s_", time.Unix(sig.Timestamp, 0).UTC().Format("2006-01-02 15:04:05 MST"))

	return n.sendMessageMarkdown(n.cfg.ChatID, b.String())
}

// SendAlert sends a plain operational alert (crash detection, data gaps)
func (n *Notifier) SendAlert(text string) error {
	if !n.cfg.Enabled {
		return nil
	}

	return n.sendMessageMarkdown(n.cfg.ChatID, "⚠️ "+text)
}

// Helper methods

func (n *Notifier) sendMessageMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"

	_, err := n.api.Send(msg)
	if err != nil {
		logger.Error("failed to send telegram message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func directionEmoji(direction models.Direction) string {
	switch direction {
	case models.DirectionLong:
		return "📈"
	case models.DirectionShort:
		return "📉"
	default:
		return "🤖"
	}
}

func marketEmoji(action models.MarketAction) string {
	switch action {
	case models.ActionLongMarket, models.ActionLongAll, models.ActionLongAccumulate:
		return "🟢"
	case models.ActionShortMarket, models.ActionShortAll, models.ActionTakeProfit:
		return "🔴"
	default:
		return "🔁"
	}
}
