package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/robofi/dabot/internal/adapters/config"
	"github.com/robofi/dabot/pkg/logger"
)

// Notifier sends platform events to the operator chat. It implements the
// factory and bot notifier hooks.
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
	)

	return &Notifier{api: bot, cfg: cfg}, nil
}

// BotDeployed notifies the operator about a new bot instance
func (n *Notifier) BotDeployed(template, name string, id uint64, address, owner string) {
	if !n.cfg.AlertOnDeploy {
		return
	}

	msg := fmt.Sprintf("🤖 *Bot deployed*\nTemplate: %s\nName: %s\nID: %d\nAddress: `%s`\nOwner: `%s`",
		template, name, id, address, owner)
	n.send(msg)
}

// StakeAccepted notifies the operator about an accepted deposit
func (n *Notifier) StakeAccepted(botName, holder, asset string, amount, shares decimal.Decimal) {
	if !n.cfg.AlertOnStaking {
		return
	}

	msg := fmt.Sprintf("💰 *Stake accepted*\nBot: %s\nHolder: `%s`\nAsset: %s\nAmount: %s\nShares: %s",
		botName, holder, asset, amount.String(), shares.String())
	n.send(msg)
}

// UnstakeRequested notifies the operator about a pending release
func (n *Notifier) UnstakeRequested(botName, holder, asset string, amount decimal.Decimal, releaseAt time.Time) {
	if !n.cfg.AlertOnStaking {
		return
	}

	msg := fmt.Sprintf("📤 *Unstake requested*\nBot: %s\nHolder: `%s`\nAsset: %s\nAmount: %s\nRelease: %s",
		botName, holder, asset, amount.String(), releaseAt.Format("2006-01-02 15:04:05"))
	n.send(msg)
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	msg.ParseMode = "Markdown"

	if _, err := n.api.Send(msg); err != nil {
		logger.Error("failed to send telegram message",
			zap.Int64("chat_id", n.cfg.ChatID),
			zap.Error(err),
		)
	}
}
