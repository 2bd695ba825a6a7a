// Package notify delivers out-of-band notifications to the user, currently
// via Telegram. The negotiation loop uses it to report an agreed deal or an
// abandoned conversation.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Notifier sends user notifications over Telegram.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier creates a Telegram notifier for the given bot token and chat.
func NewNotifier(botToken string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	bot.Debug = false
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// NotifyDealAgreed tells the user a negotiation closed with an agreed
// price.
func (n *Notifier) NotifyDealAgreed(item string, price float64) error {
	text := fmt.Sprintf("Deal agreed: %s for %.2f", item, price)
	return n.send(text)
}

// NotifyConversationEnded tells the user a negotiation ended without a
// deal.
func (n *Notifier) NotifyConversationEnded(item string) error {
	text := fmt.Sprintf("Negotiation for %s ended without a deal", item)
	return n.send(text)
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	log.Info().Int64("chatID", n.chatID).Str("text", text).Msg("notification sent")
	return nil
}
