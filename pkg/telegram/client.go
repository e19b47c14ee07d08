package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier defines the interface for a Telegram notifier.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// client is an implementation of Notifier.
type client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient creates a Telegram notifier for one chat.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	return NewClientWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint)
}

// NewClientWithEndpoint creates a notifier against a custom Bot API endpoint,
// formatted like tgbotapi.APIEndpoint.
func NewClientWithEndpoint(botToken string, chatID int64, endpoint string) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &client{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// SendMessage sends a Markdown message to the configured chat.
func (c *client) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
