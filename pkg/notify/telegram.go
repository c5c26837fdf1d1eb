package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends messages through the Bot API. The telegram user id doubles
// as the private chat id.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewTelegramWithEndpoint targets a custom Bot API server.
func NewTelegramWithEndpoint(token, endpoint string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

// Username is the bot's own handle.
func (t *Telegram) Username() string {
	return t.bot.Self.UserName
}

func (t *Telegram) Notify(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("send to %d: %w", userID, err)
	}
	return nil
}
