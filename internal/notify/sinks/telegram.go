package sinks

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vigilbot/vigil/internal/notify"
)

// messagePause spaces consecutive sends; Telegram allows roughly 20
// messages per second per bot.
const messagePause = 50 * time.Millisecond

// MessageSender is the slice of the Telegram bot API the sink uses.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink renders events into chat messages. Winner events go to the
// resolved subscriber; everything else goes to the configured default chat.
type TelegramSink struct {
	bot           MessageSender
	defaultChatID int64
}

// NewTelegramSink builds a sink around a bot client and a fallback chat.
func NewTelegramSink(bot MessageSender, defaultChatID int64) *TelegramSink {
	return &TelegramSink{bot: bot, defaultChatID: defaultChatID}
}

// Deliver formats and sends one message.
func (s *TelegramSink) Deliver(ctx context.Context, evt notify.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID := s.defaultChatID
	if evt.Type == notify.TypeLotteryWinner && evt.SubscriberID != 0 {
		chatID = evt.SubscriberID
	}

	msg := tgbotapi.NewMessage(chatID, renderText(evt))
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	time.Sleep(messagePause)
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *TelegramSink) Close(context.Context) error { return nil }

func renderText(evt notify.Event) string {
	switch evt.Type {
	case notify.TypeFeedItem:
		return fmt.Sprintf("📰 %s\n%s", evt.Title, evt.URL)
	case notify.TypeRepoRelease:
		return fmt.Sprintf("🚀 New release %s\n%s", evt.Title, evt.URL)
	case notify.TypeRepoMilestone:
		return fmt.Sprintf("⭐ %s passed %d stars (now %d)", evt.Title, evt.Threshold, evt.StarCount)
	case notify.TypePriceTarget:
		return fmt.Sprintf("🎯 %s hit the target price: %.2f\n%s", evt.Title, evt.Price, evt.URL)
	case notify.TypePriceDrop:
		return fmt.Sprintf("📉 %s dropped %.1f%% to %.2f\n%s", evt.Title, evt.DropPercent, evt.Price, evt.URL)
	case notify.TypePriceChange:
		return fmt.Sprintf("💱 %s changed from %.2f to %.2f\n%s", evt.Title, evt.LastPrice, evt.Price, evt.URL)
	case notify.TypeLotteryWinner:
		return fmt.Sprintf("🎉 Congratulations @%s, you won!\n%s", evt.Username, evt.URL)
	default:
		return fmt.Sprintf("%s: %s", evt.Type, evt.Title)
	}
}
