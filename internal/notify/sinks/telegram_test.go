package sinks

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/watch"
)

type capturingBot struct {
	sent []tgbotapi.MessageConfig
}

func (b *capturingBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func TestTelegramSink_FeedItemGoesToDefaultChat(t *testing.T) {
	t.Parallel()

	bot := &capturingBot{}
	sink := NewTelegramSink(bot, 1234)

	evt := notify.NewEvent(notify.TypeFeedItem, watch.KindFeed, "f1", time.Now())
	evt.Title = "New post"
	evt.URL = "https://blog.example/post"

	require.NoError(t, sink.Deliver(context.Background(), evt))
	require.Len(t, bot.sent, 1)
	require.Equal(t, int64(1234), bot.sent[0].ChatID)
	require.Contains(t, bot.sent[0].Text, "New post")
	require.Contains(t, bot.sent[0].Text, "https://blog.example/post")
	require.True(t, bot.sent[0].DisableWebPagePreview)
}

func TestTelegramSink_WinnerGoesToSubscriberChat(t *testing.T) {
	t.Parallel()

	bot := &capturingBot{}
	sink := NewTelegramSink(bot, 1234)

	evt := notify.NewEvent(notify.TypeLotteryWinner, watch.KindLottery, "l1", time.Now())
	evt.Username = "alice"
	evt.SubscriberID = 777

	require.NoError(t, sink.Deliver(context.Background(), evt))
	require.Len(t, bot.sent, 1)
	require.Equal(t, int64(777), bot.sent[0].ChatID)
	require.Contains(t, bot.sent[0].Text, "@alice")
}

func TestTelegramSink_WinnerWithoutSubscriberFallsBack(t *testing.T) {
	t.Parallel()

	bot := &capturingBot{}
	sink := NewTelegramSink(bot, 1234)

	evt := notify.NewEvent(notify.TypeLotteryWinner, watch.KindLottery, "l1", time.Now())
	evt.Username = "bob"

	require.NoError(t, sink.Deliver(context.Background(), evt))
	require.Equal(t, int64(1234), bot.sent[0].ChatID)
}

func TestTelegramSink_RendersPriceMessages(t *testing.T) {
	t.Parallel()

	bot := &capturingBot{}
	sink := NewTelegramSink(bot, 1)

	drop := notify.NewEvent(notify.TypePriceDrop, watch.KindPrice, "p1", time.Now())
	drop.Title = "Mechanical keyboard"
	drop.Price = 85
	drop.LastPrice = 100
	drop.DropPercent = 15
	drop.URL = "https://shop.example/kb"

	require.NoError(t, sink.Deliver(context.Background(), drop))
	require.Contains(t, bot.sent[0].Text, "Mechanical keyboard")
	require.Contains(t, bot.sent[0].Text, "15.0%")
	require.Contains(t, bot.sent[0].Text, "85.00")

	target := notify.NewEvent(notify.TypePriceTarget, watch.KindPrice, "p1", time.Now())
	target.Title = "Mechanical keyboard"
	target.Price = 79.99

	require.NoError(t, sink.Deliver(context.Background(), target))
	require.Contains(t, bot.sent[1].Text, "79.99")
}

func TestTelegramSink_CanceledContext(t *testing.T) {
	t.Parallel()

	bot := &capturingBot{}
	sink := NewTelegramSink(bot, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	evt := notify.NewEvent(notify.TypeFeedItem, watch.KindFeed, "f1", time.Now())
	require.Error(t, sink.Deliver(ctx, evt))
	require.Empty(t, bot.sent)
}
