package bot

import (
	"context"
	"time"
	"voicebrief/internal/telegram"
	"voicebrief/pkg/logger"

	tele "gopkg.in/telebot.v4"

	"go.uber.org/zap"
)

// Bot wires the router's two listeners into the Telegram long-poll loop.
// The command listener is always registered; the auto listener only when
// auto mode is enabled.
type Bot struct {
	tb     *tele.Bot
	router *Router
}

func New(tb *tele.Bot, router *Router) *Bot {
	b := &Bot{
		tb:     tb,
		router: router,
	}
	b.registerHandlers()
	return b
}

func (b *Bot) registerHandlers() {
	b.tb.Handle(tele.OnText, b.handleText)
	if b.router.AutoEnabled() {
		b.tb.Handle(tele.OnVoice, b.handleVoice)
		logger.Info("Auto listener registered")
	} else {
		logger.Info("Auto mode disabled, command-only operation")
	}
}

func (b *Bot) handleVoice(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Voice == nil {
		return nil
	}

	b.router.HandleAuto(context.Background(), telegram.VoiceFromMessage(msg))
	return nil
}

func (b *Bot) handleText(c tele.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}

	cmd := CommandMessage{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      msg.Text,
		IsReply:   msg.ReplyTo != nil,
	}
	if msg.ReplyTo != nil && msg.ReplyTo.Voice != nil {
		voice := telegram.VoiceFromMessage(msg.ReplyTo)
		cmd.ReplyVoice = &voice
	}

	b.router.HandleCommand(context.Background(), cmd)
	return nil
}

func (b *Bot) Start() {
	logger.Info("Bot starting long polling")
	b.tb.Start()
}

func (b *Bot) Stop() {
	b.tb.Stop()
	logger.Info("Bot stopped")
}

// NewTelebot builds the underlying Telegram client: long polling with a
// bounded poll timeout.
func NewTelebot(token string, pollTimeout time.Duration) (*tele.Bot, error) {
	pref := tele.Settings{
		Token: token,
		Poller: &tele.LongPoller{
			Timeout: pollTimeout,
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		logger.Error("Failed to create bot", zap.Error(err))
		return nil, err
	}

	return tb, nil
}
