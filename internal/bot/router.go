// Package bot contains the trigger router and its Telegram glue. The
// router owns the decision logic for both trigger modes and knows nothing
// about the Telegram library; Bot adapts platform events into router calls.
package bot

import (
	"context"
	"strings"
	"time"
	"voicebrief/pkg/logger"
	"voicebrief/pkg/model"

	"go.uber.org/zap"
)

const usageHint = "Reply to a voice message with the trigger keyword to get a summary."

const failureNotice = "Sorry, I couldn't process that voice message."

// Runner executes one pipeline run.
type Runner interface {
	Process(ctx context.Context, req model.ProcessingRequest) error
}

// Replier posts an in-place reply, used for the usage hint and for command
// failure notices.
type Replier interface {
	Reply(chatID int64, messageID int, text string) error
}

// CommandMessage is a normalized incoming text message for the command
// listener. ReplyVoice is non-nil only when the message replies to a voice
// message.
type CommandMessage struct {
	ChatID     int64
	MessageID  int
	Text       string
	IsReply    bool
	ReplyVoice *model.VoiceMessage
}

// RouterConfig carries the already-resolved trigger settings.
type RouterConfig struct {
	SourceChat      int64
	DestinationChat int64
	Keyword         string
	AutoMode        bool
	ForwardVoice    bool
}

type Router struct {
	runner    Runner
	replier   Replier
	cfg       RouterConfig
	startedAt time.Time
}

func NewRouter(runner Runner, replier Replier, cfg RouterConfig, startedAt time.Time) *Router {
	cfg.Keyword = strings.TrimSpace(cfg.Keyword)
	return &Router{
		runner:    runner,
		replier:   replier,
		cfg:       cfg,
		startedAt: startedAt,
	}
}

// AutoEnabled reports whether the passive listener should be registered.
func (r *Router) AutoEnabled() bool {
	return r.cfg.AutoMode
}

// HandleAuto is the passive listener: any new voice message in the source
// chat, timestamped strictly after process start, is processed with the
// configured destination and forward flag. Failures are logged; the
// connection stays up.
func (r *Router) HandleAuto(ctx context.Context, voice model.VoiceMessage) {
	if !r.cfg.AutoMode {
		return
	}
	if voice.ChatID != r.cfg.SourceChat {
		return
	}
	if !voice.Timestamp.After(r.startedAt) {
		logger.Debug("Ignoring voice message from before start",
			zap.String("message_key", voice.Key()),
			zap.Time("timestamp", voice.Timestamp))
		return
	}

	logger.Info("New voice message detected",
		zap.String("message_key", voice.Key()))

	req := model.ProcessingRequest{
		Voice:           voice,
		DestinationChat: r.cfg.DestinationChat,
		ForwardOriginal: r.cfg.ForwardVoice,
	}

	if err := r.runner.Process(ctx, req); err != nil {
		logger.Error("Auto processing failed",
			zap.String("message_key", voice.Key()),
			zap.Error(err))
	}
}

// HandleCommand is the active listener: a reply whose trimmed text equals
// the trigger keyword (case-insensitive) processes the replied-to voice
// message into the commanding chat, never forwarding the original. A reply
// to a non-voice message gets the usage hint. All failures are reported
// back into the originating chat.
func (r *Router) HandleCommand(ctx context.Context, cmd CommandMessage) {
	if !cmd.IsReply {
		return
	}
	if !MatchesTrigger(cmd.Text, r.cfg.Keyword) {
		return
	}

	if cmd.ReplyVoice == nil {
		logger.Info("Trigger reply targets a non-voice message",
			zap.Int64("chat_id", cmd.ChatID),
			zap.Int("message_id", cmd.MessageID))
		r.reply(cmd, usageHint)
		return
	}

	logger.Info("Trigger command received",
		zap.Int64("chat_id", cmd.ChatID),
		zap.String("message_key", cmd.ReplyVoice.Key()))

	req := model.ProcessingRequest{
		Voice:           *cmd.ReplyVoice,
		DestinationChat: cmd.ChatID,
		ForwardOriginal: false,
	}

	if err := r.runner.Process(ctx, req); err != nil {
		logger.Error("Command processing failed",
			zap.String("message_key", cmd.ReplyVoice.Key()),
			zap.Error(err))
		r.reply(cmd, failureNotice)
	}
}

func (r *Router) reply(cmd CommandMessage, text string) {
	if err := r.replier.Reply(cmd.ChatID, cmd.MessageID, text); err != nil {
		logger.Error("Failed to send reply",
			zap.Int64("chat_id", cmd.ChatID),
			zap.Error(err))
	}
}

// MatchesTrigger checks the keyword match: case-insensitive, with
// surrounding whitespace trimmed, exact otherwise.
func MatchesTrigger(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(text), keyword)
}
