// Package telegram adapts the telebot client to the narrow messaging
// capability the pipeline and router consume.
package telegram

import (
	"fmt"
	"strconv"
	"voicebrief/pkg/model"

	tele "gopkg.in/telebot.v4"
)

type Messenger struct {
	tb *tele.Bot
}

func NewMessenger(tb *tele.Bot) *Messenger {
	return &Messenger{tb: tb}
}

// Download fetches the voice audio to a local path.
func (m *Messenger) Download(voice model.VoiceMessage, path string) error {
	file := tele.File{FileID: voice.FileID}
	if err := m.tb.Download(&file, path); err != nil {
		return fmt.Errorf("failed to download voice %s: %w", voice.Key(), err)
	}
	return nil
}

func (m *Messenger) SendText(chatID int64, text string) error {
	if _, err := m.tb.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// ForwardVoice re-sends the original voice message into the destination
// chat. StoredMessage carries just the (chat, message) pair telebot needs.
func (m *Messenger) ForwardVoice(chatID int64, voice model.VoiceMessage) error {
	src := tele.StoredMessage{
		MessageID: strconv.Itoa(voice.ID),
		ChatID:    voice.ChatID,
	}
	if _, err := m.tb.Forward(tele.ChatID(chatID), src); err != nil {
		return fmt.Errorf("failed to forward voice %s: %w", voice.Key(), err)
	}
	return nil
}

// Reply posts text as a reply to the given message.
func (m *Messenger) Reply(chatID int64, messageID int, text string) error {
	opts := &tele.SendOptions{
		ReplyTo: &tele.Message{ID: messageID, Chat: &tele.Chat{ID: chatID}},
	}
	if _, err := m.tb.Send(tele.ChatID(chatID), text, opts); err != nil {
		return fmt.Errorf("failed to reply in chat %d: %w", chatID, err)
	}
	return nil
}

// VoiceFromMessage maps a telebot message with voice content onto the
// platform-independent value the core works with.
func VoiceFromMessage(msg *tele.Message) model.VoiceMessage {
	return model.VoiceMessage{
		ID:        msg.ID,
		ChatID:    msg.Chat.ID,
		FileID:    msg.Voice.FileID,
		Timestamp: msg.Time(),
		Duration:  msg.Voice.Duration,
		FileSize:  int64(msg.Voice.FileSize),
		MimeType:  msg.Voice.MIME,
	}
}
