package model

import (
	"fmt"
	"time"
)

// VoiceMessage is a read-only reference to a voice message owned by the
// messaging platform. The audio payload itself is downloaded on demand via
// the file id; it is never held in memory here.
type VoiceMessage struct {
	ID        int       `json:"id"`
	ChatID    int64     `json:"chat_id"`
	FileID    string    `json:"file_id"`
	Timestamp time.Time `json:"timestamp"`
	Duration  int       `json:"duration"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
}

// Key returns the platform-wide identifier of the message. Telegram message
// ids are only unique within a chat, so the key is chat-scoped.
func (v VoiceMessage) Key() string {
	return fmt.Sprintf("%d:%d", v.ChatID, v.ID)
}

// ProcessingRequest is created per trigger event and consumed exactly once
// by the pipeline.
type ProcessingRequest struct {
	Voice           VoiceMessage
	DestinationChat int64
	ForwardOriginal bool
}

// RunRecord captures one successfully completed pipeline run for the
// optional archive. It is written best-effort and never read back by the
// pipeline itself.
type RunRecord struct {
	ID         string    `json:"id" db:"id"`
	MessageKey string    `json:"message_key" db:"message_key"`
	ChatID     int64     `json:"chat_id" db:"chat_id"`
	MessageID  int       `json:"message_id" db:"message_id"`
	Transcript string    `json:"transcript" db:"transcript"`
	Summary    string    `json:"summary" db:"summary"`
	Duration   int       `json:"duration_seconds" db:"duration_seconds"`
	AudioKey   *string   `json:"audio_key,omitempty" db:"audio_key"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
