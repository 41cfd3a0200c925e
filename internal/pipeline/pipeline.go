// Package pipeline runs the ordered transcribe→summarize→deliver→cleanup
// sequence for a single voice message.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"voicebrief/internal/dedup"
	"voicebrief/pkg/logger"
	"voicebrief/pkg/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const summaryHeader = "🎤 **Voice Message Summary:**\n\n"

// Transcriber converts a downloaded audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Summarizer condenses a transcript into a bullet-point summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Messenger is the outbound half of the messaging capability the pipeline
// needs: fetch audio, post text, forward media.
type Messenger interface {
	Download(voice model.VoiceMessage, path string) error
	SendText(chatID int64, text string) error
	ForwardVoice(chatID int64, voice model.VoiceMessage) error
}

// RunArchiver persists a completed run best-effort. It must not fail the
// run; implementations log their own errors.
type RunArchiver interface {
	ArchiveRun(ctx context.Context, rec *model.RunRecord, audioPath string)
}

type Pipeline struct {
	ledger   dedup.Ledger
	stt      Transcriber
	llm      Summarizer
	msgr     Messenger
	archiver RunArchiver
	tempDir  string
}

// New creates a pipeline. archiver may be nil when archiving is disabled;
// empty tempDir falls back to the OS temp directory.
func New(ledger dedup.Ledger, stt Transcriber, llm Summarizer, msgr Messenger, archiver RunArchiver, tempDir string) *Pipeline {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Pipeline{
		ledger:   ledger,
		stt:      stt,
		llm:      llm,
		msgr:     msgr,
		archiver: archiver,
		tempDir:  tempDir,
	}
}

// Process executes one full run for the request. Already-processed messages
// are a no-op. On any stage failure the temp audio file is removed, the
// message is left unmarked and a *StageError is returned. The ledger is
// written only after delivery succeeded and the temp file is gone.
func (p *Pipeline) Process(ctx context.Context, req model.ProcessingRequest) error {
	key := req.Voice.Key()

	if p.ledger.Seen(key) {
		logger.Info("Message already processed, skipping",
			zap.String("message_key", key))
		return nil
	}

	audioPath := p.tempPath(req.Voice)

	if err := p.msgr.Download(req.Voice, audioPath); err != nil {
		p.removeTemp(audioPath)
		return &StageError{Stage: StageDownload, MessageKey: key, Err: err}
	}
	defer p.removeTemp(audioPath)

	logger.Info("Voice message downloaded",
		zap.String("message_key", key),
		zap.String("path", audioPath))

	transcript, err := p.stt.Transcribe(ctx, audioPath)
	if err != nil {
		return &StageError{Stage: StageTranscribe, MessageKey: key, Err: err}
	}
	if transcript == "" {
		return &StageError{Stage: StageTranscribe, MessageKey: key, Err: fmt.Errorf("empty transcript")}
	}

	summary, err := p.llm.Summarize(ctx, transcript)
	if err != nil {
		return &StageError{Stage: StageSummarize, MessageKey: key, Err: err}
	}

	if err := p.msgr.SendText(req.DestinationChat, summaryHeader+summary); err != nil {
		return &StageError{Stage: StageDeliver, MessageKey: key, Err: err}
	}

	if req.ForwardOriginal {
		if err := p.msgr.ForwardVoice(req.DestinationChat, req.Voice); err != nil {
			return &StageError{Stage: StageDeliver, MessageKey: key, Err: err}
		}
	}

	if p.archiver != nil {
		rec := &model.RunRecord{
			ID:         uuid.New().String(),
			MessageKey: key,
			ChatID:     req.Voice.ChatID,
			MessageID:  req.Voice.ID,
			Transcript: transcript,
			Summary:    summary,
			Duration:   req.Voice.Duration,
			CreatedAt:  time.Now(),
		}
		p.archiver.ArchiveRun(ctx, rec, audioPath)
	}

	// Cleanup precedes the ledger write; the deferred remove then no-ops.
	p.removeTemp(audioPath)
	p.ledger.MarkProcessed(key)

	logger.Info("Voice message processed",
		zap.String("message_key", key),
		zap.Int64("destination_chat", req.DestinationChat),
		zap.Bool("forwarded", req.ForwardOriginal))

	return nil
}

// tempPath names the scoped audio file deterministically from the message
// identity, so a retried attempt reuses the same path.
func (p *Pipeline) tempPath(voice model.VoiceMessage) string {
	return filepath.Join(p.tempDir, fmt.Sprintf("voice_%d_%d.ogg", voice.ChatID, voice.ID))
}

func (p *Pipeline) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("Failed to remove temp audio file",
			zap.String("path", path),
			zap.Error(err))
	}
}
