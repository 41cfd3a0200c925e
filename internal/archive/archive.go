// Package archive persists completed pipeline runs: the transcript and
// summary into Postgres, the original audio into S3. Archiving is entirely
// best-effort, it never affects pipeline outcome or the dedup ledger.
package archive

import (
	"context"
	"io"
	"os"
	"strings"
	"voicebrief/pkg/logger"
	"voicebrief/pkg/model"

	"go.uber.org/zap"
)

// Store persists run records.
type Store interface {
	SaveRun(ctx context.Context, rec *model.RunRecord) error
}

// BlobStore persists raw audio.
type BlobStore interface {
	UploadAudio(ctx context.Context, key string, body io.Reader, contentType string) error
	GenerateKey(messageKey, extension string) string
}

type Archiver struct {
	store Store
	blobs BlobStore
}

// NewArchiver creates an archiver. Either collaborator may be nil, in which
// case that half of the archive is skipped.
func NewArchiver(store Store, blobs BlobStore) *Archiver {
	return &Archiver{
		store: store,
		blobs: blobs,
	}
}

// ArchiveRun uploads the audio (while the temp file still exists) and saves
// the run record. Failures are logged and swallowed.
func (a *Archiver) ArchiveRun(ctx context.Context, rec *model.RunRecord, audioPath string) {
	if a.blobs != nil {
		if key, err := a.uploadAudio(ctx, rec, audioPath); err != nil {
			logger.Error("Failed to archive audio",
				zap.String("message_key", rec.MessageKey),
				zap.Error(err))
		} else {
			rec.AudioKey = &key
		}
	}

	if a.store != nil {
		if err := a.store.SaveRun(ctx, rec); err != nil {
			logger.Error("Failed to archive run record",
				zap.String("message_key", rec.MessageKey),
				zap.Error(err))
		}
	}
}

func (a *Archiver) uploadAudio(ctx context.Context, rec *model.RunRecord, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	// Object keys keep the chat:message form but slashes are safer than colons.
	key := a.blobs.GenerateKey(strings.ReplaceAll(rec.MessageKey, ":", "/"), ".ogg")
	if err := a.blobs.UploadAudio(ctx, key, file, "audio/ogg"); err != nil {
		return "", err
	}

	return key, nil
}
