package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies which pipeline step failed.
type Stage string

const (
	StageDownload   Stage = "download"
	StageTranscribe Stage = "transcribe"
	StageSummarize  Stage = "summarize"
	StageDeliver    Stage = "deliver"
)

// StageError is the typed failure of one pipeline run. The message was not
// marked processed and remains eligible for a later trigger.
type StageError struct {
	Stage      Stage
	MessageKey string
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for message %s: %v", e.Stage, e.MessageKey, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage reports the stage a pipeline error belongs to, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
