package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"voicebrief/internal/dedup"
	"voicebrief/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	args := m.Called(ctx, audioPath)
	return args.String(0), args.Error(1)
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

// MockMessenger writes a fake audio file on Download so cleanup behavior
// can be observed on disk.
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Download(voice model.VoiceMessage, path string) error {
	args := m.Called(voice, path)
	if args.Error(0) == nil {
		if err := os.WriteFile(path, []byte("OggS fake audio"), 0o644); err != nil {
			return err
		}
	}
	return args.Error(0)
}

func (m *MockMessenger) SendText(chatID int64, text string) error {
	args := m.Called(chatID, text)
	return args.Error(0)
}

func (m *MockMessenger) ForwardVoice(chatID int64, voice model.VoiceMessage) error {
	args := m.Called(chatID, voice)
	return args.Error(0)
}

type fixture struct {
	ledger *dedup.MemoryLedger
	stt    *MockTranscriber
	llm    *MockSummarizer
	msgr   *MockMessenger
	p      *Pipeline
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger: dedup.NewMemoryLedger(),
		stt:    new(MockTranscriber),
		llm:    new(MockSummarizer),
		msgr:   new(MockMessenger),
		dir:    t.TempDir(),
	}
	f.p = New(f.ledger, f.stt, f.llm, f.msgr, nil, f.dir)
	return f
}

func (f *fixture) tempFileAbsent(t *testing.T, voice model.VoiceMessage) {
	t.Helper()
	path := filepath.Join(f.dir, fmt.Sprintf("voice_%d_%d.ogg", voice.ChatID, voice.ID))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "temp audio file should be removed")

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp dir should be empty after the run")
}

func testVoice() model.VoiceMessage {
	return model.VoiceMessage{
		ID:     42,
		ChatID: 100,
		FileID: "file-42",
	}
}

func TestPipeline_SuccessWithForward(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()
	req := model.ProcessingRequest{Voice: voice, DestinationChat: 200, ForwardOriginal: true}

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(nil)
	f.stt.On("Transcribe", mock.Anything, mock.AnythingOfType("string")).Return("hello world", nil)
	f.llm.On("Summarize", mock.Anything, "hello world").Return("- hello\n- world", nil)
	f.msgr.On("SendText", int64(200), "🎤 **Voice Message Summary:**\n\n- hello\n- world").Return(nil)
	f.msgr.On("ForwardVoice", int64(200), voice).Return(nil)

	err := f.p.Process(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, f.ledger.Seen("100:42"))
	f.tempFileAbsent(t, voice)

	f.msgr.AssertNumberOfCalls(t, "SendText", 1)
	f.msgr.AssertNumberOfCalls(t, "ForwardVoice", 1)
	f.msgr.AssertExpectations(t)
	f.stt.AssertExpectations(t)
	f.llm.AssertExpectations(t)
}

func TestPipeline_SuccessWithoutForward(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()
	req := model.ProcessingRequest{Voice: voice, DestinationChat: 200, ForwardOriginal: false}

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(nil)
	f.stt.On("Transcribe", mock.Anything, mock.AnythingOfType("string")).Return("hello world", nil)
	f.llm.On("Summarize", mock.Anything, "hello world").Return("- hello\n- world", nil)
	f.msgr.On("SendText", int64(200), mock.AnythingOfType("string")).Return(nil)

	err := f.p.Process(context.Background(), req)
	require.NoError(t, err)

	f.msgr.AssertNotCalled(t, "ForwardVoice", mock.Anything, mock.Anything)
	assert.True(t, f.ledger.Seen("100:42"))
}

func TestPipeline_AlreadyProcessedIsNoOp(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()
	f.ledger.MarkProcessed(voice.Key())

	err := f.p.Process(context.Background(), model.ProcessingRequest{Voice: voice, DestinationChat: 200})
	require.NoError(t, err)

	f.msgr.AssertNotCalled(t, "Download", mock.Anything, mock.Anything)
	f.stt.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
	f.llm.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
	f.msgr.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything)
}

func TestPipeline_RetryAfterSuccessIsNoOp(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()
	req := model.ProcessingRequest{Voice: voice, DestinationChat: 200}

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(nil).Once()
	f.stt.On("Transcribe", mock.Anything, mock.AnythingOfType("string")).Return("hello world", nil).Once()
	f.llm.On("Summarize", mock.Anything, "hello world").Return("- hello\n- world", nil).Once()
	f.msgr.On("SendText", int64(200), mock.AnythingOfType("string")).Return(nil).Once()

	require.NoError(t, f.p.Process(context.Background(), req))
	require.NoError(t, f.p.Process(context.Background(), req))

	f.msgr.AssertNumberOfCalls(t, "Download", 1)
	f.msgr.AssertNumberOfCalls(t, "SendText", 1)
}

func TestPipeline_DownloadFailure(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(errors.New("file not found"))

	err := f.p.Process(context.Background(), model.ProcessingRequest{Voice: voice, DestinationChat: 200})
	require.Error(t, err)

	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageDownload, stage)

	assert.False(t, f.ledger.Seen("100:42"))
	f.stt.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
	f.msgr.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything)
}

func TestPipeline_TranscriptionFailure(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(nil)
	f.stt.On("Transcribe", mock.Anything, mock.AnythingOfType("string")).
		Return("", errors.New("request timeout"))

	err := f.p.Process(context.Background(), model.ProcessingRequest{Voice: voice, DestinationChat: 200})
	require.Error(t, err)

	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageTranscribe, stage)

	assert.False(t, f.ledger.Seen("100:42"))
	f.tempFileAbsent(t, voice)
	f.llm.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
	f.msgr.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything)
}

func TestPipeline_EmptyTranscriptFails(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(nil)
	f.stt.On("Transcribe", mock.Anything, mock.AnythingOfType("string")).Return("", nil)

	err := f.p.Process(context.Background(), model.ProcessingRequest{Voice: voice, DestinationChat: 200})
	require.Error(t, err)

	stage, _ := FailedStage(err)
	assert.Equal(t, StageTranscribe, stage)
	f.llm.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
}

func TestPipeline_SummarizationFailure(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(nil)
	f.stt.On("Transcribe", mock.Anything, mock.AnythingOfType("string")).Return("hello world", nil)
	f.llm.On("Summarize", mock.Anything, "hello world").Return("", errors.New("model overloaded"))

	err := f.p.Process(context.Background(), model.ProcessingRequest{Voice: voice, DestinationChat: 200})
	require.Error(t, err)

	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageSummarize, stage)

	assert.False(t, f.ledger.Seen("100:42"))
	f.tempFileAbsent(t, voice)
	f.msgr.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything)
}

func TestPipeline_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(nil)
	f.stt.On("Transcribe", mock.Anything, mock.AnythingOfType("string")).Return("hello world", nil)
	f.llm.On("Summarize", mock.Anything, "hello world").Return("- hello\n- world", nil)
	f.msgr.On("SendText", int64(200), mock.AnythingOfType("string")).Return(errors.New("chat not found"))

	err := f.p.Process(context.Background(), model.ProcessingRequest{Voice: voice, DestinationChat: 200})
	require.Error(t, err)

	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageDeliver, stage)

	assert.False(t, f.ledger.Seen("100:42"))
	f.tempFileAbsent(t, voice)
}

func TestPipeline_ForwardFailureIsDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	voice := testVoice()
	req := model.ProcessingRequest{Voice: voice, DestinationChat: 200, ForwardOriginal: true}

	f.msgr.On("Download", voice, mock.AnythingOfType("string")).Return(nil)
	f.stt.On("Transcribe", mock.Anything, mock.AnythingOfType("string")).Return("hello world", nil)
	f.llm.On("Summarize", mock.Anything, "hello world").Return("- hello\n- world", nil)
	f.msgr.On("SendText", int64(200), mock.AnythingOfType("string")).Return(nil)
	f.msgr.On("ForwardVoice", int64(200), voice).Return(errors.New("message to forward not found"))

	err := f.p.Process(context.Background(), req)
	require.Error(t, err)

	stage, _ := FailedStage(err)
	assert.Equal(t, StageDeliver, stage)
	assert.False(t, f.ledger.Seen("100:42"))
	f.tempFileAbsent(t, voice)
}

func TestStageError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &StageError{Stage: StageTranscribe, MessageKey: "1:2", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transcribe")
	assert.Contains(t, err.Error(), "1:2")
}
