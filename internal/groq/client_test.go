package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice_1_42.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS fake audio"), 0o644))
	return path
}

func TestClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3-turbo", r.FormValue("model"))
		assert.Equal(t, "text", r.FormValue("response_format"))

		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Write([]byte("hello world\n"))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "", "", time.Second)

	text, err := client.Transcribe(context.Background(), writeTempAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestClient_TranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "invalid api key", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	client := NewClient("bad-key", server.URL, "", "", time.Second)

	_, err := client.Transcribe(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestClient_TranscribeMissingFile(t *testing.T) {
	client := NewClient("test-key", "http://localhost:1", "", "", time.Second)

	_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.ogg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open audio file")
}

func TestClient_Summarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "moonshotai/kimi-k2-instruct", req.Model)
		assert.Zero(t, req.Temperature)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "hello world")
		assert.Contains(t, req.Messages[0].Content, "bullet-point list")

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []ChatChoice{
				{Message: ChatMessage{Role: "assistant", Content: "- hello\n- world\n"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "", "", time.Second)

	summary, err := client.Summarize(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, "- hello\n- world", summary)
}

func TestClient_SummarizeNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatCompletionResponse{})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "", "", time.Second)

	_, err := client.Summarize(context.Background(), "some text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestClient_SummarizeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "", "", 20*time.Millisecond)

	_, err := client.Summarize(context.Background(), "some text")
	require.Error(t, err)
}
