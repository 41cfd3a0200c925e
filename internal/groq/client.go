// Package groq wraps the Groq OpenAI-compatible API: Whisper transcription
// and chat-completion summarization. Calls carry a bounded timeout and are
// never retried; a failure is terminal for the current processing attempt.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"voicebrief/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://api.groq.com/openai/v1"
	DefaultSTTModel  = "whisper-large-v3-turbo"
	DefaultChatModel = "moonshotai/kimi-k2-instruct"
	DefaultTimeout   = 120 * time.Second
)

const summaryPrompt = `Summarize the following text into a clear, concise bullet-point list. The summary should be in the same language as the original text. Focus on the key points and main ideas:

%s

Provide the summary as a bullet-point list.`

type Client struct {
	apiKey    string
	baseURL   string
	sttModel  string
	chatModel string
	client    *http.Client
}

// NewClient creates a Groq API client. Empty baseURL, model names or a zero
// timeout fall back to the defaults.
func NewClient(apiKey, baseURL, sttModel, chatModel string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if sttModel == "" {
		sttModel = DefaultSTTModel
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		sttModel:  sttModel,
		chatModel: chatModel,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe sends the audio file at audioPath to the transcriptions
// endpoint and returns the plain transcript text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}

	if err := writer.WriteField("model", c.sttModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", fmt.Errorf("failed to write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	logger.Debug("Starting transcription",
		zap.String("audio_path", audioPath),
		zap.String("model", c.sttModel))

	respBody, err := c.do(req)
	if err != nil {
		return "", err
	}

	transcript := strings.TrimSpace(string(respBody))

	logger.Info("Transcription completed", zap.Int("text_length", len(transcript)))

	return transcript, nil
}

// Summarize asks the chat model for a bullet-point summary of the
// transcript, in the same language as the input, at temperature 0.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []ChatMessage{
			{Role: "user", Content: fmt.Sprintf(summaryPrompt, text)},
		},
		Temperature: 0,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("Starting summarization",
		zap.String("model", c.chatModel),
		zap.Int("text_length", len(text)))

	respBody, err := c.do(req)
	if err != nil {
		return "", err
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	summary := strings.TrimSpace(chatResp.Choices[0].Message.Content)

	logger.Info("Summarization completed", zap.Int("summary_length", len(summary)))

	return summary, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("request failed: status=%d, message=%s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("request failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
