// Package commentary generates host flavor text through any
// OpenAI-compatible chat endpoint (Ollama, OpenAI, ...). It is strictly
// optional: callers get a boolean availability signal and plain errors, and
// are expected to fall back to static copy.
package commentary

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// maxReplyRunes keeps generated text within mesh message limits.
const maxReplyRunes = 220

var errUnavailable = errors.New("commentary endpoint unavailable")

type Host struct {
	client  *openai.Client
	model   string
	timeout time.Duration

	mu        sync.Mutex
	available *bool
}

func New(baseURL, apiKey, model string) *Host {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return &Host{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: 10 * time.Second,
	}
}

// Available probes the endpoint once (model listing) and caches the answer
// for the process lifetime.
func (h *Host) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.available != nil {
		return *h.available
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	_, err := h.client.ListModels(ctx)
	ok := err == nil
	if !ok {
		log.Printf("commentary endpoint not available: %v", err)
	}
	h.available = &ok
	return ok
}

// Generate asks for a short completion. The style hint becomes the system
// prompt; replies are truncated to the mesh-safe length.
func (h *Host) Generate(ctx context.Context, prompt, styleHint string) (string, error) {
	if !h.Available() {
		return "", errUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{}
	if styleHint != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: styleHint,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    h.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("commentary endpoint returned no choices")
	}
	return truncate(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxReplyRunes {
		return text
	}
	return string(runes[:maxReplyRunes-3]) + "..."
}
