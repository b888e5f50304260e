package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/asynkron/ember/internal/logging"
)

// OpenAIAgent talks to an OpenAI-compatible chat-completions endpoint and
// keeps the conversation history between turns.
type OpenAIAgent struct {
	mu      sync.Mutex
	opts    Options
	history []chatMessage
	mode    Mode
}

// chatMessage mirrors the wire shape of one conversation entry.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model           string         `json:"model"`
	Messages        []chatMessage  `json:"messages"`
	Stream          bool           `json:"stream"`
	StreamOptions   *streamOptions `json:"stream_options,omitempty"`
	ReasoningEffort string         `json:"reasoning_effort,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// NewOpenAIAgent validates the options and builds the backend.
func NewOpenAIAgent(opts Options) (*OpenAIAgent, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &OpenAIAgent{opts: opts, mode: ModeNormal}, nil
}

// SendMessageStream appends text to the history, opens a streaming request
// and returns the chunk channel. The assistant's reply joins the history only
// once the stream completes, so a cancelled or failed turn leaves the
// conversation at the last full exchange.
func (a *OpenAIAgent) SendMessageStream(ctx context.Context, text string) (<-chan StreamChunk, error) {
	a.mu.Lock()
	a.history = append(a.history, chatMessage{Role: "user", Content: text})
	a.trimHistoryLocked()
	payload := chatCompletionRequest{
		Model:           a.opts.Model,
		Messages:        append([]chatMessage(nil), a.history...),
		Stream:          true,
		StreamOptions:   &streamOptions{IncludeUsage: true},
		ReasoningEffort: a.opts.ReasoningEffort,
	}
	a.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("agent: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := a.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: do request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		resp.Body.Close()
		return nil, fmt.Errorf("agent: status %s: %s", resp.Status, string(msg))
	}

	chunks := make(chan StreamChunk, 16)
	go a.consumeStream(ctx, resp.Body, chunks)
	return chunks, nil
}

func (a *OpenAIAgent) consumeStream(ctx context.Context, body io.ReadCloser, chunks chan<- StreamChunk) {
	defer close(chunks)
	defer body.Close()

	started := time.Now()
	parser := newStreamParser(bufio.NewReader(body), func(c StreamChunk) {
		if c.Usage != nil && c.Usage.ContextWindow == 0 {
			c.Usage.ContextWindow = a.contextWindow()
		}
		select {
		case chunks <- c:
		case <-ctx.Done():
		}
	})

	fullText, _, err := parser.parse()
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation surfaces as a read error on the body; report the
			// context's verdict instead.
			err = ctx.Err()
		}
		a.opts.Logger.Error(ctx, "stream failed", err,
			logging.Field("elapsed", time.Since(started).Round(time.Millisecond)))
		select {
		case chunks <- StreamChunk{Err: err}:
		case <-ctx.Done():
			// Consumer dropped the handle; nothing drains the buffer.
		}
		return
	}

	if fullText != "" {
		a.mu.Lock()
		a.history = append(a.history, chatMessage{Role: "assistant", Content: fullText})
		a.trimHistoryLocked()
		a.mu.Unlock()
	}
	a.opts.Logger.Debug(ctx, "stream completed",
		logging.Field("chars", len(fullText)),
		logging.Field("elapsed", time.Since(started).Round(time.Millisecond)))
	select {
	case chunks <- StreamChunk{Done: true}:
	case <-ctx.Done():
	}
}

func (a *OpenAIAgent) contextWindow() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opts.ContextWindow
}

// trimHistoryLocked drops the oldest messages past the configured bound.
func (a *OpenAIAgent) trimHistoryLocked() {
	max := a.opts.MaxHistoryMessages
	if max > 0 && len(a.history) > max {
		a.history = append(a.history[:0:0], a.history[len(a.history)-max:]...)
	}
}

// ClearHistory forgets the conversation.
func (a *OpenAIAgent) ClearHistory() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
	return nil
}

// HistoryLen reports how many messages the conversation holds.
func (a *OpenAIAgent) HistoryLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}

// SwitchModel changes the model used for subsequent turns.
func (a *OpenAIAgent) SwitchModel(_ context.Context, model string) error {
	if model == "" {
		return errors.New("agent: model id is empty")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opts.Model = model
	return nil
}

// Model reports the active model id.
func (a *OpenAIAgent) Model() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opts.Model
}

// FetchAvailableModels lists the model ids the endpoint serves.
func (a *OpenAIAgent) FetchAvailableModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.opts.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("agent: build models request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.opts.APIKey)

	resp, err := a.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, fmt.Errorf("agent: models status %s: %s", resp.Status, string(msg))
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("agent: decode models: %w", err)
	}
	ids := make([]string, 0, len(listing.Data))
	for _, m := range listing.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// SetThinkingBudget maps the level onto the reasoning effort knob.
func (a *OpenAIAgent) SetThinkingBudget(level string) error {
	switch level {
	case "", "off":
		level = ""
	case "low", "medium", "high":
	default:
		return fmt.Errorf("agent: unknown thinking level %q", level)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opts.ReasoningEffort = level
	return nil
}

// SetMode records the conversational mode. The chat-completions API has no
// mode concept, so this only steers the local prompt framing.
func (a *OpenAIAgent) SetMode(mode Mode) error {
	switch mode {
	case ModeNormal, ModePlan, ModeAuto:
	default:
		return fmt.Errorf("agent: unknown mode %q", mode)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = mode
	return nil
}
