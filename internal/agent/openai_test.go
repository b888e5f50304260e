package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, reply string, requests *[][]chatMessage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if requests != nil {
			*requests = append(*requests, req.Messages)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, r := range []rune(reply) {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", string(r))
		}
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":4,\"completion_tokens\":2,\"total_tokens\":6}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func collect(t *testing.T, chunks <-chan StreamChunk) (string, *Usage, bool) {
	t.Helper()
	var text string
	var usage *Usage
	var done bool
	for c := range chunks {
		require.NoError(t, c.Err)
		text += c.Delta
		if c.Usage != nil {
			usage = c.Usage
		}
		if c.Done {
			done = true
		}
	}
	return text, usage, done
}

func TestSendMessageStreamDeliversReply(t *testing.T) {
	var requests [][]chatMessage
	srv := httptest.NewServer(sseHandler(t, "ok", &requests))
	defer srv.Close()

	a, err := NewOpenAIAgent(Options{APIKey: "test-key", BaseURL: srv.URL, ContextWindow: 1000})
	require.NoError(t, err)

	chunks, err := a.SendMessageStream(context.Background(), "hello")
	require.NoError(t, err)

	text, usage, done := collect(t, chunks)
	require.Equal(t, "ok", text)
	require.True(t, done)
	require.NotNil(t, usage)
	require.Equal(t, 6, usage.TotalTokens)
	require.Equal(t, 1000, usage.ContextWindow)

	require.Len(t, requests, 1)
	require.Equal(t, "user", requests[0][0].Role)
	require.Equal(t, "hello", requests[0][0].Content)
}

func TestHistoryAccumulatesAcrossTurns(t *testing.T) {
	var requests [][]chatMessage
	srv := httptest.NewServer(sseHandler(t, "reply", &requests))
	defer srv.Close()

	a, err := NewOpenAIAgent(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	for _, msg := range []string{"first", "second"} {
		chunks, err := a.SendMessageStream(context.Background(), msg)
		require.NoError(t, err)
		collect(t, chunks)
	}

	require.Len(t, requests, 2)
	// Second request carries user, assistant, user.
	require.Len(t, requests[1], 3)
	require.Equal(t, "assistant", requests[1][1].Role)
	require.Equal(t, "reply", requests[1][1].Content)
}

func TestClearHistoryForgetsConversation(t *testing.T) {
	var requests [][]chatMessage
	srv := httptest.NewServer(sseHandler(t, "r", &requests))
	defer srv.Close()

	a, err := NewOpenAIAgent(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	chunks, err := a.SendMessageStream(context.Background(), "one")
	require.NoError(t, err)
	collect(t, chunks)

	require.NoError(t, a.ClearHistory())
	require.Equal(t, 0, a.HistoryLen())

	chunks, err = a.SendMessageStream(context.Background(), "two")
	require.NoError(t, err)
	collect(t, chunks)

	require.Len(t, requests[1], 1, "cleared history must not resend old messages")
}

func TestHistoryBoundDropsOldest(t *testing.T) {
	var requests [][]chatMessage
	srv := httptest.NewServer(sseHandler(t, "r", &requests))
	defer srv.Close()

	a, err := NewOpenAIAgent(Options{APIKey: "test-key", BaseURL: srv.URL, MaxHistoryMessages: 3})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		chunks, err := a.SendMessageStream(context.Background(), fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		collect(t, chunks)
	}
	require.LessOrEqual(t, a.HistoryLen(), 3)
	last := requests[len(requests)-1]
	require.LessOrEqual(t, len(last), 3)
}

// bodyCloseTransport wraps response bodies so tests can observe when the
// consumer releases them.
type bodyCloseTransport struct {
	base   http.RoundTripper
	closed chan struct{}
}

func (t *bodyCloseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = &notifyCloser{ReadCloser: resp.Body, closed: t.closed}
	return resp, nil
}

type notifyCloser struct {
	io.ReadCloser
	once   sync.Once
	closed chan struct{}
}

func (n *notifyCloser) Close() error {
	err := n.ReadCloser.Close()
	n.once.Do(func() { close(n.closed) })
	return err
}

func TestCancelledStreamReleasesProducer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 60; i++ {
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	closed := make(chan struct{})
	client := &http.Client{Transport: &bodyCloseTransport{base: http.DefaultTransport, closed: closed}}

	a, err := NewOpenAIAgent(Options{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: client})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chunks, err := a.SendMessageStream(ctx, "hello")
	require.NoError(t, err)

	// Read one chunk, then drop the handle with the buffer still full.
	<-chunks
	cancel()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("producer still holds the response body after cancellation")
	}
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a, err := NewOpenAIAgent(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = a.SendMessageStream(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestFetchAvailableModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[{"id":"gpt-4.1"},{"id":"gpt-4.1-mini"}]}`)
	}))
	defer srv.Close()

	a, err := NewOpenAIAgent(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	models, err := a.FetchAvailableModels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"gpt-4.1", "gpt-4.1-mini"}, models)
}

func TestSwitchModelAffectsNextRequest(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a, err := NewOpenAIAgent(Options{APIKey: "test-key", BaseURL: srv.URL, Model: "before"})
	require.NoError(t, err)
	require.NoError(t, a.SwitchModel(context.Background(), "after"))
	require.Equal(t, "after", a.Model())

	chunks, err := a.SendMessageStream(context.Background(), "x")
	require.NoError(t, err)
	for range chunks {
	}
	require.Equal(t, []string{"after"}, models)
}

func TestSetThinkingBudgetValidatesLevel(t *testing.T) {
	a, err := NewOpenAIAgent(Options{APIKey: "test-key"})
	require.NoError(t, err)
	require.NoError(t, a.SetThinkingBudget("high"))
	require.NoError(t, a.SetThinkingBudget("off"))
	require.Error(t, a.SetThinkingBudget("maximum overdrive"))
}

func TestSetModeRejectsUnknown(t *testing.T) {
	a, err := NewOpenAIAgent(Options{APIKey: "test-key"})
	require.NoError(t, err)
	require.NoError(t, a.SetMode(ModePlan))
	require.Error(t, a.SetMode(Mode("bogus")))
}

func TestOptionsRequireAPIKey(t *testing.T) {
	_, err := NewOpenAIAgent(Options{})
	require.Error(t, err)
}

func TestNextModeCycles(t *testing.T) {
	require.Equal(t, ModePlan, NextMode(ModeNormal))
	require.Equal(t, ModeAuto, NextMode(ModePlan))
	require.Equal(t, ModeNormal, NextMode(ModeAuto))
}
