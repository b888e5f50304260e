// Package main runs a minimal HTTP SSE bridge that streams chat replies.
// Useful for exercising the streaming backend without a terminal attached:
//
//	go run ./cmd/sse
//	curl -N 'http://localhost:8080/stream?q=hello'
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/asynkron/ember/internal/agent"
)

// sseWrite sends a single SSE event with the given name and data, followed by a flush.
func sseWrite(w http.ResponseWriter, flusher http.Flusher, event string, data string) error {
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	// data lines must not contain raw newlines; split and prefix each line.
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil { // end of event
		return err
	}
	flusher.Flush()
	return nil
}

func streamHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering (nginx, etc.)
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		http.Error(w, "OPENAI_API_KEY not set", http.StatusInternalServerError)
		return
	}

	prompt := strings.TrimSpace(r.URL.Query().Get("q"))
	if prompt == "" {
		prompt = "Say hello with a few words."
	}

	// A fresh backend per request keeps conversations isolated across clients.
	backend, err := agent.NewOpenAIAgent(agent.Options{
		APIKey:          apiKey,
		Model:           os.Getenv("OPENAI_MODEL"),
		BaseURL:         os.Getenv("OPENAI_BASE_URL"),
		ReasoningEffort: os.Getenv("OPENAI_REASONING_EFFORT"),
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to create agent: %v", err), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	chunks, err := backend.SendMessageStream(ctx, prompt)
	if err != nil {
		http.Error(w, fmt.Sprintf("request failed: %v", err), http.StatusBadGateway)
		return
	}

	// Initial comment to open the stream for some clients.
	if _, err := fmt.Fprint(w, ": connected\n\n"); err == nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				_ = sseWrite(w, flusher, "end", "stream closed")
				return
			}
			switch {
			case chunk.Err != nil:
				_ = sseWrite(w, flusher, "error", chunk.Err.Error())
				return
			case chunk.Delta != "":
				_ = sseWrite(w, flusher, "assistant_delta", chunk.Delta)
			case chunk.Reasoning != "":
				_ = sseWrite(w, flusher, "reasoning_delta", chunk.Reasoning)
			case chunk.ToolCall != nil:
				_ = sseWrite(w, flusher, "tool_call", fmt.Sprintf("%s %s", chunk.ToolCall.Name, chunk.ToolCall.Arguments))
			case chunk.Usage != nil:
				_ = sseWrite(w, flusher, "usage", fmt.Sprintf("total_tokens=%d", chunk.Usage.TotalTokens))
			case chunk.Done:
				_ = sseWrite(w, flusher, "done", "complete")
			}
		}
	}
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", streamHandler)

	addr := ":8080"
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	log.Printf("SSE bridge listening on %s (GET /stream?q=your+prompt)", addr)
	log.Fatal(srv.ListenAndServe())
}
