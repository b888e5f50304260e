package agent

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// streamParser reads an SSE chat-completions stream and forwards each delta
// through emit as it arrives. Tool-call fragments are accumulated by index
// and returned assembled once the stream ends.
type streamParser struct {
	reader *bufio.Reader
	emit   func(StreamChunk)

	text  strings.Builder
	calls map[int]*ToolCall
	order []int
}

func newStreamParser(reader *bufio.Reader, emit func(StreamChunk)) *streamParser {
	return &streamParser{reader: reader, emit: emit, calls: map[int]*ToolCall{}}
}

// chatCompletionChunk mirrors the streaming chat-completions payload,
// intentionally minimal so no heavy client dependency is needed.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content          string          `json:"content"`
			ReasoningContent string          `json:"reasoning_content"`
			ToolCalls        []toolCallDelta `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type toolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// parse reads the SSE stream until [DONE] or EOF, returning the full
// assistant text and the assembled tool calls.
func (p *streamParser) parse() (string, []ToolCall, error) {
	for {
		line, rerr := p.reader.ReadString('\n')
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return p.text.String(), p.assembledCalls(), fmt.Errorf("stream read: %w", rerr)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue // keepalive/comment
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		chunkData := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if chunkData == "[DONE]" {
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(chunkData), &chunk); err != nil {
			// Malformed events are skipped; the stream usually recovers.
			continue
		}
		p.processChunk(chunk)
	}

	return p.text.String(), p.assembledCalls(), nil
}

func (p *streamParser) processChunk(chunk chatCompletionChunk) {
	if chunk.Usage != nil {
		p.emit(StreamChunk{Usage: &Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}})
	}
	for _, choice := range chunk.Choices {
		if s := choice.Delta.Content; s != "" {
			p.text.WriteString(s)
			p.emit(StreamChunk{Delta: s})
		}
		if s := choice.Delta.ReasoningContent; s != "" {
			p.emit(StreamChunk{Reasoning: s})
		}
		for _, tc := range choice.Delta.ToolCalls {
			p.accumulateToolCall(tc)
		}
		if choice.FinishReason == "tool_calls" {
			for _, call := range p.assembledCalls() {
				call := call
				p.emit(StreamChunk{ToolCall: &call})
			}
		}
	}
}

// accumulateToolCall merges one fragment into the call at its index. The id
// and name arrive on the first fragment; arguments accrete across the rest.
func (p *streamParser) accumulateToolCall(tc toolCallDelta) {
	call, ok := p.calls[tc.Index]
	if !ok {
		call = &ToolCall{}
		p.calls[tc.Index] = call
		p.order = append(p.order, tc.Index)
	}
	if tc.ID != "" {
		call.ID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Name = tc.Function.Name
	}
	call.Arguments += tc.Function.Arguments
}

func (p *streamParser) assembledCalls() []ToolCall {
	if len(p.calls) == 0 {
		return nil
	}
	indexes := append([]int(nil), p.order...)
	sort.Ints(indexes)
	out := make([]ToolCall, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, *p.calls[i])
	}
	return out
}
