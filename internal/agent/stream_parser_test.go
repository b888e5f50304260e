package agent

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func parseSSE(t *testing.T, body string) (string, []ToolCall, []StreamChunk) {
	t.Helper()
	var emitted []StreamChunk
	p := newStreamParser(bufio.NewReader(strings.NewReader(body)), func(c StreamChunk) {
		emitted = append(emitted, c)
	})
	text, calls, err := p.parse()
	require.NoError(t, err)
	return text, calls, emitted
}

func TestParseEmitsTextDeltasInOrder(t *testing.T) {
	body := "" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		": keepalive\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n"

	text, calls, emitted := parseSSE(t, body)
	require.Equal(t, "Hello", text)
	require.Empty(t, calls)

	var deltas []string
	for _, c := range emitted {
		if c.Delta != "" {
			deltas = append(deltas, c.Delta)
		}
	}
	require.Equal(t, []string{"Hel", "lo"}, deltas)
}

func TestParseRoutesReasoningSeparately(t *testing.T) {
	body := "" +
		"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"pondering\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"answer\"}}]}\n\n" +
		"data: [DONE]\n\n"

	text, _, emitted := parseSSE(t, body)
	require.Equal(t, "answer", text, "reasoning must not leak into the reply text")

	var reasoning string
	for _, c := range emitted {
		reasoning += c.Reasoning
	}
	require.Equal(t, "pondering", reasoning)
}

func TestParseAssemblesToolCallFragments(t *testing.T) {
	body := "" +
		"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_1\",\"function\":{\"name\":\"search\",\"arguments\":\"{\\\"q\\\":\"}}]}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"\\\"go\\\"}\"}}]}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"tool_calls\"}]}\n\n" +
		"data: [DONE]\n\n"

	_, calls, emitted := parseSSE(t, body)
	require.Len(t, calls, 1)
	require.Equal(t, "call_1", calls[0].ID)
	require.Equal(t, "search", calls[0].Name)
	require.JSONEq(t, `{"q":"go"}`, calls[0].Arguments)

	var announced int
	for _, c := range emitted {
		if c.ToolCall != nil {
			announced++
			require.Equal(t, "search", c.ToolCall.Name)
		}
	}
	require.Equal(t, 1, announced)
}

func TestParseOrdersMultipleToolCallsByIndex(t *testing.T) {
	body := "" +
		"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":1,\"id\":\"b\",\"function\":{\"name\":\"second\",\"arguments\":\"{}\"}}]}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"a\",\"function\":{\"name\":\"first\",\"arguments\":\"{}\"}}]}}]}\n\n" +
		"data: [DONE]\n\n"

	_, calls, _ := parseSSE(t, body)
	require.Len(t, calls, 2)
	require.Equal(t, "first", calls[0].Name)
	require.Equal(t, "second", calls[1].Name)
}

func TestParseEmitsUsage(t *testing.T) {
	body := "" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n" +
		"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":10,\"completion_tokens\":5,\"total_tokens\":15}}\n\n" +
		"data: [DONE]\n\n"

	_, _, emitted := parseSSE(t, body)
	var usage *Usage
	for _, c := range emitted {
		if c.Usage != nil {
			usage = c.Usage
		}
	}
	require.NotNil(t, usage)
	require.Equal(t, 15, usage.TotalTokens)
}

func TestParseSkipsMalformedEvents(t *testing.T) {
	body := "" +
		"data: {not json at all\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"survived\"}}]}\n\n" +
		"data: [DONE]\n\n"

	text, _, _ := parseSSE(t, body)
	require.Equal(t, "survived", text)
}

func TestParseStopsAtEOFWithoutDone(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"
	text, _, _ := parseSSE(t, body)
	require.Equal(t, "partial", text)
}
