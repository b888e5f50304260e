package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageReceivedCarriesParticipantAndContent(t *testing.T) {
	e := MessageReceived("user", "hello there")
	require.Equal(t, KindMessageReceived, e.Kind)
	require.Equal(t, "user", e.Participant)
	require.Equal(t, "hello there", e.Content)
	require.NotEmpty(t, e.ID)
	require.False(t, e.At.IsZero())
}

func TestEventIDsAreUnique(t *testing.T) {
	a := MessageReceived("user", "x")
	b := MessageReceived("user", "x")
	require.NotEqual(t, a.ID, b.ID)
}

func TestRingRetainsInOrder(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Publish(MessageReceived("user", fmt.Sprintf("msg %d", i))))
	}
	events := r.Events()
	require.Len(t, events, 3)
	require.Equal(t, "msg 0", events[0].Content)
	require.Equal(t, "msg 2", events[2].Content)
}

func TestRingEvictsOldestAtCapacity(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Publish(MessageReceived("user", fmt.Sprintf("msg %d", i))))
	}
	events := r.Events()
	require.Len(t, events, 3)
	require.Equal(t, "msg 2", events[0].Content)
	require.Equal(t, "msg 4", events[2].Content)
}

func TestJSONLWriterEmitsOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)
	require.NoError(t, w.Publish(MessageReceived("user", "first")))
	require.NoError(t, w.Publish(HistoryCleared("user")))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	require.Equal(t, KindMessageReceived, decoded.Kind)
	require.Equal(t, "first", decoded.Content)
}

type refusingSink struct{ calls int }

func (r *refusingSink) Publish(Event) error {
	r.calls++
	return errors.New("refused")
}

func TestMultiDeliversToAllAndReportsFirstError(t *testing.T) {
	ring := NewRing(4)
	bad := &refusingSink{}
	m := Multi{bad, ring}

	err := m.Publish(MessageReceived("user", "hi"))
	require.Error(t, err)
	require.Equal(t, 1, bad.calls)
	require.Equal(t, 1, ring.Len(), "later sinks still receive the event")
}
