// Package audit records session events: every message a participant submits
// is published here before any downstream processing, giving sessions a
// durable, replayable trail.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind labels a session event.
type Kind string

const (
	KindMessageReceived Kind = "message_received"
	KindHistoryCleared  Kind = "history_cleared"
	KindModelSwitched   Kind = "model_switched"
)

// Event is one session occurrence.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Participant string    `json:"participant,omitempty"`
	Content     string    `json:"content,omitempty"`
	At          time.Time `json:"at"`
}

// MessageReceived builds the event published when a participant submits a
// message.
func MessageReceived(participant, content string) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        KindMessageReceived,
		Participant: participant,
		Content:     content,
		At:          time.Now().UTC(),
	}
}

// HistoryCleared builds the event published when the conversation is reset.
func HistoryCleared(participant string) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        KindHistoryCleared,
		Participant: participant,
		At:          time.Now().UTC(),
	}
}

// ModelSwitched builds the event published when the active model changes.
func ModelSwitched(participant, model string) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        KindModelSwitched,
		Participant: participant,
		Content:     model,
		At:          time.Now().UTC(),
	}
}

// Sink receives session events. Publish must be safe to call from the event
// loop; failures are reported to the caller, which decides whether they block
// the submission.
type Sink interface {
	Publish(Event) error
}

// Ring keeps the most recent events in memory, evicting the oldest once the
// capacity is reached. Safe for concurrent use.
type Ring struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

// NewRing builds a ring holding up to capacity events. A non-positive
// capacity gets a sensible default.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 256
	}
	return &Ring{cap: capacity}
}

// Publish appends the event, evicting the oldest entry when full.
func (r *Ring) Publish(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == r.cap {
		copy(r.events, r.events[1:])
		r.events = r.events[:r.cap-1]
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (r *Ring) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len reports how many events are retained.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// JSONLWriter persists each event as one JSON line on an io.Writer.
type JSONLWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLWriter wraps w for line-delimited JSON event persistence.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{enc: json.NewEncoder(w)}
}

// Publish encodes the event as a JSON line.
func (j *JSONLWriter) Publish(e Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(e); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Multi fans Publish out to several sinks, returning the first error but
// still attempting every sink.
type Multi []Sink

// Publish delivers to every sink.
func (m Multi) Publish(e Event) error {
	var first error
	for _, s := range m {
		if err := s.Publish(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
