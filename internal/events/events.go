// Package events fans session events out to other processes over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types. The NATS subject is the prefix joined with the type.
const (
	TypeResult = "results"
	TypePhase  = "phase"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "poseplay"

// Publisher sends events to interested listeners.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// Envelope wraps every published payload.
type Envelope struct {
	ID        string          `json:"eventId"`
	Type      string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into an envelope with a fresh event id.
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Subject returns the NATS subject for an event type.
func Subject(prefix, eventType string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + eventType
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

// Recorder keeps published envelopes in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

// Publish records the event.
func (r *Recorder) Publish(_ context.Context, eventType string, payload any) error {
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.events = append(r.events, env)
	r.mu.Unlock()
	return nil
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }

// Events returns the envelopes recorded so far, optionally filtered by type.
func (r *Recorder) Events(eventType string) []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Envelope
	for _, e := range r.events {
		if eventType == "" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
