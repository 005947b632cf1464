// Package notify delivers contract domain events to parties and
// contract-scoped channels. Delivery is best-effort: callers log failures and
// never roll back the state change that produced the event.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event names emitted by the contract lifecycle
const (
	EventContractCreated   = "contractCreated"
	EventContractUpdate    = "contractUpdate"
	EventContractUpdated   = "contractUpdated"
	EventContractApproved  = "contractApproved"
	EventContractRejected  = "contractRejected"
	EventContractDeleted   = "contractDeleted"
	EventSignatureUpdated  = "contract_updated"
	EventSignatureReminder = "signatureReminder"
	EventVerificationCode  = "verificationCode"
)

// Bridge pushes an event to an audience: a user id or a contract channel
type Bridge interface {
	Emit(ctx context.Context, audienceID, event string, payload interface{}) error
}

// ContractChannel is the audience id of everyone watching a contract
func ContractChannel(contractID string) string {
	return "contract:" + contractID
}

// Event is the envelope published on the wire
type Event struct {
	EventType  string      `json:"event_type"`
	Audience   string      `json:"audience"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// LogBridge only logs events. It is used when no broker is configured.
type LogBridge struct {
	log zerolog.Logger
}

func NewLogBridge(log zerolog.Logger) *LogBridge {
	return &LogBridge{log: log}
}

func (b *LogBridge) Emit(ctx context.Context, audienceID, event string, payload interface{}) error {
	b.log.Debug().
		Str("audience", audienceID).
		Str("event_type", event).
		Msg("notification: event emitted")
	return nil
}

// Recorder keeps emitted events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every following Emit record nothing and return err
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Emit(ctx context.Context, audienceID, event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, Event{
		EventType:  event,
		Audience:   audienceID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	return nil
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Find returns the recorded events with the given name
func (r *Recorder) Find(event string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.EventType == event {
			out = append(out, e)
		}
	}
	return out
}

// subjectToken makes an id safe to use as one NATS subject token
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
