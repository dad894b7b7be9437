// Package event defines the typed events emitted by the transfer core and
// the fan-out bus that carries them to frontends. Events arrive through a
// single callback registered with the core at open time; the callback may
// be invoked from any of the core's worker threads.
package event

import (
	"sync"
	"time"
)

// Kind identifies the type of core event. The codes match the core's
// callback protocol; values outside the known set are accepted and
// ignored by consumers so newer cores remain compatible.
type Kind int

const (
	KindLog              Kind = 0
	KindPeerFound        Kind = 1
	KindStarted          Kind = 2
	KindProgress         Kind = 3
	KindCompleted        Kind = 4
	KindError            Kind = 5
	KindIncomingRequest  Kind = 6
	KindRejected         Kind = 7
	KindPeerLost         Kind = 8
	KindDiscoveryStarted Kind = 9
	KindServerStarted    Kind = 10
)

// String returns a short name for the kind, for logging.
func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindPeerFound:
		return "peer_found"
	case KindStarted:
		return "started"
	case KindProgress:
		return "progress"
	case KindCompleted:
		return "completed"
	case KindError:
		return "error"
	case KindIncomingRequest:
		return "incoming_request"
	case KindRejected:
		return "rejected"
	case KindPeerLost:
		return "peer_lost"
	case KindDiscoveryStarted:
		return "discovery_started"
	case KindServerStarted:
		return "server_started"
	default:
		return "unknown"
	}
}

// Event is an immutable record of core activity, delivered once per
// occurrence. TaskID is empty for events not tied to a transfer. Data1 and
// Data2 carry core-defined string payloads; Value1 and Value2 carry numeric
// fields whose meaning depends on the kind (for Progress they are bytes
// transferred and total bytes).
type Event struct {
	Kind      Kind      `json:"kind"`
	TaskID    string    `json:"task_id,omitempty"`
	Data1     string    `json:"data1,omitempty"`
	Data2     string    `json:"data2,omitempty"`
	Value1    uint64    `json:"value1,omitempty"`
	Value2    uint64    `json:"value2,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Callback is the inbound delivery signature the core invokes for every
// event. It must be safe to call from any thread and must never block the
// core for longer than handing the event off takes.
type Callback func(kind int, taskID, data1, data2 string, value1, value2 uint64)

// Subscription receives events from a Bus.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// Bus fans out events to all active subscribers. It is safe for
// concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewBus creates a Bus ready for use.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe creates a new subscription with the given channel buffer size.
// The caller should read from sub.C and eventually call Unsubscribe.
func (b *Bus) Subscribe(bufSize int) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish sends an event to all subscribers. If a subscriber's buffer is
// full the event is dropped for that subscriber to prevent slow consumers
// from stalling the core's dispatching thread.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
		}
	}
}
