package event

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/queue"
)

// Publisher is the outbound event port. Publish is fire-and-forget: a
// delivery failure is logged, never surfaced to the emitting operation.
type Publisher interface {
	Publish(kind string, payload interface{})
}

// QueuePublisher hands events to the queue for the notification side.
type QueuePublisher struct {
	client *queue.Client
}

// NewQueuePublisher creates the queue-backed publisher.
func NewQueuePublisher(client *queue.Client) *QueuePublisher {
	return &QueuePublisher{client: client}
}

// Publish serializes and enqueues one event.
func (p *QueuePublisher) Publish(kind string, payload interface{}) {
	if p == nil || p.client == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warnw("event_publish_marshal_failed", "kind", kind, "error", err)
		return
	}
	err = p.client.EnqueueEventDispatch(queue.EventDispatchPayload{
		Kind:       kind,
		OccurredAt: time.Now(),
		Data:       data,
	})
	if err != nil {
		logger.Warnw("event_publish_enqueue_failed", "kind", kind, "error", err)
	}
}

// Recorded is one captured event.
type Recorded struct {
	Kind    string
	Payload interface{}
}

// MemoryPublisher captures events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Recorded
}

// NewMemoryPublisher creates an in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event.
func (p *MemoryPublisher) Publish(kind string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Recorded{Kind: kind, Payload: payload})
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Recorded {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Recorded, len(p.events))
	copy(out, p.events)
	return out
}

// Kinds returns the published kinds in order.
func (p *MemoryPublisher) Kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
