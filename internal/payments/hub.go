package payments

import (
	"context"
	"fmt"
	"sync"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Status is the raw status string stamped on notifications published for
// the outcome.
func (o Outcome) Status() string {
	switch o {
	case OutcomeCompleted:
		return "COMPLETED"
	case OutcomeFailed:
		return "FAILED"
	case OutcomeCancelled:
		return "CANCELLED"
	default:
		return ""
	}
}

func (o Outcome) Valid() bool {
	return o.Status() != ""
}

type Subscriber func(ctx context.Context, n Notification) error

// Hub delivers payment outcomes to subscribers in registration order.
// Hosts subscribe their own observers before the shop attaches its
// materializer, so host observers always run first.
type Hub struct {
	mu   sync.RWMutex
	subs map[Outcome][]Subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Outcome][]Subscriber)}
}

func (h *Hub) Subscribe(outcome Outcome, fn Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[outcome] = append(h.subs[outcome], fn)
}

func (h *Hub) OnCompleted(fn Subscriber) { h.Subscribe(OutcomeCompleted, fn) }
func (h *Hub) OnFailed(fn Subscriber)    { h.Subscribe(OutcomeFailed, fn) }
func (h *Hub) OnCancelled(fn Subscriber) { h.Subscribe(OutcomeCancelled, fn) }

// Publish stamps the outcome status on n and runs every subscriber for the
// outcome sequentially, each after the previous one returned. The first
// subscriber error stops the chain and is returned.
func (h *Hub) Publish(ctx context.Context, outcome Outcome, n Notification) error {
	if !outcome.Valid() {
		return fmt.Errorf("unknown payment outcome %q", outcome)
	}
	n.Status = outcome.Status()

	h.mu.RLock()
	subs := make([]Subscriber, len(h.subs[outcome]))
	copy(subs, h.subs[outcome])
	h.mu.RUnlock()

	for i, fn := range subs {
		if err := fn(ctx, n); err != nil {
			return fmt.Errorf("payment %s subscriber %d: %w", outcome, i, err)
		}
	}
	return nil
}

// Dispatcher hands a payment outcome to whatever processes it: the Hub
// directly, or a queue that later publishes on a Hub.
type Dispatcher interface {
	Publish(ctx context.Context, outcome Outcome, n Notification) error
}

var _ Dispatcher = (*Hub)(nil)
