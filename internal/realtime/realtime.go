// Package realtime is the row-level change feed. Writers publish events on
// per-user topics and subscribers receive them on buffered channels until their
// context ends.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/terapia/internal/metrics"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

type Event struct {
	Topic  string          `json:"topic"`
	Table  string          `json:"table"`
	Action string          `json:"action"`
	Record json.RawMessage `json:"record,omitempty"`
	At     time.Time       `json:"at"`
}

// NewEvent builds an event, encoding record as JSON.
func NewEvent(topic, table, action string, record any) Event {
	ev := Event{Topic: topic, Table: table, Action: action, At: time.Now().UTC()}
	if record != nil {
		if b, err := json.Marshal(record); err == nil {
			ev.Record = b
		}
	}
	return ev
}

// Topic joins a table name and an owner id, e.g. "messages:<user id>".
func Topic(table, ownerID string) string {
	return table + ":" + ownerID
}

// Publisher is what domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Remote forwards events to other instances. Events published through a remote
// come back to every instance, this one included, via Deliver.
type Remote interface {
	Publish(ctx context.Context, ev Event) error
}

type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	remote Remote
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger, buffer int) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 32
	}
	return &Broker{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer, logger: logger}
}

// SetRemote routes publishes through r instead of delivering locally.
func (b *Broker) SetRemote(r Remote) {
	b.mu.Lock()
	b.remote = r
	b.mu.Unlock()
}

type Subscription struct {
	ch     chan Event
	topics []string
}

// C returns the event channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Event { return s.ch }

// Subscribe registers for topics until ctx is done.
func (b *Broker) Subscribe(ctx context.Context, topics ...string) *Subscription {
	sub := &Subscription{ch: make(chan Event, b.buffer), topics: topics}

	b.mu.Lock()
	for _, t := range topics {
		set, ok := b.subs[t]
		if !ok {
			set = make(map[*Subscription]struct{})
			b.subs[t] = set
		}
		set[sub] = struct{}{}
	}
	b.mu.Unlock()

	context.AfterFunc(ctx, func() { b.unsubscribe(sub) })
	return sub
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range sub.topics {
		if set, ok := b.subs[t]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subs, t)
			}
		}
	}
	close(sub.ch)
}

// Publish sends ev to the remote when one is configured, falling back to local
// delivery if the remote fails.
func (b *Broker) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	remote := b.remote
	b.mu.RUnlock()

	if remote != nil {
		err := remote.Publish(ctx, ev)
		if err == nil {
			return
		}
		b.logger.Warn("realtime: remote publish failed, delivering locally", "topic", ev.Topic, "err", err)
	}
	b.Deliver(ev)
}

// Deliver fans ev out to local subscribers without blocking. Full subscribers
// lose the event.
func (b *Broker) Deliver(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[ev.Topic] {
		select {
		case sub.ch <- ev:
		default:
			metrics.RealtimeDropped.Inc()
			b.logger.Warn("realtime: subscriber full, event dropped", "topic", ev.Topic)
		}
	}
}

// Subscribers reports how many subscriptions listen on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
