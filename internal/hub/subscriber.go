package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"navhunter/internal/entity"
	"navhunter/pkg/logger"
)

// Subscriber is one live delivery channel to a connected viewer.
type Subscriber struct {
	ID     string
	Events chan entity.Event

	closed atomic.Bool
	once   sync.Once
}

// Closed reports whether the subscriber's channel has been torn down.
func (s *Subscriber) Closed() bool {
	return s.closed.Load()
}

func (s *Subscriber) close() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.Events)
	})
}

// SubscriberSink is the direct-channel transport: a concurrency-safe
// registry of subscriber channels with fire-and-forget delivery.
type SubscriberSink struct {
	log    *logger.Logger
	buffer int

	mu   sync.Mutex
	subs map[*Subscriber]struct{}
	seq  atomic.Int64
}

// NewSubscriberSink creates an empty registry. buffer is the per-channel
// event buffer; a subscriber that falls behind by more than that drops
// events rather than blocking the broadcast.
func NewSubscriberSink(log *logger.Logger, buffer int) *SubscriberSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &SubscriberSink{
		log:    log,
		buffer: buffer,
		subs:   make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber channel.
func (k *SubscriberSink) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:     fmt.Sprintf("sub-%d-%d", time.Now().UnixMilli(), k.seq.Add(1)),
		Events: make(chan entity.Event, k.buffer),
	}
	k.mu.Lock()
	k.subs[sub] = struct{}{}
	k.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to
// call more than once.
func (k *SubscriberSink) Unsubscribe(sub *Subscriber) {
	k.mu.Lock()
	delete(k.subs, sub)
	k.mu.Unlock()
	sub.close()
}

// Count returns the number of live subscribers.
func (k *SubscriberSink) Count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.subs)
}

// Deliver writes the event to every live subscriber. Closed subscribers
// are pruned without aborting delivery to the rest; a subscriber whose
// buffer is full drops this event only.
func (k *SubscriberSink) Deliver(event entity.Event) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for sub := range k.subs {
		if sub.Closed() {
			delete(k.subs, sub)
			continue
		}
		select {
		case sub.Events <- event:
		default:
			k.log.Debug("subscriber saturated, dropping event",
				logger.StringField("subscriber", sub.ID),
				logger.StringField("event_type", string(event.Type)),
			)
		}
	}
	return nil
}

// Close tears down every subscriber channel.
func (k *SubscriberSink) Close() error {
	k.mu.Lock()
	subs := make([]*Subscriber, 0, len(k.subs))
	for sub := range k.subs {
		subs = append(subs, sub)
	}
	k.subs = make(map[*Subscriber]struct{})
	k.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return nil
}
