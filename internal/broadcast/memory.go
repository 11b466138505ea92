package broadcast

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Memory is an in-process Broadcaster for dev and tests. Delivery is
// non-blocking: a subscriber that cannot keep up loses events rather than
// stalling the publisher, which matches the advisory nature of the stream.
type Memory struct {
	mu        sync.RWMutex
	channels  map[string]map[int]chan Event
	lastSubID int
}

// NewMemory creates an empty broadcaster.
func NewMemory() *Memory {
	return &Memory{channels: make(map[string]map[int]chan Event)}
}

// Publish delivers evt to every current subscriber of channel.
func (m *Memory) Publish(_ context.Context, channel string, evt Event) error {
	evt.Channel = channel
	// Delivery happens under the read lock so a concurrent cancel cannot
	// close a channel mid-send. Sends are non-blocking, so the lock is held
	// only briefly.
	m.mu.RLock()
	for _, ch := range m.channels[channel] {
		select {
		case ch <- evt:
		default:
			droppedTotal.WithLabelValues(evt.Name).Inc()
		}
	}
	m.mu.RUnlock()
	publishedTotal.WithLabelValues(evt.Name).Inc()
	return nil
}

// Subscribe registers an observer on channel. The returned cancel func
// removes the observer and closes its event channel.
func (m *Memory) Subscribe(_ context.Context, channel string) (<-chan Event, func(), error) {
	ch := make(chan Event, subscriberBuffer)

	m.mu.Lock()
	m.lastSubID++
	id := m.lastSubID
	if _, ok := m.channels[channel]; !ok {
		m.channels[channel] = make(map[int]chan Event)
	}
	m.channels[channel][id] = ch
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			if subs, ok := m.channels[channel]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(m.channels, channel)
				}
			}
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
