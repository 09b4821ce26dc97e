package realtime

import (
	"context"
	"sync"
)

// subscriberBuffer bounds each subscriber's queue. A slow subscriber drops
// events rather than stalling writers. The next delivered event carries the
// drop count so the subscriber can reload.
const subscriberBuffer = 64

type subscriber struct {
	prefix  string
	ch      chan Event
	dropped int
}

// broker fans events out to in-process subscribers.
type broker struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
	done   chan struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[*subscriber]struct{}), done: make(chan struct{})}
}

func (b *broker) subscribe(ctx context.Context, prefix string) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	s := &subscriber{prefix: prefix, ch: make(chan Event, subscriberBuffer)}
	b.subs[s] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			b.remove(s)
		case <-b.done:
		}
	}()
	return s.ch, nil
}

func (b *broker) remove(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if !matches(s.prefix, ev.Path) {
			continue
		}
		out := ev
		out.Dropped = s.dropped
		select {
		case s.ch <- out:
			s.dropped = 0
		default:
			s.dropped++
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for s := range b.subs {
		delete(b.subs, s)
		close(s.ch)
	}
}
