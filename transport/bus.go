package transport

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrBusClosed is returned when publishing or subscribing on a closed bus.
var ErrBusClosed = errors.New("bus closed")

// Message is a single delivery on a subject.
type Message struct {
	Subject string
	Data    []byte
}

// MsgHandler processes one delivered message.
type MsgHandler func(ctx context.Context, msg Message)

// Subscription is an active interest in a subject pattern.
type Subscription interface {
	Unsubscribe() error
}

// Bus is a minimal subject-based publish/subscribe transport. Subject
// patterns follow NATS conventions: tokens are separated by '.', '*' matches
// exactly one token and a trailing '>' matches one or more tokens.
type Bus interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(pattern string, handler MsgHandler) (Subscription, error)
}

// InMemoryBus delivers messages synchronously to matching subscribers in the
// publisher's goroutine. Handlers may publish from within a delivery.
type InMemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]inMemorySub
	closed bool
}

type inMemorySub struct {
	pattern []string
	handler MsgHandler
}

var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[int]inMemorySub)}
}

// Publish delivers data to every subscriber whose pattern matches subject.
func (b *InMemoryBus) Publish(ctx context.Context, subject string, data []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	tokens := strings.Split(subject, ".")
	var handlers []MsgHandler
	for id := 0; id < b.nextID; id++ {
		if s, ok := b.subs[id]; ok && matchTokens(s.pattern, tokens) {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		payload := make([]byte, len(data))
		copy(payload, data)
		h(ctx, Message{Subject: subject, Data: payload})
	}
	return nil
}

// Subscribe registers handler for subjects matching pattern.
func (b *InMemoryBus) Subscribe(pattern string, handler MsgHandler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = inMemorySub{pattern: strings.Split(pattern, "."), handler: handler}
	return &inMemorySubscription{bus: b, id: id}, nil
}

// Close drops every subscription; later calls fail with ErrBusClosed.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[int]inMemorySub)
}

type inMemorySubscription struct {
	bus *InMemoryBus
	id  int
}

func (s *inMemorySubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
	return nil
}

// MatchSubject reports whether subject matches pattern.
func MatchSubject(pattern, subject string) bool {
	return matchTokens(strings.Split(pattern, "."), strings.Split(subject, "."))
}

func matchTokens(pattern, subject []string) bool {
	for i, p := range pattern {
		if p == ">" {
			return i == len(pattern)-1 && len(subject) > i
		}
		if i >= len(subject) {
			return false
		}
		if p != "*" && p != subject[i] {
			return false
		}
	}
	return len(pattern) == len(subject)
}
