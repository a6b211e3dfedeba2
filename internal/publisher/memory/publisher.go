// Package memory is an in-process publisher used in development runs and
// tests, where no broker is reachable.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// PublishedMessage captures one publish call for later inspection.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// Publisher records every published change event instead of delivering it.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish appends the message to the in-process record. The returned ID is
// the 1-based position of the message, prefixed so it cannot be mistaken
// for a broker-assigned ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.messages)), nil
}

// Messages returns a copy of everything published so far, in order.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
