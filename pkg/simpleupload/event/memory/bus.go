// Package memory provides an in-process event bus for tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Bus is an in-process implementation of simpleupload.Publisher and
// simpleupload.Subscriber. Each published event is delivered to exactly one
// member of every subscribed group, round-robin within the group. Delivery
// is synchronous: handlers run on the publishing goroutine, which keeps
// tests deterministic.
type Bus struct {
	mu     sync.Mutex
	groups map[string]*group
	nextID int
}

type group struct {
	handlers map[int]simpleupload.UploadEventHandler
	order    []int
	next     int
}

// New creates a new in-process bus
func New() *Bus {
	return &Bus{
		groups: make(map[string]*group),
	}
}

// PublishUploadEvent delivers the event to one member of every group
func (b *Bus) PublishUploadEvent(ctx context.Context, event simpleupload.UploadEvent) error {
	b.mu.Lock()
	var handlers []simpleupload.UploadEventHandler
	for _, g := range b.groups {
		if h := g.pick(); h != nil {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	// Invoke outside the lock so handlers may subscribe or publish.
	for _, h := range handlers {
		h(ctx, event)
	}
	return nil
}

// SubscribeUploadEvents registers a handler in the named consumer group
func (b *Bus) SubscribeUploadEvents(ctx context.Context, groupName string, handler simpleupload.UploadEventHandler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, exists := b.groups[groupName]
	if !exists {
		g = &group{handlers: make(map[int]simpleupload.UploadEventHandler)}
		b.groups[groupName] = g
	}

	id := b.nextID
	b.nextID++
	g.handlers[id] = handler
	g.order = append(g.order, id)

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(g.handlers, id)
		for i, v := range g.order {
			if v == id {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
		if len(g.order) == 0 {
			delete(b.groups, groupName)
		}
	}

	return unsubscribe, nil
}

// pick returns the next handler in round-robin order. Caller holds the lock.
func (g *group) pick() simpleupload.UploadEventHandler {
	if len(g.order) == 0 {
		return nil
	}
	if g.next >= len(g.order) {
		g.next = 0
	}
	h := g.handlers[g.order[g.next]]
	g.next++
	return h
}
