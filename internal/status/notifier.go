package status

import (
	"sync"

	"mcwatch/internal/domain"
	"mcwatch/internal/logger"
)

type Handler func(event domain.ChangeEvent)

type subscription struct {
	id      uint64
	handler Handler
}

// Notifier fans ChangeEvents out to subscribers. Handlers run synchronously
// on the publishing goroutine in subscription order, so they must not block.
type Notifier struct {
	mu   sync.RWMutex
	subs []subscription
	next uint64
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers handler and returns a function that removes it.
func (n *Notifier) Subscribe(handler Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	id := n.next
	n.subs = append(n.subs, subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { n.unsubscribe(id) })
	}
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return
		}
	}
}

func (n *Notifier) Publish(event domain.ChangeEvent) {
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()

	for _, s := range subs {
		n.deliver(s.handler, event)
	}
}

func (n *Notifier) deliver(handler Handler, event domain.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Change handler panicked", "address", event.Address, "panic", r)
		}
	}()
	handler(event)
}
