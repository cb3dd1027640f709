package sqlite

import "sync"

// Notifier fans out a generic "alerts changed" signal to subscribers so
// presentation surfaces can re-fetch instead of polling. Signals are
// coalesced: a subscriber that hasn't drained its channel yet receives at
// most one pending notification.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan struct{})}
}

// Subscribe registers a new subscriber. The returned channel receives a
// signal after every alert mutation. The cancel function must be called to
// release the subscription.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
	return ch, cancel
}

// Notify signals all subscribers. Never blocks.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
