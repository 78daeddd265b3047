package catalog

import (
	"sync"

	"github.com/google/uuid"
)

// ProgressEvent is one sync progress update pushed to SSE subscribers.
type ProgressEvent struct {
	Fetched int  `json:"fetched"`
	Total   int  `json:"total"`
	Percent int  `json:"percent"`
	Done    bool `json:"done"`
}

// subscriber holds one SSE client's event channel. The channel is buffered
// so a slow reader never stalls the sync loop; when the buffer is full the
// event is dropped, since only the latest progress matters.
type subscriber struct {
	events chan ProgressEvent
}

// Broadcaster fans sync progress out to any number of SSE subscribers.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	last        *ProgressEvent
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]*subscriber)}
}

// Subscribe registers a new client and returns its id and event channel.
// A client that connects mid-sync immediately receives the latest event so
// its progress bar does not start from zero.
func (b *Broadcaster) Subscribe() (string, <-chan ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	sub := &subscriber{events: make(chan ProgressEvent, 32)}
	if b.last != nil {
		sub.events <- *b.last
	}
	b.subscribers[id] = sub
	return id, sub.events
}

// Unsubscribe removes the client and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.events)
	}
}

// Broadcast pushes an event to every subscriber without blocking.
func (b *Broadcaster) Broadcast(event ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = &event
	for _, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
		}
	}
}

// SubscriberCount reports how many clients are connected.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
