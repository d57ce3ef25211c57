package bus

import (
	"sync"

	"gidterm/internal/logx"
)

// broadcastCap is the fixed capacity of the derived, lossy GidEvent
// broadcast surface.
const broadcastCap = 256

// GidEventBroadcaster is a multi-subscriber, non-blocking-publish fan-out of
// GidEvents. A slow subscriber's channel fills and further events for it are
// dropped with a warning log; no subscriber ever blocks publish.
type GidEventBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[int]chan GidEvent
	nextID      int
	log         func(dropped GidEvent)
}

func NewGidEventBroadcaster() *GidEventBroadcaster {
	logger := logx.For("bus")
	return &GidEventBroadcaster{
		subscribers: make(map[int]chan GidEvent),
		log: func(dropped GidEvent) {
			logger.Warn().Str("event_type", string(dropped.Type)).Msg("dropped slow GidEvent subscriber")
		},
	}
}

// Subscribe registers a new capacity-256 channel and returns it along with
// an unsubscribe function.
func (b *GidEventBroadcaster) Subscribe() (<-chan GidEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan GidEvent, broadcastCap)
	b.subscribers[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(c)
		}
	}
}

// Publish fans ev out to every subscriber without blocking.
func (b *GidEventBroadcaster) Publish(ev GidEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.log(ev)
		}
	}
}
