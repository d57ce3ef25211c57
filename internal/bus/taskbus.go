// Package bus implements the Event Bus component: the single ordered,
// non-dropping stream of TaskEvents and the derived, lossy
// GidEvent broadcast surface consumed by external control clients.
package bus

import (
	"container/list"
	"context"
	"sync"

	"gidterm/internal/executor"
)

// TaskBus is an unbounded, strictly-ordered, single-consumer queue of
// TaskEvents. It structurally cannot drop while open: Push always succeeds
// by growing the backing list. Events pushed after Close are discarded.
type TaskBus struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *list.List
	closed bool
}

func NewTaskBus() *TaskBus {
	b := &TaskBus{queue: list.New()}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push enqueues an event. Never blocks; drops only after Close.
func (b *TaskBus) Push(ev executor.TaskEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue.PushBack(ev)
	b.cond.Signal()
}

// Next blocks until an event is available, the bus is closed, or ctx is
// done. ok is false when the bus is closed and drained, or when ctx is done
// while no event is queued.
func (b *TaskBus) Next(ctx context.Context) (ev executor.TaskEvent, ok bool) {
	done := make(chan struct{})
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.mu.Lock()
				b.cond.Broadcast()
				b.mu.Unlock()
			case <-done:
			}
		}()
		defer close(done)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for b.queue.Len() == 0 && !b.closed {
		if ctx != nil && ctx.Err() != nil {
			return executor.TaskEvent{}, false
		}
		b.cond.Wait()
	}
	if b.queue.Len() == 0 {
		return executor.TaskEvent{}, false
	}
	front := b.queue.Front()
	b.queue.Remove(front)
	return front.Value.(executor.TaskEvent), true
}

// TryNext returns immediately: an event and true, or zero-value and false
// if none is queued right now.
func (b *TaskBus) TryNext() (executor.TaskEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.queue.Len() == 0 {
		return executor.TaskEvent{}, false
	}
	front := b.queue.Front()
	b.queue.Remove(front)
	return front.Value.(executor.TaskEvent), true
}

// Close marks the bus closed and wakes any blocked consumer; queued events
// already pushed are still delivered via Next before it returns ok=false.
func (b *TaskBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
