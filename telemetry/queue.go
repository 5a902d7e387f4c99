package telemetry

import (
	"context"
	"sync"

	"github.com/itsneelabh/evel/core"
	"github.com/itsneelabh/evel/event"
)

// EntryKind tags a queue entry.
type EntryKind int

const (
	EntryEvent EntryKind = iota
	EntryCommand
)

// Command is an internal control instruction for the worker.
type Command int

const (
	CommandTerminate Command = iota
)

// Entry is either a data event or a control command.
type Entry struct {
	Kind    EntryKind
	Event   event.Event
	Command Command
}

// Queue is a bounded FIFO with one consumer.
//
// Enqueue never blocks: it fails with core.ErrBufferFull when capacity data
// entries are already waiting. Close appends the terminate command into a
// slot reserved for it, so it succeeds even when the queue is full, and
// refuses all later data.
type Queue struct {
	mu       sync.Mutex
	entries  chan Entry
	capacity int
	closed   bool
}

// NewQueue creates a queue holding up to capacity data entries.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = core.DefaultQueueCapacity
	}
	return &Queue{
		entries:  make(chan Entry, capacity+1),
		capacity: capacity,
	}
}

// Enqueue appends a data event.
func (q *Queue) Enqueue(evt event.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return core.ErrHandlerInactive
	}
	if len(q.entries) >= q.capacity {
		return core.ErrBufferFull
	}
	q.entries <- Entry{Kind: EntryEvent, Event: evt}
	return nil
}

// Close appends the terminate command behind every queued event.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return core.ErrHandlerInactive
	}
	q.closed = true
	q.entries <- Entry{Kind: EntryCommand, Command: CommandTerminate}
	return nil
}

// Dequeue blocks until an entry is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (Entry, error) {
	select {
	case e := <-q.entries:
		return e, nil
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
}

// Len returns the number of waiting entries, including a pending terminate command.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Cap returns the data capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
