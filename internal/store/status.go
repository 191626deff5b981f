// Package store holds the local caches that mirror the remote API: tours,
// bookings, and the wishlist.
//
// Each cache is split in two layers:
//
//   - a value State and a pure Reduce function (ReduceTours, ReduceBookings,
//     ReduceWishlist) that computes the next state from an event without
//     mutating its input, and
//   - a handle ([Tours], [Bookings], [Wishlist]) that owns the current state,
//     sequences a remote call with the events it produces, and notifies
//     subscribers after every transition.
//
// Handles are passed explicitly to their consumers; there is no global store.
package store

import (
	"sync"
)

// Status is the outcome of the most recent synchronization operation.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusFulfilled
	StatusRejected
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusRejected:
		return "rejected"
	default:
		return "idle"
	}
}

// OpState is the operation bookkeeping embedded in every store state.
type OpState struct {
	// LastOp is the status of the most recently started or resolved operation.
	LastOp Status

	// Pending counts operations that have started but not resolved.
	Pending int

	// Error holds the last failure message. It is cleared whenever an
	// operation starts or is fulfilled.
	Error string
}

// Loading reports whether any operation on the store is outstanding.
func (o OpState) Loading() bool {
	return o.Pending > 0
}

func (o OpState) started() OpState {
	o.Pending++
	o.LastOp = StatusPending
	o.Error = ""
	return o
}

func (o OpState) fulfilled() OpState {
	o.Pending = max(o.Pending-1, 0)
	o.LastOp = StatusFulfilled
	o.Error = ""
	return o
}

func (o OpState) rejected(msg string) OpState {
	o.Pending = max(o.Pending-1, 0)
	o.LastOp = StatusRejected
	o.Error = msg
	return o
}

// superseded resolves an operation whose result was dropped because a newer
// fetch of the same kind already resolved.
func (o OpState) superseded() OpState {
	o.Pending = max(o.Pending-1, 0)
	if o.Pending == 0 && o.LastOp == StatusPending {
		o.LastOp = StatusFulfilled
	}
	return o
}

// Full-replace fetches are stamped with increasing sequence numbers. A
// response is applied only if no fetch dispatched after it has resolved yet.
// Sequence 0 marks an unfenced event.

func admits(applied, seq uint64) bool {
	return seq == 0 || seq >= applied
}

func advance(applied, seq uint64) uint64 {
	return max(applied, seq)
}

// subscribers fans state snapshots out to registered callbacks.
type subscribers[S any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(S)
}

func (s *subscribers[S]) add(fn func(S)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(S))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *subscribers[S]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

func (s *subscribers[S]) snapshot() []func(S) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fns := make([]func(S), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	return fns
}

// handle is the shared machinery of the three store handles: it owns the
// state, applies a reducer under a lock, and delivers copies of each
// resulting state to subscribers in transition order.
//
// Delivery happens outside mu. Resulting states are queued under mu and
// drained by whichever dispatching goroutine finds no delivery in progress,
// so a subscriber may read the store, and even dispatch to it, without
// blocking on a concurrent dispatch.
type handle[S, E any] struct {
	mu         sync.Mutex // guards state, seq, queue, and delivering
	state      S
	seq        uint64
	queue      []S
	delivering bool

	reduce func(S, E) S
	clone  func(S) S
	subs   subscribers[S]
}

// dispatch applies ev and returns the resulting state.
func (h *handle[S, E]) dispatch(ev E) S {
	h.mu.Lock()
	h.state = h.reduce(h.state, ev)
	next := h.state
	if h.subs.len() > 0 {
		h.queue = append(h.queue, next)
	}
	if h.delivering || len(h.queue) == 0 {
		h.mu.Unlock()
		return h.clone(next)
	}
	h.delivering = true
	h.mu.Unlock()

	h.deliver()
	return h.clone(next)
}

// deliver drains the queue. Reducers never mutate their input, so a queued
// state is immutable; each subscriber still gets its own copy.
func (h *handle[S, E]) deliver() {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.queue = nil
			h.delivering = false
			h.mu.Unlock()
			return
		}
		s := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()

		for _, fn := range h.subs.snapshot() {
			fn(h.clone(s))
		}
	}
}

// begin allocates a fence sequence number and dispatches the start event.
func (h *handle[S, E]) begin(start E) uint64 {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.mu.Unlock()
	h.dispatch(start)
	return seq
}

// current returns a copy of the state.
func (h *handle[S, E]) current() S {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clone(h.state)
}
