// Package sched runs deferred callbacks against simulated time.
//
// A Scheduler replaces frame-deferred routines: callers schedule work with
// After and the owner advances time with Tick. Routines never run on their own
// goroutine; they run inside Tick on the simulation thread.
package sched

import (
	"container/heap"
	"time"
)

// Routine is a scheduled callback. The zero value is not usable.
type Routine struct {
	due     time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

// Stop cancels the routine. Stopping a routine that already ran is a no-op.
// It reports whether the call prevented the routine from running.
func (r *Routine) Stop() bool {
	if r == nil || r.stopped || r.fired {
		return false
	}
	r.stopped = true
	return true
}

// Active reports whether the routine is still waiting to run.
func (r *Routine) Active() bool {
	return r != nil && !r.stopped && !r.fired
}

// queue is a min-heap ordered by due time, then scheduling order.
type queue []*Routine

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(*Routine)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return r
}

// Scheduler holds simulated time and the pending routines.
// It is not safe for concurrent use.
type Scheduler struct {
	now     time.Duration
	seq     uint64
	pending queue
}

// New creates an empty scheduler at time zero.
func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the simulated time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// After schedules fn to run once delay has elapsed. A non-positive delay runs
// fn on the next Tick.
func (s *Scheduler) After(delay time.Duration, fn func()) *Routine {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	r := &Routine{due: s.now + delay, seq: s.seq, fn: fn}
	heap.Push(&s.pending, r)
	return r
}

// Pending returns the number of routines waiting to run.
func (s *Scheduler) Pending() int {
	n := 0
	for _, r := range s.pending {
		if r.Active() {
			n++
		}
	}
	return n
}

// Tick advances simulated time by dt and runs every due routine in due-time
// order, FIFO among equal due times. Routines scheduled while ticking that are
// already due run in the same tick.
func (s *Scheduler) Tick(dt time.Duration) {
	if dt > 0 {
		s.now += dt
	}
	for {
		next := s.popDue()
		if next == nil {
			return
		}
		next.fired = true
		next.fn()
	}
}

// Clear cancels every pending routine.
func (s *Scheduler) Clear() {
	for _, r := range s.pending {
		r.stopped = true
	}
	s.pending = s.pending[:0]
}

// popDue removes the earliest due routine, discarding stopped ones on the
// way. Stopped routines stay in the heap until they reach the top.
func (s *Scheduler) popDue() *Routine {
	for len(s.pending) > 0 {
		head := s.pending[0]
		if !head.Active() {
			heap.Pop(&s.pending)
			continue
		}
		if head.due > s.now {
			return nil
		}
		return heap.Pop(&s.pending).(*Routine)
	}
	return nil
}
