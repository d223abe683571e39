package vm

import (
	"sort"
	"sync"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// DeferredCommand is a saved script state waiting to be resumed.
type DeferredCommand struct {
	// Script is the name of the script the state belongs to.
	Script string `cbor:"script"`

	State nwscript.ScriptState `cbor:"state"`

	// Target runs the resumed block as OBJECT_SELF.
	Target    nwscript.ObjectID `cbor:"target"`
	Triggerer nwscript.ObjectID `cbor:"triggerer"`

	DelayMs    uint32 `cbor:"delay"`
	EnqueuedAt uint64 `cbor:"enqueued"`
	EligibleAt uint64 `cbor:"eligible"`

	// Seq orders commands that become eligible at the same time.
	Seq uint64 `cbor:"seq"`
}

// before orders commands by eligibility time, then by enqueue order.
func (c *DeferredCommand) before(o *DeferredCommand) bool {
	if c.EligibleAt != o.EligibleAt {
		return c.EligibleAt < o.EligibleAt
	}
	return c.Seq < o.Seq
}

// DeferredQueue is a thread-safe queue of deferred commands driven by a
// logical millisecond clock. Commands are kept sorted by (EligibleAt, Seq).
type DeferredQueue struct {
	entries []*DeferredCommand
	now     uint64
	seq     uint64
	mu      sync.Mutex
}

// NewDeferredQueue creates an empty queue at time zero.
func NewDeferredQueue() *DeferredQueue {
	return &DeferredQueue{
		entries: make([]*DeferredCommand, 0, 64),
	}
}

// Push enqueues a command to become eligible DelayMs after the current
// logical time. Enqueue, eligibility time and sequence number are assigned
// here. The stored state is a copy.
func (q *DeferredQueue) Push(cmd DeferredCommand) DeferredCommand {
	q.mu.Lock()
	defer q.mu.Unlock()

	c := cmd
	c.State = cmd.State.Clone()
	c.EnqueuedAt = q.now
	c.EligibleAt = q.now + uint64(cmd.DelayMs)
	c.Seq = q.seq
	q.seq++

	q.insert(&c)
	return c
}

func (q *DeferredQueue) insert(c *DeferredCommand) {
	i := sort.Search(len(q.entries), func(i int) bool {
		return c.before(q.entries[i])
	})
	q.entries = append(q.entries, nil)
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = c
}

// Advance moves the logical clock forward by deltaMs and removes every
// command that is now eligible, in execution order. Commands pushed after
// Advance returns are only seen by the next Advance.
func (q *DeferredQueue) Advance(deltaMs uint32) []DeferredCommand {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.now += uint64(deltaMs)

	n := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].EligibleAt > q.now
	})
	if n == 0 {
		return nil
	}

	due := make([]DeferredCommand, n)
	for i, c := range q.entries[:n] {
		due[i] = *c
	}
	q.entries = append(q.entries[:0], q.entries[n:]...)
	return due
}

// CancelFor drops every command targeting id and returns how many were
// dropped.
func (q *DeferredQueue) CancelFor(id nwscript.ObjectID) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:0]
	dropped := 0
	for _, c := range q.entries {
		if c.Target == id {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = nil
	}
	q.entries = kept
	return dropped
}

// Len returns the number of pending commands.
func (q *DeferredQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Now returns the logical time in milliseconds.
func (q *DeferredQueue) Now() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now
}

// Peek returns the next command to become eligible without removing it.
func (q *DeferredQueue) Peek() (DeferredCommand, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return DeferredCommand{}, false
	}
	return *q.entries[0], true
}

// Entries returns a copy of the pending commands in execution order.
func (q *DeferredQueue) Entries() []DeferredCommand {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeferredCommand, len(q.entries))
	for i, c := range q.entries {
		out[i] = *c
	}
	return out
}

// Clear removes all pending commands. The clock is kept.
func (q *DeferredQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = q.entries[:0]
}

// restore replaces the queue contents with a decoded snapshot.
func (q *DeferredQueue) restore(now, seq uint64, entries []DeferredCommand) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
	q.seq = seq
	q.entries = q.entries[:0]
	for i := range entries {
		c := entries[i]
		if c.Seq >= q.seq {
			q.seq = c.Seq + 1
		}
		q.insert(&c)
	}
}
