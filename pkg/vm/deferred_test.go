package vm

import (
	"testing"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

func TestDeferredQueue_PushAssignsTimes(t *testing.T) {
	q := NewDeferredQueue()
	q.Advance(250)

	c := q.Push(DeferredCommand{Script: "a", DelayMs: 100})
	if c.EnqueuedAt != 250 || c.EligibleAt != 350 || c.Seq != 0 {
		t.Errorf("Push() = enqueued %d eligible %d seq %d", c.EnqueuedAt, c.EligibleAt, c.Seq)
	}
	if c2 := q.Push(DeferredCommand{Script: "b"}); c2.Seq != 1 {
		t.Errorf("second seq = %d, want 1", c2.Seq)
	}
}

func TestDeferredQueue_PushCopiesState(t *testing.T) {
	q := NewDeferredQueue()
	locals := []nwscript.Variable{nwscript.NewInt(1)}
	q.Push(DeferredCommand{Script: "a", State: nwscript.ScriptState{Locals: locals}})
	locals[0] = nwscript.NewInt(2)

	c, ok := q.Peek()
	if !ok {
		t.Fatal("Peek() found nothing")
	}
	if v, _ := c.State.Locals[0].Int(); v != 1 {
		t.Errorf("stored local = %d, want 1", v)
	}
}

func TestDeferredQueue_Ordering(t *testing.T) {
	q := NewDeferredQueue()
	q.Push(DeferredCommand{Script: "late", DelayMs: 300})
	q.Push(DeferredCommand{Script: "first", DelayMs: 100})
	q.Push(DeferredCommand{Script: "second", DelayMs: 100})
	q.Push(DeferredCommand{Script: "now", DelayMs: 0})

	tests := []struct {
		delta uint32
		want  []string
	}{
		{0, []string{"now"}},
		{99, nil},
		{1, []string{"first", "second"}},
		{1000, []string{"late"}},
		{1000, nil},
	}
	for i, tt := range tests {
		due := q.Advance(tt.delta)
		var got []string
		for _, c := range due {
			got = append(got, c.Script)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("step %d: got %v, want %v", i, got, tt.want)
		}
		for j := range got {
			if got[j] != tt.want[j] {
				t.Errorf("step %d: got %v, want %v", i, got, tt.want)
			}
		}
	}
	if q.Now() != 2100 {
		t.Errorf("Now() = %d, want 2100", q.Now())
	}
}

func TestDeferredQueue_CancelFor(t *testing.T) {
	q := NewDeferredQueue()
	q.Push(DeferredCommand{Script: "a", Target: 1})
	q.Push(DeferredCommand{Script: "b", Target: 2})
	q.Push(DeferredCommand{Script: "c", Target: 1})

	if n := q.CancelFor(1); n != 2 {
		t.Errorf("CancelFor(1) = %d, want 2", n)
	}
	if n := q.CancelFor(1); n != 0 {
		t.Errorf("second CancelFor(1) = %d, want 0", n)
	}
	entries := q.Entries()
	if len(entries) != 1 || entries[0].Script != "b" {
		t.Errorf("Entries() = %+v", entries)
	}
}

func TestDeferredQueue_Clear(t *testing.T) {
	q := NewDeferredQueue()
	q.Advance(10)
	q.Push(DeferredCommand{Script: "a"})
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len() = %d after Clear", q.Len())
	}
	if q.Now() != 10 {
		t.Errorf("Clear reset the clock to %d", q.Now())
	}
	if _, ok := q.Peek(); ok {
		t.Error("Peek() found a command after Clear")
	}
}

func TestDeferredQueue_RestoreKeepsSeqUnique(t *testing.T) {
	q := NewDeferredQueue()
	q.restore(500, 0, []DeferredCommand{
		{Script: "a", EligibleAt: 600, Seq: 4},
		{Script: "b", EligibleAt: 550, Seq: 7},
	})
	c := q.Push(DeferredCommand{Script: "c", DelayMs: 100})
	if c.Seq != 8 {
		t.Errorf("seq after restore = %d, want 8", c.Seq)
	}

	due := q.Advance(100)
	if len(due) != 3 || due[0].Script != "b" || due[1].Script != "a" || due[2].Script != "c" {
		t.Errorf("due after restore = %+v", due)
	}
}
