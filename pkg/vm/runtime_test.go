package vm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
)

// newTestRuntime wires a runtime to the test table and the given scripts.
func newTestRuntime(t *testing.T, rec *recorder, objects nwscript.ObjectTable, scripts memLoader) *Runtime {
	t.Helper()
	var rt *Runtime
	rt = NewRuntime(scripts, objects)
	rt.RegisterFunctions(newTestTable(t, rec, func() *Runtime { return rt }))
	return rt
}

// delayedRecords defers Record(value) for each value with the given delay.
func delayedRecords(t *testing.T, delay float32, values ...int32) *opcode.Program {
	return assemble(t, func(b *opcode.Builder) {
		for i, v := range values {
			v := v
			b.ConstInt(v)
			deferBlock(b, "after"+string(rune('a'+i)), 0, 4, func(b *opcode.Builder) {
				b.Copy(opcode.CPTOPSP, -4, 4)
				b.Action(fnRecord, 1)
			})
			b.ConstFloat(delay)
			b.Action(fnDelay, 2)
			b.Offset(opcode.MOVSP, -4)
		}
		b.Retn()
	})
}

func recordedInts(rec *recorder) []int32 {
	var out []int32
	for _, v := range rec.values {
		i, _ := v.Int()
		out = append(out, i)
	}
	return out
}

func equalInts(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRuntime_DelayCommand(t *testing.T) {
	rec := &recorder{}
	rt := newTestRuntime(t, rec, nil, memLoader{"k_delay": delayedRecords(t, 2.0, 41)})
	ctx := context.Background()

	if _, err := rt.RunScript(ctx, "k_delay", 100, 200); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if rt.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", rt.Pending())
	}

	if n, err := rt.Advance(ctx, 1999); err != nil || n != 0 {
		t.Fatalf("Advance(1999) = %d, %v; want nothing run", n, err)
	}
	if n, err := rt.Advance(ctx, 1); err != nil || n != 1 {
		t.Fatalf("Advance(1) = %d, %v; want 1 run", n, err)
	}
	if got := recordedInts(rec); !equalInts(got, []int32{41}) {
		t.Errorf("recorded %v, want [41]", got)
	}
	if rec.callers[0] != 100 {
		t.Errorf("deferred block ran as %d, want caller 100", rec.callers[0])
	}
	if rt.Now() != 2000 {
		t.Errorf("Now() = %d, want 2000", rt.Now())
	}
}

func TestRuntime_FIFOForEqualDelays(t *testing.T) {
	rec := &recorder{}
	rt := newTestRuntime(t, rec, nil, memLoader{"k_fifo": delayedRecords(t, 0.5, 1, 2, 3)})
	ctx := context.Background()

	if _, err := rt.RunScript(ctx, "k_fifo", 100, 200); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if _, err := rt.Advance(ctx, 500); err != nil {
		t.Fatal(err)
	}
	if got := recordedInts(rec); !equalInts(got, []int32{1, 2, 3}) {
		t.Errorf("recorded %v, want [1 2 3]", got)
	}
}

func TestRuntime_DelayZeroRunsNextTick(t *testing.T) {
	rec := &recorder{}
	rt := newTestRuntime(t, rec, nil, memLoader{"k_zero": delayedRecords(t, 0, 9)})
	ctx := context.Background()

	if _, err := rt.RunScript(ctx, "k_zero", 100, 200); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if len(rec.values) != 0 {
		t.Fatal("delay 0 must not run synchronously")
	}
	if n, _ := rt.Advance(ctx, 0); n != 1 {
		t.Errorf("Advance(0) ran %d commands, want 1", n)
	}
}

func TestRuntime_NestedDelayWaitsForNextTick(t *testing.T) {
	// DelayCommand(0.0, DelayCommand(0.0, Record(5)))
	prog := assemble(t, func(b *opcode.Builder) {
		b.ConstInt(5)
		deferBlock(b, "outer", 0, 4, func(b *opcode.Builder) {
			deferBlock(b, "inner", 0, 4, func(b *opcode.Builder) {
				b.Copy(opcode.CPTOPSP, -4, 4)
				b.Action(fnRecord, 1)
			})
			b.ConstFloat(0)
			b.Action(fnDelay, 2)
		})
		b.ConstFloat(0)
		b.Action(fnDelay, 2)
		b.Retn()
	})

	rec := &recorder{}
	rt := newTestRuntime(t, rec, nil, memLoader{"k_nested": prog})
	ctx := context.Background()

	if _, err := rt.RunScript(ctx, "k_nested", 100, 200); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if n, _ := rt.Advance(ctx, 0); n != 1 || len(rec.values) != 0 {
		t.Fatalf("first tick ran %d commands and recorded %d values", n, len(rec.values))
	}
	if rt.Pending() != 1 {
		t.Fatalf("inner command should wait for the next tick, pending = %d", rt.Pending())
	}
	if n, _ := rt.Advance(ctx, 0); n != 1 {
		t.Fatalf("second tick ran %d commands", n)
	}
	if got := recordedInts(rec); !equalInts(got, []int32{5}) {
		t.Errorf("recorded %v, want [5]", got)
	}
}

func TestRuntime_DelayScriptWithoutScript(t *testing.T) {
	rt := NewRuntime(memLoader{}, nil)
	err := rt.DelayScript("", nwscript.ScriptState{Offset: 13}, 1, 2, 0)
	if !errors.Is(err, nwscript.ErrInvalidScriptContext) {
		t.Errorf("DelayScript(\"\") = %v, want InvalidScriptContext", err)
	}
	if rt.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", rt.Pending())
	}
}

func TestRuntime_DelayCommandFromConsoleCall(t *testing.T) {
	rec := &recorder{}
	rt := newTestRuntime(t, rec, nil, memLoader{})
	prog := delayedRecords(t, 1, 3)

	_, err := rt.interpreter().Run(context.Background(), prog, Invocation{Caller: 100})
	if !errors.Is(err, nwscript.ErrInvalidScriptContext) {
		t.Errorf("DelayCommand without a script = %v, want InvalidScriptContext", err)
	}
	if rt.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", rt.Pending())
	}
}

func TestRuntime_AssignCommand(t *testing.T) {
	// AssignCommand(object 300, Record(8))
	prog := assemble(t, func(b *opcode.Builder) {
		b.ConstInt(8)
		deferBlock(b, "assigned", 0, 4, func(b *opcode.Builder) {
			b.Copy(opcode.CPTOPSP, -4, 4)
			b.Action(fnRecord, 1)
		})
		b.ConstObject(300)
		b.Action(fnAssign, 2)
		b.Retn()
	})

	rec := &recorder{}
	rt := newTestRuntime(t, rec, objectSet{100: true, 300: true}, memLoader{"k_assign": prog})
	ctx := context.Background()

	if _, err := rt.RunScript(ctx, "k_assign", 100, 200); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if _, err := rt.Advance(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if len(rec.callers) != 1 || rec.callers[0] != 300 {
		t.Errorf("assigned block ran as %v, want [300]", rec.callers)
	}
}

func TestRuntime_FaultHaltsOnlyThatScript(t *testing.T) {
	// The first deferred block adds a string to an object; the second
	// records normally.
	prog := assemble(t, func(b *opcode.Builder) {
		deferBlock(b, "bad", 0, 0, func(b *opcode.Builder) {
			b.ConstString("a").ConstObject(0).Op(opcode.ADD, opcode.TypeStringString)
			b.Action(fnRecord, 1)
		})
		b.ConstFloat(0)
		b.Action(fnDelay, 2)

		b.ConstInt(2)
		deferBlock(b, "good", 0, 4, func(b *opcode.Builder) {
			b.Copy(opcode.CPTOPSP, -4, 4)
			b.Action(fnRecord, 1)
		})
		b.ConstFloat(0)
		b.Action(fnDelay, 2)
		b.Retn()
	})

	rec := &recorder{}
	rt := newTestRuntime(t, rec, nil, memLoader{"k_fault": prog})
	ctx := context.Background()

	if _, err := rt.RunScript(ctx, "k_fault", 100, 200); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	n, err := rt.Advance(ctx, 0)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if n != 1 {
		t.Errorf("Advance ran %d commands successfully, want 1", n)
	}
	if got := recordedInts(rec); !equalInts(got, []int32{2}) {
		t.Errorf("recorded %v, want [2]", got)
	}
}

func TestRuntime_StaleTarget(t *testing.T) {
	rec := &recorder{}
	objects := objectSet{100: true}
	rt := newTestRuntime(t, rec, objects, memLoader{"k_stale": delayedRecords(t, 1, 4)})
	ctx := context.Background()

	if _, err := rt.RunScript(ctx, "k_stale", 100, 200); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	delete(objects, 100)

	if n, _ := rt.Advance(ctx, 1000); n != 0 {
		t.Errorf("stale command ran")
	}
	if len(rec.values) != 0 || rt.Pending() != 0 {
		t.Errorf("stale command should be dropped, recorded %v", rec.values)
	}
}

func TestRuntime_CancelFor(t *testing.T) {
	rt := NewRuntime(memLoader{}, nil)
	for _, target := range []nwscript.ObjectID{1, 2, 1} {
		if err := rt.DelayScript("s", nwscript.ScriptState{}, target, 0, 100); err != nil {
			t.Fatal(err)
		}
	}
	if n := rt.CancelFor(1); n != 2 {
		t.Errorf("CancelFor(1) = %d, want 2", n)
	}
	if rt.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", rt.Pending())
	}
}

func TestRuntime_QueueSnapshot(t *testing.T) {
	rec := &recorder{}
	prog := delayedRecords(t, 3, 6, 7)
	rt := newTestRuntime(t, rec, nil, memLoader{"k_save": prog})
	ctx := context.Background()

	if _, err := rt.RunScript(ctx, "k_save", 100, 200); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Advance(ctx, 1000); err != nil {
		t.Fatal(err)
	}

	data, err := rt.MarshalQueue()
	if err != nil {
		t.Fatalf("MarshalQueue: %v", err)
	}

	restored := newTestRuntime(t, rec, nil, memLoader{"k_save": prog})
	if err := restored.UnmarshalQueue(data); err != nil {
		t.Fatalf("UnmarshalQueue: %v", err)
	}
	if restored.Now() != 1000 || restored.Pending() != 2 {
		t.Fatalf("restored now=%d pending=%d", restored.Now(), restored.Pending())
	}
	if _, err := restored.Advance(ctx, 2000); err != nil {
		t.Fatal(err)
	}
	if got := recordedInts(rec); !equalInts(got, []int32{6, 7}) {
		t.Errorf("recorded %v, want [6 7]", got)
	}
}

func TestRuntime_ExecuteScriptHonorsContext(t *testing.T) {
	loop := assemble(t, func(b *opcode.Builder) {
		b.Label("top")
		b.Jump(opcode.JMP, "top")
	})
	outer := assemble(t, func(b *opcode.Builder) {
		b.ConstString("k_loop")
		b.Action(fnExecute, 1)
		b.ConstInt(1)
		b.Action(fnRecord, 1)
		b.Retn()
	})

	rec := &recorder{}
	rt := newTestRuntime(t, rec, nil, memLoader{"k_outer": outer, "k_loop": loop})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := rt.RunScript(ctx, "k_outer", 100, 200)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("RunScript = %v, want DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("nested script ignored the caller's context")
	}
	if len(rec.values) != 0 {
		t.Errorf("outer script kept running after cancellation, recorded %v", rec.values)
	}
}

func TestRuntime_MissingScript(t *testing.T) {
	rt := NewRuntime(memLoader{}, nil)
	if _, err := rt.RunScript(context.Background(), "nope", 0, 0); err == nil {
		t.Error("expected load error")
	}
}

func TestRuntime_RunScriptArgs(t *testing.T) {
	// Returns arg0 - arg1 with arg1 on top.
	prog := assemble(t, func(b *opcode.Builder) {
		b.Op(opcode.SUB, opcode.TypeIntInt)
		b.Retn()
	})
	rt := newTestRuntime(t, &recorder{}, nil, memLoader{"k_args": prog})

	got, err := rt.RunScript(context.Background(), "k_args", 1, 0, nwscript.NewInt(10), nwscript.NewInt(3))
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if i, _ := got.Int(); i != 7 {
		t.Errorf("result = %d, want 7", i)
	}
}
