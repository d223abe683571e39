package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
)

// MaxExecuteDepth bounds scripts started from inside other scripts.
const MaxExecuteDepth = 16

// ScriptLoader resolves a script resource name to a decoded program.
type ScriptLoader interface {
	Load(name string) (*opcode.Program, error)
}

// Runtime runs scripts for a host: it owns the deferred queue and the
// interpreter, and resolves scripts through a loader and objects through
// the host's object table.
type Runtime struct {
	loader  ScriptLoader
	objects nwscript.ObjectTable
	queue   *DeferredQueue

	interpMu sync.RWMutex
	interp   *Interpreter
	opts     []Option

	depth atomic.Int32
	log   *slog.Logger
}

// NewRuntime creates a runtime. objects may be nil, in which case deferred
// commands are never considered stale. Until RegisterFunctions is called
// every engine call is answered by the unknown-function stub.
func NewRuntime(loader ScriptLoader, objects nwscript.ObjectTable, opts ...Option) *Runtime {
	o := buildOptions(opts)
	return &Runtime{
		loader:  loader,
		objects: objects,
		queue:   NewDeferredQueue(),
		interp:  NewInterpreter(nil, opts...),
		opts:    opts,
		log:     o.log,
	}
}

// RegisterFunctions installs the engine function table, e.g. a per-title
// table or a customized one.
func (r *Runtime) RegisterFunctions(table *nwscript.FunctionTable) {
	interp := NewInterpreter(table, r.opts...)
	r.interpMu.Lock()
	r.interp = interp
	r.interpMu.Unlock()
}

// Functions returns the installed engine function table.
func (r *Runtime) Functions() *nwscript.FunctionTable {
	return r.interpreter().Functions()
}

func (r *Runtime) interpreter() *Interpreter {
	r.interpMu.RLock()
	defer r.interpMu.RUnlock()
	return r.interp
}

func (r *Runtime) load(name string) (*opcode.Program, error) {
	if r.loader == nil {
		return nil, fmt.Errorf("load script %q: no script loader", name)
	}
	prog, err := r.loader.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load script %q: %w", name, err)
	}
	return prog, nil
}

// RunScript runs a script from its entry point with caller as OBJECT_SELF.
// args are pushed onto the stack first. It returns the script's result,
// e.g. the answer of a conditional script.
func (r *Runtime) RunScript(ctx context.Context, name string, caller, triggerer nwscript.ObjectID, args ...nwscript.Variable) (nwscript.Variable, error) {
	prog, err := r.load(name)
	if err != nil {
		return nwscript.Unset(), err
	}

	r.log.Debug("Running script", "script", name, "caller", caller, "triggerer", triggerer)
	result, err := r.interpreter().Run(ctx, prog, Invocation{Script: name, Caller: caller, Triggerer: triggerer, Args: args})
	if err != nil {
		r.log.Error("Script failed", "script", name, "error", err)
		return nwscript.Unset(), err
	}
	return result, nil
}

// ExecuteScript runs a script from inside an engine function. ctx is the
// context of the calling script.
func (r *Runtime) ExecuteScript(ctx context.Context, name string, caller, triggerer nwscript.ObjectID) error {
	if r.depth.Add(1) > MaxExecuteDepth {
		r.depth.Add(-1)
		return nwscript.NewInterpreterFault("script %q nested deeper than %d", name, MaxExecuteDepth)
	}
	defer r.depth.Add(-1)

	_, err := r.RunScript(ctx, name, caller, triggerer)
	return err
}

// DelayScript enqueues a saved state to run delayMs from now, with target
// as OBJECT_SELF. An empty script name fails with InvalidScriptContext and
// enqueues nothing.
func (r *Runtime) DelayScript(script string, state nwscript.ScriptState, target, triggerer nwscript.ObjectID, delayMs uint32) error {
	if script == "" {
		return nwscript.NewInvalidScriptContextError("DelayScript")
	}
	cmd := r.queue.Push(DeferredCommand{
		Script:    script,
		State:     state,
		Target:    target,
		Triggerer: triggerer,
		DelayMs:   delayMs,
	})
	r.log.Debug("Deferred command queued", "script", script, "target", target, "eligible", cmd.EligibleAt, "seq", cmd.Seq)
	return nil
}

// Advance moves the logical clock forward and resumes every command that
// became eligible, in (eligibility, enqueue) order. A failing command is
// logged and does not affect the others. It returns the number of commands
// resumed.
func (r *Runtime) Advance(ctx context.Context, deltaMs uint32) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ran := 0
	for _, cmd := range r.queue.Advance(deltaMs) {
		if !r.alive(cmd.Target) {
			r.log.Debug("Skipping deferred command for stale object", "script", cmd.Script, "target", cmd.Target)
			continue
		}

		prog, err := r.load(cmd.Script)
		if err != nil {
			r.log.Error("Deferred command failed", "script", cmd.Script, "error", err)
			continue
		}
		inv := Invocation{Script: cmd.Script, Caller: cmd.Target, Triggerer: cmd.Triggerer}
		if _, err := r.interpreter().Resume(ctx, prog, cmd.State, inv); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ran, err
			}
			r.log.Error("Deferred command failed", "script", cmd.Script, "target", cmd.Target, "error", err)
			continue
		}
		ran++
	}
	return ran, ctx.Err()
}

func (r *Runtime) alive(id nwscript.ObjectID) bool {
	if r.objects == nil {
		return true
	}
	if !id.Valid() {
		return false
	}
	_, ok := r.objects.Lookup(id)
	return ok
}

// CancelFor drops all deferred commands targeting id, e.g. when the object
// is destroyed.
func (r *Runtime) CancelFor(id nwscript.ObjectID) int {
	n := r.queue.CancelFor(id)
	if n > 0 {
		r.log.Debug("Cancelled deferred commands", "target", id, "count", n)
	}
	return n
}

// Pending returns the number of queued deferred commands.
func (r *Runtime) Pending() int {
	return r.queue.Len()
}

// Now returns the logical clock in milliseconds.
func (r *Runtime) Now() uint64 {
	return r.queue.Now()
}

// Queue returns the deferred queue.
func (r *Runtime) Queue() *DeferredQueue {
	return r.queue
}

type queueSnapshot struct {
	Now      uint64            `cbor:"now"`
	Seq      uint64            `cbor:"seq"`
	Commands []DeferredCommand `cbor:"commands"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalQueue serializes the clock and the pending deferred commands.
func (r *Runtime) MarshalQueue() ([]byte, error) {
	r.queue.mu.Lock()
	snap := queueSnapshot{Now: r.queue.now, Seq: r.queue.seq}
	for _, c := range r.queue.entries {
		snap.Commands = append(snap.Commands, *c)
	}
	r.queue.mu.Unlock()

	return cborEncMode.Marshal(snap)
}

// UnmarshalQueue replaces the clock and the pending commands with a
// serialized snapshot.
func (r *Runtime) UnmarshalQueue(data []byte) error {
	var snap queueSnapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("vm: unmarshal queue: %w", err)
	}
	r.queue.restore(snap.Now, snap.Seq, snap.Commands)
	return nil
}
