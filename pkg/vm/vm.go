// Package vm provides the virtual machine for executing compiled NWScript
// (NCS) bytecode. It implements:
// - a stack interpreter for the full NCS instruction set
// - engine-function dispatch through a nwscript.FunctionTable
// - script state capture for deferred actions
// - a logical-clock deferred execution queue
// - the Runtime tying scripts, functions and the queue together
package vm

import (
	"context"
	"log/slog"

	"github.com/davecgh/go-spew/spew"

	"github.com/zurustar/aurora-nwscript/pkg/logger"
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
)

// MaxCallDepth is the maximum subroutine nesting before the script faults.
const MaxCallDepth = 1000

// MaxStackSlots bounds the operand stack of a single script.
const MaxStackSlots = 1 << 16

// Interpreter executes NCS programs. An Interpreter holds no per-script
// state and may run several scripts, one after another or concurrently.
type Interpreter struct {
	functions *nwscript.FunctionTable
	maxSteps  int
	log       *slog.Logger
	dumper    *spew.ConfigState
}

type options struct {
	log      *slog.Logger
	maxSteps int
}

// Option is a functional option for configuring the Interpreter and the
// Runtime.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMaxSteps limits the number of instructions a single run may execute.
// Zero means no limit.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

func buildOptions(opts []Option) options {
	o := options{log: logger.Channel(logger.ChannelScripts)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewInterpreter creates an interpreter dispatching engine calls to table.
// A nil table answers every call with the unknown-function stub.
func NewInterpreter(table *nwscript.FunctionTable, opts ...Option) *Interpreter {
	o := buildOptions(opts)
	in := &Interpreter{
		functions: table,
		maxSteps:  o.maxSteps,
		log:       o.log,
		dumper: &spew.ConfigState{
			Indent:                  "  ",
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			DisableMethods:          true,
		},
	}
	if in.functions == nil {
		in.functions, _ = nwscript.NewFunctionTable(nil, nil, nil, nwscript.WithTableLogger(in.log))
	}
	return in
}

// Functions returns the engine function table.
func (in *Interpreter) Functions() *nwscript.FunctionTable {
	return in.functions
}

// Invocation names the script being run and the objects it runs for.
type Invocation struct {
	Script    string
	Caller    nwscript.ObjectID
	Triggerer nwscript.ObjectID

	// Args are pushed before the first instruction, first argument deepest.
	// Resume ignores them.
	Args []nwscript.Variable
}

// Run executes a program from its first instruction. It returns the value
// left on top of the stack when the script ends, or Unset.
func (in *Interpreter) Run(ctx context.Context, prog *opcode.Program, inv Invocation) (nwscript.Variable, error) {
	m := in.newMachine(ctx, prog, inv)
	for _, arg := range inv.Args {
		var err error
		if arg.Kind() == nwscript.KindVector {
			v, _ := arg.Vector()
			err = m.pushVector(v)
		} else {
			err = m.push(arg)
		}
		if err != nil {
			return nwscript.Unset(), in.fault(m, err)
		}
	}
	return in.execute(ctx, m)
}

// Resume executes a saved script state: globals are restored below BP,
// locals above it, and execution starts at the saved offset.
func (in *Interpreter) Resume(ctx context.Context, prog *opcode.Program, state nwscript.ScriptState, inv Invocation) (nwscript.Variable, error) {
	m := in.newMachine(ctx, prog, inv)

	pc, ok := prog.At(state.Offset)
	if !ok {
		err := nwscript.NewInterpreterFault("resume offset %08X is not an instruction", state.Offset)
		return nwscript.Unset(), nwscript.WithLocation(err, inv.Script, int(state.Offset))
	}
	m.pc = pc
	m.stack = append(m.stack, state.Globals...)
	m.bp = len(m.stack)
	m.stack = append(m.stack, state.Locals...)

	return in.execute(ctx, m)
}

func (in *Interpreter) newMachine(ctx context.Context, prog *opcode.Program, inv Invocation) *machine {
	return &machine{
		ctx:       ctx,
		log:       in.log,
		prog:      prog,
		functions: in.functions,
		inv:       inv,
		stack:     make([]nwscript.Variable, 0, 64),
	}
}

func (in *Interpreter) execute(ctx context.Context, m *machine) (nwscript.Variable, error) {
	steps := 0
	for !m.done {
		if err := ctx.Err(); err != nil {
			return nwscript.Unset(), err
		}
		if in.maxSteps > 0 && steps >= in.maxSteps {
			err := nwscript.NewInterpreterFault("instruction budget of %d exhausted", in.maxSteps)
			return nwscript.Unset(), in.fault(m, err)
		}
		steps++

		if m.pc >= len(m.prog.Instructions) {
			break
		}
		if err := m.step(); err != nil {
			return nwscript.Unset(), in.fault(m, err)
		}
	}

	if len(m.stack) == 0 {
		return nwscript.Unset(), nil
	}
	return m.stack[len(m.stack)-1], nil
}

// fault annotates err with the failing location and dumps the machine
// state at debug level.
func (in *Interpreter) fault(m *machine, err error) error {
	addr := -1
	if m.pc < len(m.prog.Instructions) {
		addr = int(m.prog.Instructions[m.pc].Address)
	}
	err = nwscript.WithLocation(err, m.inv.Script, addr)
	if in.log.Enabled(context.Background(), slog.LevelDebug) {
		in.log.Debug("Script fault", "error", err, "state", in.dumper.Sdump(m.snapshot()))
	}
	return err
}
