package vm

import (
	"context"
	"log/slog"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
)

// slotSize is the size of one stack slot in bytecode offsets.
const slotSize = 4

// machine is the state of one script execution.
type machine struct {
	ctx       context.Context
	log       *slog.Logger
	prog      *opcode.Program
	functions *nwscript.FunctionTable
	inv       Invocation

	stack   []nwscript.Variable
	bp      int
	returns []int // instruction indices
	pc      int
	done    bool

	// state is the snapshot taken by the last STORESTATE, consumed by the
	// next ACTION that takes an action parameter.
	state *nwscript.ScriptState
}

func (m *machine) push(v nwscript.Variable) error {
	if len(m.stack) >= MaxStackSlots {
		return nwscript.NewInterpreterFault("stack overflow")
	}
	m.stack = append(m.stack, v)
	return nil
}

func (m *machine) pushVector(v nwscript.Vector) error {
	for _, c := range v {
		if err := m.push(nwscript.NewFloat(c)); err != nil {
			return err
		}
	}
	return nil
}

func (m *machine) pop() (nwscript.Variable, error) {
	if len(m.stack) == 0 {
		return nwscript.Unset(), nwscript.NewInterpreterFault("stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *machine) popInt() (int32, error) {
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	return v.Int()
}

func (m *machine) popFloat() (float32, error) {
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	return v.Float()
}

func (m *machine) popString() (string, error) {
	v, err := m.pop()
	if err != nil {
		return "", err
	}
	return v.String()
}

// popVector pops z, y and x, in that order.
func (m *machine) popVector() (nwscript.Vector, error) {
	var out nwscript.Vector
	for i := 2; i >= 0; i-- {
		f, err := m.popFloat()
		if err != nil {
			return nwscript.Vector{}, err
		}
		out[i] = f
	}
	return out, nil
}

// popN removes and returns the top n slots in stack order.
func (m *machine) popN(n int) ([]nwscript.Variable, error) {
	if n < 0 || n > len(m.stack) {
		return nil, nwscript.NewInterpreterFault("stack underflow popping %d slots", n)
	}
	start := len(m.stack) - n
	out := append([]nwscript.Variable(nil), m.stack[start:]...)
	m.stack = m.stack[:start]
	return out, nil
}

// slots converts a byte size into a slot count.
func slots(size int32) (int, error) {
	if size < 0 || size%slotSize != 0 {
		return 0, nwscript.NewInterpreterFault("invalid stack size %d", size)
	}
	return int(size / slotSize), nil
}

// window resolves a byte offset relative to base (SP or BP) and a byte size
// into a slot range inside the stack.
func (m *machine) window(base int, offset, size int32) (int, int, error) {
	if offset%slotSize != 0 {
		return 0, 0, nwscript.NewInterpreterFault("unaligned stack offset %d", offset)
	}
	n, err := slots(size)
	if err != nil {
		return 0, 0, err
	}
	start := base + int(offset/slotSize)
	if start < 0 || start+n > len(m.stack) {
		return 0, 0, nwscript.NewInterpreterFault("stack access %d+%d out of range (%d slots)", start, n, len(m.stack))
	}
	return start, n, nil
}

// copyTop pushes copies of the slots at offset from base.
func (m *machine) copyTop(base int, offset, size int32) error {
	start, n, err := m.window(base, offset, size)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := m.push(m.stack[start+i]); err != nil {
			return err
		}
	}
	return nil
}

// copyDown overwrites the slots at offset from base with the top of stack.
func (m *machine) copyDown(base int, offset, size int32) error {
	start, n, err := m.window(base, offset, size)
	if err != nil {
		return err
	}
	if n > len(m.stack) {
		return nwscript.NewInterpreterFault("stack underflow copying %d slots", n)
	}
	copy(m.stack[start:start+n], m.stack[len(m.stack)-n:])
	return nil
}

// addInt adds delta to the int slot at offset from base.
func (m *machine) addInt(base int, offset int32, delta int32) error {
	start, _, err := m.window(base, offset, slotSize)
	if err != nil {
		return err
	}
	i, err := m.stack[start].Int()
	if err != nil {
		return err
	}
	m.stack[start] = nwscript.NewInt(i + delta)
	return nil
}

// destruct removes size bytes from the top of stack, keeping sizeKeep bytes
// found offsetKeep bytes into the removed region.
func (m *machine) destruct(size, offsetKeep, sizeKeep int32) error {
	n, err := slots(size)
	if err != nil {
		return err
	}
	keepOff, err := slots(offsetKeep)
	if err != nil {
		return err
	}
	keepN, err := slots(sizeKeep)
	if err != nil {
		return err
	}
	if n > len(m.stack) || keepOff+keepN > n {
		return nwscript.NewInterpreterFault("invalid destruct %d/%d/%d", size, offsetKeep, sizeKeep)
	}
	start := len(m.stack) - n
	kept := append([]nwscript.Variable(nil), m.stack[start+keepOff:start+keepOff+keepN]...)
	m.stack = append(m.stack[:start], kept...)
	return nil
}

// snapshot is the debug view of a machine.
type snapshot struct {
	Script  string
	PC      int
	BP      int
	Stack   []string
	Returns []int
}

func (m *machine) snapshot() snapshot {
	s := snapshot{Script: m.inv.Script, PC: m.pc, BP: m.bp, Returns: m.returns}
	for _, v := range m.stack {
		s.Stack = append(s.Stack, v.Repr())
	}
	return s
}
