package vm

import (
	"context"
	"fmt"
	"testing"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
)

// Function IDs used by the test table.
const (
	fnRecord      = 1
	fnDelay       = 7
	fnAssign      = 6
	fnExecute     = 8
	fnVectorSum   = 20
	fnMakeVector  = 21
	fnObjectSelf  = 22
	fnScaleFloat  = 23
	fnUnknownTest = 9999
)

// memLoader serves programs from memory.
type memLoader map[string]*opcode.Program

func (l memLoader) Load(name string) (*opcode.Program, error) {
	p, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("script %q not found", name)
	}
	return p, nil
}

// objectSet is an object table of plain handles.
type objectSet map[nwscript.ObjectID]bool

type testObject nwscript.ObjectID

func (o testObject) ID() nwscript.ObjectID { return nwscript.ObjectID(o) }
func (o testObject) Tag() string { return "" }

func (s objectSet) Lookup(id nwscript.ObjectID) (nwscript.Object, bool) {
	if !s[id] {
		return nil, false
	}
	return testObject(id), true
}

// recorder collects values passed to the record function.
type recorder struct {
	values  []nwscript.Variable
	callers []nwscript.ObjectID
}

// newTestTable builds a small engine function table. Deferred commands go
// to rt, which may be nil for interpreter-only tests.
func newTestTable(t *testing.T, rec *recorder, rt func() *Runtime) *nwscript.FunctionTable {
	t.Helper()

	pointers := []nwscript.FunctionPointer{
		{ID: fnRecord, Name: "Record", Func: func(ctx *nwscript.FunctionContext) error {
			rec.values = append(rec.values, ctx.Param(0))
			rec.callers = append(rec.callers, ctx.Caller())
			return nil
		}},
		{ID: fnDelay, Name: "DelayCommand", Func: func(ctx *nwscript.FunctionContext) error {
			delay, err := ctx.ParamFloat(0)
			if err != nil {
				return err
			}
			state, err := ctx.ParamScriptState(1)
			if err != nil {
				return err
			}
			if ctx.ScriptName() == "" {
				return nwscript.NewInvalidScriptContextError(ctx.Name())
			}
			return rt().DelayScript(ctx.ScriptName(), state, ctx.Caller(), ctx.Triggerer(), uint32(delay*1000))
		}},
		{ID: fnAssign, Name: "AssignCommand", Func: func(ctx *nwscript.FunctionContext) error {
			target, err := ctx.ParamObject(0)
			if err != nil {
				return err
			}
			state, err := ctx.ParamScriptState(1)
			if err != nil {
				return err
			}
			if ctx.ScriptName() == "" {
				return nwscript.NewInvalidScriptContextError(ctx.Name())
			}
			return rt().DelayScript(ctx.ScriptName(), state, target, ctx.Triggerer(), 0)
		}},
		{ID: fnExecute, Name: "ExecuteScript", Func: func(ctx *nwscript.FunctionContext) error {
			name, err := ctx.ParamString(0)
			if err != nil {
				return err
			}
			// Nested failures are dropped, as the engine function logs them.
			_ = rt().ExecuteScript(ctx.Context(), name, ctx.Caller(), ctx.Triggerer())
			return nil
		}},
		{ID: fnVectorSum, Name: "VectorSum", Func: func(ctx *nwscript.FunctionContext) error {
			v, err := ctx.ParamVector(0)
			if err != nil {
				return err
			}
			return ctx.SetReturn(nwscript.NewFloat(v[0]*100 + v[1]*10 + v[2]))
		}},
		{ID: fnMakeVector, Name: "Vector", Func: func(ctx *nwscript.FunctionContext) error {
			x, _ := ctx.ParamFloat(0)
			y, _ := ctx.ParamFloat(1)
			z, _ := ctx.ParamFloat(2)
			return ctx.SetReturn(nwscript.NewVector(x, y, z))
		}},
		{ID: fnObjectSelf, Name: "GetSelf", Func: func(ctx *nwscript.FunctionContext) error {
			id, err := ctx.ParamObject(0)
			if err != nil {
				return err
			}
			return ctx.SetReturn(nwscript.NewObject(id))
		}},
		{ID: fnScaleFloat, Name: "Scale", Func: func(ctx *nwscript.FunctionContext) error {
			n, _ := ctx.ParamInt(0)
			f, _ := ctx.ParamFloat(1)
			return ctx.SetReturn(nwscript.NewFloat(float32(n) * f))
		}},
	}
	signatures := []nwscript.FunctionSignature{
		{ID: fnRecord, Return: nwscript.TypeVoid, Params: []nwscript.Type{nwscript.TypeAny}},
		{ID: fnDelay, Return: nwscript.TypeVoid, Params: []nwscript.Type{nwscript.TypeFloat, nwscript.TypeScriptState}},
		{ID: fnAssign, Return: nwscript.TypeVoid, Params: []nwscript.Type{nwscript.TypeObject, nwscript.TypeScriptState}},
		{ID: fnExecute, Return: nwscript.TypeVoid, Params: []nwscript.Type{nwscript.TypeString}},
		{ID: fnVectorSum, Return: nwscript.TypeFloat, Params: []nwscript.Type{nwscript.TypeVector}},
		{ID: fnMakeVector, Return: nwscript.TypeVector, Params: []nwscript.Type{nwscript.TypeFloat, nwscript.TypeFloat, nwscript.TypeFloat}},
		{ID: fnObjectSelf, Return: nwscript.TypeObject, Params: []nwscript.Type{nwscript.TypeObject}},
		{ID: fnScaleFloat, Return: nwscript.TypeFloat, Params: []nwscript.Type{nwscript.TypeInt, nwscript.TypeFloat}},
	}
	defaults := []nwscript.FunctionDefaults{
		{ID: fnObjectSelf, Defaults: []nwscript.Variable{nwscript.NewObject(nwscript.ObjectSelfConstant)}},
		{ID: fnScaleFloat, Defaults: []nwscript.Variable{nwscript.NewFloat(1.0)}},
	}

	table, err := nwscript.NewFunctionTable(pointers, signatures, defaults)
	if err != nil {
		t.Fatalf("NewFunctionTable: %v", err)
	}
	return table
}

// assemble builds a program with fn and decodes it.
func assemble(t *testing.T, fn func(b *opcode.Builder)) *opcode.Program {
	t.Helper()
	b := opcode.NewBuilder()
	fn(b)
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	p, err := opcode.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

// run executes a program with a fresh interpreter and the test table.
func run(t *testing.T, rec *recorder, prog *opcode.Program) (nwscript.Variable, error) {
	t.Helper()
	in := NewInterpreter(newTestTable(t, rec, nil))
	return in.Run(context.Background(), prog, Invocation{Script: "test", Caller: 100, Triggerer: 200})
}

// deferBlock emits a STORESTATE that saves the top sizeSP bytes, a JMP over
// the deferred block built by body, and the block itself ending in RETN.
func deferBlock(b *opcode.Builder, label string, sizeBP, sizeSP int32, body func(b *opcode.Builder)) {
	b.StoreState(sizeBP, sizeSP)
	b.Jump(opcode.JMP, label)
	body(b)
	b.Retn()
	b.Label(label)
}
