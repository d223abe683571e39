package functions

import (
	"context"
	"bytes"
	"errors"
	"testing"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/objects"
)

const testScript = "k_test"

type scheduled struct {
	script    string
	state     nwscript.ScriptState
	target    nwscript.ObjectID
	triggerer nwscript.ObjectID
	delayMs   uint32
}

type executed struct {
	name      string
	caller    nwscript.ObjectID
	triggerer nwscript.ObjectID
}

type fakeScheduler struct {
	delayed  []scheduled
	executed []executed
	err      error
}

func (s *fakeScheduler) DelayScript(script string, state nwscript.ScriptState, target, triggerer nwscript.ObjectID, delayMs uint32) error {
	s.delayed = append(s.delayed, scheduled{script, state, target, triggerer, delayMs})
	return nil
}

func (s *fakeScheduler) ExecuteScript(_ context.Context, name string, caller, triggerer nwscript.ObjectID) error {
	s.executed = append(s.executed, executed{name, caller, triggerer})
	return s.err
}

type fakeTalk map[uint32]string

func (t fakeTalk) String(strRef uint32, feminine bool) (string, bool) {
	if feminine {
		if s, ok := t[strRef|0x80000000]; ok {
			return s, true
		}
	}
	s, ok := t[strRef]
	return s, ok
}

// env is an object table with a module, a PC creature and a door.
type env struct {
	objects *objects.Table
	module  *objects.Object
	pc      *objects.Object
	door    *objects.Object
	sched   *fakeScheduler
	console *bytes.Buffer
	f       *Functions
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	e := &env{objects: objects.NewTable(), sched: &fakeScheduler{}, console: &bytes.Buffer{}}
	var err error
	if e.module, err = e.objects.Create(objects.KindModule, "mod"); err != nil {
		t.Fatal(err)
	}
	if e.pc, err = e.objects.Create(objects.KindCreature, "player"); err != nil {
		t.Fatal(err)
	}
	e.pc.SetPC(true)
	if e.door, err = e.objects.Create(objects.KindDoor, "door_01"); err != nil {
		t.Fatal(err)
	}
	base := []Option{
		WithObjects(e.objects),
		WithModule(e.objects),
		WithScheduler(e.sched),
		WithConsole(e.console),
		WithSeed(1),
	}
	e.f = New(append(base, opts...)...)
	return e
}

// callAs calls the catalog function name with caller as OBJECT_SELF.
func (e *env) callAs(t *testing.T, caller nwscript.ObjectID, name string, args ...nwscript.Variable) (*nwscript.FunctionContext, error) {
	t.Helper()
	table, err := e.f.Table([]Binding{Bind(1, name)})
	if err != nil {
		t.Fatalf("Table(%s): %v", name, err)
	}
	return table.Call(1, args, caller, nwscript.ObjectInvalid, testScript)
}

// call calls name as the PC and returns its result.
func (e *env) call(t *testing.T, name string, args ...nwscript.Variable) nwscript.Variable {
	t.Helper()
	ctx, err := e.callAs(t, e.pc.ID(), name, args...)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return ctx.Return()
}

func wantInt(t *testing.T, v nwscript.Variable, want int32) {
	t.Helper()
	got, err := v.Int()
	if err != nil || got != want {
		t.Errorf("got %s, want int %d", v.Repr(), want)
	}
}

func wantString(t *testing.T, v nwscript.Variable, want string) {
	t.Helper()
	got, err := v.String()
	if err != nil || got != want {
		t.Errorf("got %s, want string %q", v.Repr(), want)
	}
}

func wantObject(t *testing.T, v nwscript.Variable, want nwscript.ObjectID) {
	t.Helper()
	got, err := v.Object()
	if err != nil || got != want {
		t.Errorf("got %s, want object %08x", v.Repr(), uint32(want))
	}
}

var (
	vInt    = nwscript.NewInt
	vString = nwscript.NewString
	vObject = nwscript.NewObject
	vFloat  = nwscript.NewFloat
)

func TestCatalogBuildsTable(t *testing.T) {
	names := Names()
	if len(names) == 0 {
		t.Fatal("empty catalog")
	}
	bindings := make([]Binding, len(names))
	for n, name := range names {
		bindings[n] = Bind(uint32(n), name)
	}
	table, err := New().Table(bindings)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	for n, name := range names {
		if !table.Implemented(uint32(n)) {
			t.Errorf("%s is not implemented", name)
		}
		if table.Name(uint32(n)) != name {
			t.Errorf("Name(%d) = %q, want %q", n, table.Name(uint32(n)), name)
		}
	}
}

func TestTableUnknownName(t *testing.T) {
	_, err := New().Table([]Binding{Bind(7, "NoSuchFunction")})
	if err == nil {
		t.Fatal("expected error for unknown native")
	}
}

func TestTableDeclaredStub(t *testing.T) {
	f := New()
	table, err := f.Table([]Binding{
		Declare(10, "SetFacing", nwscript.TypeVoid, nwscript.TypeFloat),
		Declare(16, "GetTimeHour", nwscript.TypeInt),
		Declare(20, "Stubbed", nwscript.TypeInt, nwscript.TypeInt).WithDefaults(vInt(3)),
	})
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if table.Implemented(16) {
		t.Error("declared function should be a stub")
	}
	ctx, err := table.Call(16, nil, 1, nwscript.ObjectInvalid, testScript)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	wantInt(t, ctx.Return(), 0)
	if table.Diagnostics().Calls(16) != 1 {
		t.Errorf("stub call not recorded")
	}

	ctx, err = table.Call(20, nil, 1, nwscript.ObjectInvalid, testScript)
	if err != nil {
		t.Fatalf("Call with default: %v", err)
	}
	wantInt(t, ctx.Param(0), 3)
}

func TestTableDefaults(t *testing.T) {
	e := newEnv(t)
	e.pc.SetMaxHitPoints(30)
	e.pc.SetCurrentHitPoints(12)

	// OBJECT_SELF default resolves to the caller.
	wantInt(t, e.call(t, "GetCurrentHitPoints"), 12)
	wantInt(t, e.call(t, "GetMaxHitPoints"), 30)

	ctx, err := e.callAs(t, e.pc.ID(), "FloatToString", vFloat(2))
	if err != nil {
		t.Fatal(err)
	}
	if ctx.ParamsSpecified() != 1 {
		t.Errorf("ParamsSpecified = %d, want 1", ctx.ParamsSpecified())
	}
	wantInt(t, ctx.Param(1), DefaultFloatWidth)
	wantInt(t, ctx.Param(2), DefaultFloatDecimals)
}

func TestTableArgumentErrors(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		fn   string
		args []nwscript.Variable
		want error
	}{
		{"too many", "IntToString", []nwscript.Variable{vInt(1), vInt(2)}, nwscript.ErrArity},
		{"missing required", "GetStringLeft", []nwscript.Variable{vString("a")}, nwscript.ErrMissingDefault},
		{"wrong type", "IntToString", []nwscript.Variable{vString("1")}, nwscript.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.callAs(t, e.pc.ID(), tt.fn, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	n, ok := Lookup("DelayCommand")
	if !ok {
		t.Fatal("DelayCommand missing")
	}
	if n.Return != nwscript.TypeVoid || len(n.Params) != 2 || n.Params[1] != nwscript.TypeScriptState {
		t.Errorf("DelayCommand signature = %v %v", n.Return, n.Params)
	}
	if _, ok := Lookup("delaycommand"); ok {
		t.Error("lookup should be case sensitive")
	}
}
