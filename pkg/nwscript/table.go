package nwscript

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zurustar/aurora-nwscript/pkg/logger"
)

const (
	// MaxParams is the largest arity an engine function may declare.
	MaxParams = 12
	// MaxDefaults is the largest number of trailing parameters that may
	// carry a default value.
	MaxDefaults = 11
)

// Function is a native engine function. It reads its parameters from ctx
// and stores its result with ctx.SetReturn. A returned error halts the
// calling script.
type Function func(ctx *FunctionContext) error

// FunctionPointer binds an engine function ID to its name and native
// implementation. A nil Func routes calls to the unimplemented stub.
type FunctionPointer struct {
	ID   uint32
	Name string
	Func Function
}

// FunctionSignature declares the return type and the ordered parameter
// types of an engine function.
type FunctionSignature struct {
	ID     uint32
	Return Type
	Params []Type
}

// FunctionDefaults holds the default values of an engine function's
// trailing parameters: Defaults[len(Defaults)-1] belongs to the last
// parameter.
type FunctionDefaults struct {
	ID       uint32
	Defaults []Variable
}

type function struct {
	name        string
	fn          Function
	sig         FunctionSignature
	defaults    []Variable
	implemented bool
}

// firstDefault returns the index of the first parameter with a default.
func (f *function) firstDefault() int {
	return len(f.sig.Params) - len(f.defaults)
}

// FunctionTable maps engine function IDs to their implementations,
// signatures and defaults. It is immutable after construction, so it may be
// shared between goroutines without locking.
type FunctionTable struct {
	functions map[uint32]*function

	// stubReturn is the return type of the stub that answers calls to IDs
	// the table does not know.
	stubReturn Type

	diagnostics *Diagnostics
	log         *slog.Logger
}

// TableOption is a functional option for configuring a FunctionTable.
type TableOption func(*FunctionTable)

// WithTableLogger sets a custom logger.
func WithTableLogger(log *slog.Logger) TableOption {
	return func(t *FunctionTable) {
		t.log = log
	}
}

// WithStubReturnType sets the return type reported for unknown function IDs.
// The default is TypeInt, whose zero value doubles as FALSE.
func WithStubReturnType(typ Type) TableOption {
	return func(t *FunctionTable) {
		t.stubReturn = typ
	}
}

// WithDiagnostics shares a diagnostics recorder between tables.
func WithDiagnostics(d *Diagnostics) TableOption {
	return func(t *FunctionTable) {
		t.diagnostics = d
	}
}

// NewFunctionTable joins the three per-title tables by function ID.
//
// Every pointer needs a signature. Signatures without a pointer are
// registered with the unimplemented stub. Defaults are optional but must
// refer to a known signature, fit the trailing parameters and match their
// types.
func NewFunctionTable(pointers []FunctionPointer, signatures []FunctionSignature, defaults []FunctionDefaults, opts ...TableOption) (*FunctionTable, error) {
	t := &FunctionTable{
		functions:  make(map[uint32]*function, len(signatures)),
		stubReturn: TypeInt,
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.diagnostics == nil {
		t.diagnostics = NewDiagnostics()
	}

	for _, sig := range signatures {
		if _, dup := t.functions[sig.ID]; dup {
			return nil, fmt.Errorf("duplicate signature for function %d", sig.ID)
		}
		if len(sig.Params) > MaxParams {
			return nil, fmt.Errorf("function %d declares %d parameters, maximum is %d", sig.ID, len(sig.Params), MaxParams)
		}
		for i, p := range sig.Params {
			if p == TypeVoid {
				return nil, fmt.Errorf("function %d: parameter %d is void", sig.ID, i)
			}
		}
		params := append([]Type(nil), sig.Params...)
		t.functions[sig.ID] = &function{
			name: fmt.Sprintf("function%d", sig.ID),
			sig:  FunctionSignature{ID: sig.ID, Return: sig.Return, Params: params},
		}
	}

	named := make(map[uint32]bool, len(pointers))
	for _, ptr := range pointers {
		f, ok := t.functions[ptr.ID]
		if !ok {
			return nil, fmt.Errorf("function %d (%s) has no signature", ptr.ID, ptr.Name)
		}
		if named[ptr.ID] {
			return nil, fmt.Errorf("duplicate pointer for function %d (%s)", ptr.ID, ptr.Name)
		}
		named[ptr.ID] = true
		if ptr.Name != "" {
			f.name = ptr.Name
		}
		if ptr.Func != nil {
			f.fn = ptr.Func
			f.implemented = true
		}
	}

	for _, def := range defaults {
		f, ok := t.functions[def.ID]
		if !ok {
			return nil, fmt.Errorf("defaults for unknown function %d", def.ID)
		}
		if f.defaults != nil {
			return nil, fmt.Errorf("duplicate defaults for function %d (%s)", def.ID, f.name)
		}
		if len(def.Defaults) > MaxDefaults || len(def.Defaults) > len(f.sig.Params) {
			return nil, fmt.Errorf("function %d (%s): %d defaults for %d parameters", def.ID, f.name, len(def.Defaults), len(f.sig.Params))
		}
		first := len(f.sig.Params) - len(def.Defaults)
		f.defaults = make([]Variable, len(def.Defaults))
		for i, v := range def.Defaults {
			typ := f.sig.Params[first+i]
			cv, err := Coerce(v, typ)
			if err != nil {
				return nil, fmt.Errorf("function %d (%s): default for parameter %d is %s, want %s", def.ID, f.name, first+i, v.Kind(), typ)
			}
			f.defaults[i] = cv
		}
	}

	for id, f := range t.functions {
		if !f.implemented {
			t.log.Debug("Engine function unimplemented", "id", id, "name", f.name)
		}
	}

	return t, nil
}

// Len returns the number of registered functions.
func (t *FunctionTable) Len() int {
	return len(t.functions)
}

// IDs returns all registered IDs in ascending order.
func (t *FunctionTable) IDs() []uint32 {
	ids := make([]uint32, 0, len(t.functions))
	for id := range t.functions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Has reports whether the ID is registered.
func (t *FunctionTable) Has(id uint32) bool {
	_, ok := t.functions[id]
	return ok
}

// Signature returns the declared signature of a function.
func (t *FunctionTable) Signature(id uint32) (FunctionSignature, bool) {
	f, ok := t.functions[id]
	if !ok {
		return FunctionSignature{}, false
	}
	return f.sig, true
}

// Name returns the name of a function, or "" if the ID is unknown.
func (t *FunctionTable) Name(id uint32) string {
	if f, ok := t.functions[id]; ok {
		return f.name
	}
	return ""
}

// Implemented reports whether the function has a native implementation.
func (t *FunctionTable) Implemented(id uint32) bool {
	f, ok := t.functions[id]
	return ok && f.implemented
}

// Defaults returns the declared default values of a function's trailing
// parameters.
func (t *FunctionTable) Defaults(id uint32) []Variable {
	if f, ok := t.functions[id]; ok {
		return append([]Variable(nil), f.defaults...)
	}
	return nil
}

// StubReturnType returns the return type used for unknown IDs.
func (t *FunctionTable) StubReturnType() Type {
	return t.stubReturn
}

// Diagnostics returns the recorder of stubbed calls.
func (t *FunctionTable) Diagnostics() *Diagnostics {
	return t.diagnostics
}

// Call dispatches an engine function call.
//
// args are the actually passed arguments in declared parameter order. The
// returned context carries the result in its return slot. Unknown IDs and
// unimplemented functions never fail: they are recorded and answer with
// the zero value of their return type.
func (t *FunctionTable) Call(id uint32, args []Variable, caller, triggerer ObjectID, script string) (*FunctionContext, error) {
	return t.CallContext(context.Background(), id, args, caller, triggerer, script)
}

// CallContext is Call with the context of the running script attached to
// the FunctionContext.
func (t *FunctionTable) CallContext(goctx context.Context, id uint32, args []Variable, caller, triggerer ObjectID, script string) (*FunctionContext, error) {
	f, ok := t.functions[id]
	if !ok {
		sig := FunctionSignature{ID: id, Return: t.stubReturn}
		ctx := NewFunctionContext("", sig, caller, triggerer, script)
		ctx.paramsSpecified = len(args)
		ctx.goctx = goctx
		t.diagnostics.record(t.log, id, "", script, true)
		return ctx, nil
	}

	ctx, err := t.prepare(f, args, caller, triggerer, script)
	if err != nil {
		return nil, err
	}
	ctx.goctx = goctx

	if !f.implemented {
		t.diagnostics.record(t.log, id, f.name, script, false)
		return ctx, nil
	}

	if err := f.fn(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Prepare builds the call context without invoking the native function.
// It performs the arity, default and type checks of Call.
func (t *FunctionTable) Prepare(id uint32, args []Variable, caller, triggerer ObjectID, script string) (*FunctionContext, error) {
	f, ok := t.functions[id]
	if !ok {
		return nil, NewUnknownFunctionError(id)
	}
	return t.prepare(f, args, caller, triggerer, script)
}

func (t *FunctionTable) prepare(f *function, args []Variable, caller, triggerer ObjectID, script string) (*FunctionContext, error) {
	arity := len(f.sig.Params)
	if len(args) > arity {
		return nil, NewArityError(f.name, len(args), arity)
	}

	ctx := NewFunctionContext(f.name, f.sig, caller, triggerer, script)
	ctx.paramsSpecified = len(args)

	first := f.firstDefault()
	for i := len(args); i < arity; i++ {
		if i < first {
			return nil, NewMissingDefaultError(f.name, i)
		}
		ctx.params[i] = f.defaults[i-first]
	}

	for i, arg := range args {
		v, err := Coerce(arg, f.sig.Params[i])
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %d: %w", f.name, i, err)
		}
		ctx.params[i] = v
	}

	return ctx, nil
}

// Diagnostics records calls that were answered by the compatibility stub.
type Diagnostics struct {
	mu      sync.Mutex
	calls   map[uint32]int
	unknown map[uint32]bool
	warn    rate.Sometimes
}

// NewDiagnostics creates an empty recorder. Warnings are logged for the
// first few stubbed calls and then at most once per interval.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		calls:   make(map[uint32]int),
		unknown: make(map[uint32]bool),
		warn:    rate.Sometimes{First: 8, Interval: 5 * time.Second},
	}
}

func (d *Diagnostics) record(log *slog.Logger, id uint32, name, script string, unknown bool) {
	d.mu.Lock()
	d.calls[id]++
	if unknown {
		d.unknown[id] = true
	}
	count := d.calls[id]
	d.mu.Unlock()

	d.warn.Do(func() {
		if unknown {
			log.Warn("Unknown engine function called", "id", id, "script", script, "calls", count)
		} else {
			log.Warn("Unimplemented engine function called", "id", id, "name", name, "script", script, "calls", count)
		}
	})
}

// Calls returns how often the stub answered for the given ID.
func (d *Diagnostics) Calls(id uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[id]
}

// Unknown reports whether the ID was called without being registered.
func (d *Diagnostics) Unknown(id uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unknown[id]
}

// Snapshot returns a copy of all recorded call counts.
func (d *Diagnostics) Snapshot() map[uint32]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uint32]int, len(d.calls))
	for id, n := range d.calls {
		out[id] = n
	}
	return out
}
