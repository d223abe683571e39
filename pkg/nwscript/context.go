package nwscript

import "context"

// FunctionContext is the per-call record handed to an engine function.
// Params has exactly the declared arity; trailing parameters the script did
// not pass hold their declared defaults.
type FunctionContext struct {
	id        uint32
	name      string
	signature FunctionSignature

	params          []Variable
	paramsSpecified int
	ret             Variable

	caller    ObjectID
	triggerer ObjectID
	script    string

	goctx context.Context
}

// NewFunctionContext creates a context for a call to the function with the
// given signature. Parameters start as the zero values of their types and
// the return slot as the zero value of the return type.
func NewFunctionContext(name string, sig FunctionSignature, caller, triggerer ObjectID, script string) *FunctionContext {
	ctx := &FunctionContext{
		id:        sig.ID,
		name:      name,
		signature: sig,
		params:    make([]Variable, len(sig.Params)),
		ret:       Zero(sig.Return),
		caller:    caller,
		triggerer: triggerer,
		script:    script,
	}
	for i, t := range sig.Params {
		ctx.params[i] = Zero(t)
	}
	return ctx
}

// Context returns the context of the running script. Functions that run
// other scripts pass it on so cancellation reaches nested runs.
func (c *FunctionContext) Context() context.Context {
	if c.goctx == nil {
		return context.Background()
	}
	return c.goctx
}

// ID returns the engine function ID.
func (c *FunctionContext) ID() uint32 { return c.id }

// Name returns the engine function name.
func (c *FunctionContext) Name() string { return c.name }

// Signature returns the declared signature of the called function.
func (c *FunctionContext) Signature() FunctionSignature { return c.signature }

// Params returns the parameters in declared order. The slice has the
// declared arity; callers must not grow it.
func (c *FunctionContext) Params() []Variable { return c.params }

// Param returns parameter i, or Unset when i is out of range.
func (c *FunctionContext) Param(i int) Variable {
	if i < 0 || i >= len(c.params) {
		return Unset()
	}
	return c.params[i]
}

// ParamsSpecified returns how many parameters the script actually passed.
func (c *FunctionContext) ParamsSpecified() int { return c.paramsSpecified }

// Return returns the return slot. It is Unset for void functions.
func (c *FunctionContext) Return() Variable { return c.ret }

// SetReturn stores the function result, checked against the declared return
// type.
func (c *FunctionContext) SetReturn(v Variable) error {
	if c.signature.Return == TypeVoid {
		return NewRuntimeErrorf(ErrorTypeMismatch, "%s: void function cannot return %s", c.name, v.Kind())
	}
	coerced, err := Coerce(v, c.signature.Return)
	if err != nil {
		return err
	}
	c.ret = coerced
	return nil
}

// Caller returns the handle of the object running the script (OBJECT_SELF).
func (c *FunctionContext) Caller() ObjectID { return c.caller }

// Triggerer returns the handle of the object that triggered the script.
func (c *FunctionContext) Triggerer() ObjectID { return c.triggerer }

// ScriptName returns the originating script's name. It is empty when the
// call did not come from a named script resource, e.g. a console call.
func (c *FunctionContext) ScriptName() string { return c.script }

// ParamInt returns parameter i as an int.
func (c *FunctionContext) ParamInt(i int) (int32, error) { return c.Param(i).Int() }

// ParamFloat returns parameter i as a float.
func (c *FunctionContext) ParamFloat(i int) (float32, error) { return c.Param(i).Float() }

// ParamString returns parameter i as a string.
func (c *FunctionContext) ParamString(i int) (string, error) { return c.Param(i).String() }

// ParamVector returns parameter i as a vector.
func (c *FunctionContext) ParamVector(i int) (Vector, error) { return c.Param(i).Vector() }

// ParamObject returns parameter i as an object handle, resolving the
// OBJECT_SELF constant to the caller.
func (c *FunctionContext) ParamObject(i int) (ObjectID, error) {
	id, err := c.Param(i).Object()
	if err != nil {
		return ObjectInvalid, err
	}
	if id == ObjectSelfConstant {
		return c.caller, nil
	}
	return id, nil
}

// ParamScriptState returns parameter i as a saved script state.
func (c *FunctionContext) ParamScriptState(i int) (ScriptState, error) {
	return c.Param(i).ScriptState()
}
