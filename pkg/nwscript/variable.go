package nwscript

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f32"
)

// Vector is the NWScript vector payload.
type Vector = f32.Vec3

// Variable is a tagged script-visible value. The zero Variable is Unset.
// Variables are plain values and may be copied freely.
type Variable struct {
	kind   Kind
	i      int32
	f      float32
	s      string
	o      ObjectID
	v      Vector
	engine EngineType
	state  *ScriptState
}

// Unset returns the empty variable, used as the return slot of void functions.
func Unset() Variable { return Variable{} }

// NewInt creates an int variable.
func NewInt(i int32) Variable { return Variable{kind: KindInt, i: i} }

// NewBool creates an int variable holding TRUE (1) or FALSE (0).
func NewBool(b bool) Variable {
	if b {
		return NewInt(1)
	}
	return NewInt(0)
}

// NewFloat creates a float variable.
func NewFloat(f float32) Variable { return Variable{kind: KindFloat, f: f} }

// NewString creates a string variable.
func NewString(s string) Variable { return Variable{kind: KindString, s: s} }

// NewObject creates an object variable.
func NewObject(id ObjectID) Variable { return Variable{kind: KindObject, o: id} }

// NewVector creates a vector variable.
func NewVector(x, y, z float32) Variable {
	return Variable{kind: KindVector, v: Vector{x, y, z}}
}

// NewEngineType creates an engine type variable. A nil payload is the
// engine type's zero value.
func NewEngineType(e EngineType) Variable { return Variable{kind: KindEngineType, engine: e} }

// NewScriptState creates an action variable holding a copy of state.
func NewScriptState(state ScriptState) Variable {
	c := state.Clone()
	return Variable{kind: KindAction, state: &c}
}

// Zero returns the zero value of a declared type. Void and the
// parameter-only TypeAny yield Unset.
func Zero(t Type) Variable {
	switch t.Kind() {
	case KindInt:
		return NewInt(0)
	case KindFloat:
		return NewFloat(0)
	case KindString:
		return NewString("")
	case KindObject:
		return NewObject(ObjectInvalid)
	case KindVector:
		return NewVector(0, 0, 0)
	case KindEngineType:
		return NewEngineType(nil)
	case KindAction:
		return NewScriptState(ScriptState{})
	default:
		return Unset()
	}
}

// Kind returns the variable's tag.
func (v Variable) Kind() Kind { return v.kind }

// IsUnset reports whether the variable holds no value.
func (v Variable) IsUnset() bool { return v.kind == KindUnset }

func (v Variable) expect(k Kind) error {
	if v.kind != k {
		return NewTypeMismatchError(k, v.kind)
	}
	return nil
}

// Int returns the int payload.
func (v Variable) Int() (int32, error) {
	if err := v.expect(KindInt); err != nil {
		return 0, err
	}
	return v.i, nil
}

// Float returns the float payload.
func (v Variable) Float() (float32, error) {
	if err := v.expect(KindFloat); err != nil {
		return 0, err
	}
	return v.f, nil
}

// String returns the string payload. Use Repr for a printable rendering
// of any kind.
func (v Variable) String() (string, error) {
	if err := v.expect(KindString); err != nil {
		return "", err
	}
	return v.s, nil
}

// Object returns the object handle payload.
func (v Variable) Object() (ObjectID, error) {
	if err := v.expect(KindObject); err != nil {
		return ObjectInvalid, err
	}
	return v.o, nil
}

// Vector returns the vector payload.
func (v Variable) Vector() (Vector, error) {
	if err := v.expect(KindVector); err != nil {
		return Vector{}, err
	}
	return v.v, nil
}

// EngineType returns the engine type payload, which may be nil.
func (v Variable) EngineType() (EngineType, error) {
	if err := v.expect(KindEngineType); err != nil {
		return nil, err
	}
	return v.engine, nil
}

// ScriptState returns a copy of the saved script state.
func (v Variable) ScriptState() (ScriptState, error) {
	if err := v.expect(KindAction); err != nil {
		return ScriptState{}, err
	}
	if v.state == nil {
		return ScriptState{}, nil
	}
	return v.state.Clone(), nil
}

// Truth reports whether the variable is true-equivalent for a conditional
// jump. Only ints are boolean-convertible.
func (v Variable) Truth() (bool, error) {
	i, err := v.Int()
	if err != nil {
		return false, err
	}
	return i != 0, nil
}

// Equal compares two variables. Variables of different kinds are never equal.
func (v Variable) Equal(o Variable) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUnset:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(float64(v.f)) && math.IsNaN(float64(o.f)))
	case KindString:
		return v.s == o.s
	case KindObject:
		return v.o == o.o
	case KindVector:
		return v.v == o.v
	case KindEngineType:
		return engineTypesEqual(v.engine, o.engine)
	case KindAction:
		a, b := v.state, o.state
		if a == nil || b == nil {
			return (a == nil || a.Empty()) && (b == nil || b.Empty())
		}
		return a.Equal(*b)
	}
	return false
}

func engineTypesEqual(a, b EngineType) (eq bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if e, ok := a.(EngineTypeEqualer); ok {
		return e.EqualEngineType(b)
	}
	defer func() {
		// Uncomparable dynamic types are simply unequal.
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// Repr renders the variable for logs and debug output.
func (v Variable) Repr() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindObject:
		return fmt.Sprintf("object(0x%08X)", uint32(v.o))
	case KindVector:
		return fmt.Sprintf("[%g, %g, %g]", v.v[0], v.v[1], v.v[2])
	case KindEngineType:
		if v.engine == nil {
			return "engine(nil)"
		}
		return fmt.Sprintf("engine%d(%v)", v.engine.EngineTypeIndex(), v.engine)
	case KindAction:
		if v.state == nil {
			return "action(empty)"
		}
		return fmt.Sprintf("action(@%08X)", v.state.Offset)
	default:
		return "unset"
	}
}

// Coerce converts v to the runtime kind of parameter type t. Only the
// declared coercions are performed; anything else is a TypeMismatch.
func Coerce(v Variable, t Type) (Variable, error) {
	if !t.Accepts(v.kind) {
		return Variable{}, NewTypeMismatchError(t.Kind(), v.kind)
	}
	if t == TypeFloatCoerced && v.kind == KindInt {
		return NewFloat(float32(v.i)), nil
	}
	return v, nil
}
