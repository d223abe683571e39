// Package nwscript provides the value model shared by the NWScript virtual
// machine and the engine functions it calls:
// - Variable, a tagged script-visible value
// - ObjectID handles into an externally owned object table
// - ScriptState snapshots used by deferred execution
// - FunctionContext and FunctionTable for engine-function dispatch
// - the runtime error taxonomy
package nwscript

import "fmt"

// Type is the declared type of a value, a parameter or a return slot.
type Type uint8

const (
	TypeVoid Type = iota
	TypeInt
	TypeFloat
	TypeString
	TypeObject
	TypeVector
	TypeEngineType
	TypeScriptState

	// TypeAny is a parameter type that accepts every kind unchanged.
	TypeAny
	// TypeFloatCoerced is a float parameter that also accepts an int
	// argument. Dispatch converts the int before the native runs.
	TypeFloatCoerced
)

var typeNames = [...]string{
	TypeVoid:         "void",
	TypeInt:          "int",
	TypeFloat:        "float",
	TypeString:       "string",
	TypeObject:       "object",
	TypeVector:       "vector",
	TypeEngineType:   "engine type",
	TypeScriptState:  "action",
	TypeAny:          "any",
	TypeFloatCoerced: "float (int accepted)",
}

// String returns the NWScript name of the type.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Kind returns the variable kind a value of this type has at runtime.
// Parameter-only types map to the kind they produce after dispatch.
func (t Type) Kind() Kind {
	switch t {
	case TypeInt:
		return KindInt
	case TypeFloat, TypeFloatCoerced:
		return KindFloat
	case TypeString:
		return KindString
	case TypeObject:
		return KindObject
	case TypeVector:
		return KindVector
	case TypeEngineType:
		return KindEngineType
	case TypeScriptState:
		return KindAction
	default:
		return KindUnset
	}
}

// Accepts reports whether a variable of kind k can be passed as a value of
// this type, possibly after coercion.
func (t Type) Accepts(k Kind) bool {
	switch t {
	case TypeAny:
		return k != KindUnset
	case TypeFloatCoerced:
		return k == KindFloat || k == KindInt
	case TypeVoid:
		return false
	default:
		return t.Kind() == k
	}
}

// Kind is the tag of a Variable.
type Kind uint8

const (
	KindUnset Kind = iota
	KindInt
	KindFloat
	KindString
	KindObject
	KindVector
	KindEngineType
	KindAction
)

var kindNames = [...]string{
	KindUnset:      "unset",
	KindInt:        "int",
	KindFloat:      "float",
	KindString:     "string",
	KindObject:     "object",
	KindVector:     "vector",
	KindEngineType: "engine type",
	KindAction:     "action",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ObjectID is a weak handle into the host's object table.
type ObjectID uint32

const (
	// ObjectInvalid is OBJECT_INVALID as scripts see it.
	ObjectInvalid ObjectID = 0x7F000000

	// ObjectSelfConstant is the value compiled scripts use for OBJECT_SELF.
	ObjectSelfConstant ObjectID = 0
	// ObjectInvalidConstant is the short OBJECT_INVALID constant some
	// compilers emit.
	ObjectInvalidConstant ObjectID = 1
)

// Valid reports whether the handle is not OBJECT_INVALID. It does not check
// liveness; use an ObjectTable for that.
func (id ObjectID) Valid() bool {
	return id != ObjectInvalid
}

// Object is the narrow capability every scriptable game object exposes.
// Engine functions type-assert for richer capabilities.
type Object interface {
	ID() ObjectID
	Tag() string
}

// ObjectTable resolves handles to live objects. The table is owned by the
// host; a false result means the object is gone or never existed.
type ObjectTable interface {
	Lookup(id ObjectID) (Object, bool)
}

// EngineType is an opaque engine-defined value such as an effect, event,
// location or talent. Index is the engine type slot (0-9) used by the
// bytecode's typed instructions.
type EngineType interface {
	EngineTypeIndex() int
}

// EngineTypeEqualer is implemented by engine types whose equality is not
// plain Go equality.
type EngineTypeEqualer interface {
	EqualEngineType(other EngineType) bool
}
