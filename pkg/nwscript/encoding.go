package nwscript

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("nwscript: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EngineTypeCodec converts engine type payloads of one engine type index
// to and from bytes.
type EngineTypeCodec interface {
	EncodeEngineType(e EngineType) ([]byte, error)
	DecodeEngineType(data []byte) (EngineType, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = make(map[int]EngineTypeCodec)
)

// RegisterEngineTypeCodec installs the codec for an engine type index.
// Registering nil removes it.
func RegisterEngineTypeCodec(index int, codec EngineTypeCodec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	if codec == nil {
		delete(codecs, index)
		return
	}
	codecs[index] = codec
}

func lookupCodec(index int) EngineTypeCodec {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	return codecs[index]
}

// OpaqueEngineType is an engine type payload whose index has no registered
// codec. It carries the encoded bytes so they survive another round trip.
type OpaqueEngineType struct {
	Index int
	Data  []byte
}

// EngineTypeIndex implements EngineType.
func (o OpaqueEngineType) EngineTypeIndex() int { return o.Index }

// EqualEngineType implements EngineTypeEqualer.
func (o OpaqueEngineType) EqualEngineType(other EngineType) bool {
	p, ok := other.(OpaqueEngineType)
	return ok && p.Index == o.Index && bytes.Equal(p.Data, o.Data)
}

type wireEngine struct {
	Index int    `cbor:"i"`
	Data  []byte `cbor:"d,omitempty"`
}

type wireState struct {
	Offset  uint32         `cbor:"o"`
	Globals []wireVariable `cbor:"g,omitempty"`
	Locals  []wireVariable `cbor:"l,omitempty"`
}

type wireVariable struct {
	Kind   Kind        `cbor:"k"`
	Int    int32       `cbor:"i,omitempty"`
	Float  float32     `cbor:"f"`
	String string      `cbor:"s,omitempty"`
	Object uint32      `cbor:"o,omitempty"`
	Vector []float32   `cbor:"v,omitempty"`
	Engine *wireEngine `cbor:"e,omitempty"`
	State  *wireState  `cbor:"a,omitempty"`
}

func toWire(v Variable) (wireVariable, error) {
	w := wireVariable{Kind: v.kind}
	switch v.kind {
	case KindUnset:
	case KindInt:
		w.Int = v.i
	case KindFloat:
		w.Float = v.f
	case KindString:
		w.String = v.s
	case KindObject:
		w.Object = uint32(v.o)
	case KindVector:
		w.Vector = []float32{v.v[0], v.v[1], v.v[2]}
	case KindEngineType:
		if v.engine == nil {
			break
		}
		e, err := encodeEngine(v.engine)
		if err != nil {
			return wireVariable{}, err
		}
		w.Engine = e
	case KindAction:
		if v.state == nil {
			w.State = &wireState{}
			break
		}
		s, err := stateToWire(*v.state)
		if err != nil {
			return wireVariable{}, err
		}
		w.State = s
	default:
		return wireVariable{}, fmt.Errorf("nwscript: cannot encode variable of %s", v.kind)
	}
	return w, nil
}

func fromWire(w wireVariable) (Variable, error) {
	switch w.Kind {
	case KindUnset:
		return Unset(), nil
	case KindInt:
		return NewInt(w.Int), nil
	case KindFloat:
		return NewFloat(w.Float), nil
	case KindString:
		return NewString(w.String), nil
	case KindObject:
		return NewObject(ObjectID(w.Object)), nil
	case KindVector:
		if len(w.Vector) != 3 {
			return Variable{}, fmt.Errorf("nwscript: vector with %d components", len(w.Vector))
		}
		return NewVector(w.Vector[0], w.Vector[1], w.Vector[2]), nil
	case KindEngineType:
		if w.Engine == nil {
			return NewEngineType(nil), nil
		}
		e, err := decodeEngine(w.Engine)
		if err != nil {
			return Variable{}, err
		}
		return NewEngineType(e), nil
	case KindAction:
		if w.State == nil {
			return NewScriptState(ScriptState{}), nil
		}
		s, err := stateFromWire(*w.State)
		if err != nil {
			return Variable{}, err
		}
		return Variable{kind: KindAction, state: &s}, nil
	default:
		return Variable{}, fmt.Errorf("nwscript: unknown variable kind %d", w.Kind)
	}
}

func encodeEngine(e EngineType) (*wireEngine, error) {
	if o, ok := e.(OpaqueEngineType); ok {
		return &wireEngine{Index: o.Index, Data: append([]byte(nil), o.Data...)}, nil
	}
	index := e.EngineTypeIndex()
	codec := lookupCodec(index)
	if codec == nil {
		return nil, fmt.Errorf("nwscript: no codec registered for engine type %d (%T)", index, e)
	}
	data, err := codec.EncodeEngineType(e)
	if err != nil {
		return nil, fmt.Errorf("nwscript: encode engine type %d: %w", index, err)
	}
	return &wireEngine{Index: index, Data: data}, nil
}

func decodeEngine(w *wireEngine) (EngineType, error) {
	codec := lookupCodec(w.Index)
	if codec == nil {
		return OpaqueEngineType{Index: w.Index, Data: append([]byte(nil), w.Data...)}, nil
	}
	e, err := codec.DecodeEngineType(w.Data)
	if err != nil {
		return nil, fmt.Errorf("nwscript: decode engine type %d: %w", w.Index, err)
	}
	return e, nil
}

func stateToWire(s ScriptState) (*wireState, error) {
	out := &wireState{Offset: s.Offset}
	for _, v := range s.Globals {
		w, err := toWire(v)
		if err != nil {
			return nil, err
		}
		out.Globals = append(out.Globals, w)
	}
	for _, v := range s.Locals {
		w, err := toWire(v)
		if err != nil {
			return nil, err
		}
		out.Locals = append(out.Locals, w)
	}
	return out, nil
}

func stateFromWire(w wireState) (ScriptState, error) {
	out := ScriptState{Offset: w.Offset}
	for _, g := range w.Globals {
		v, err := fromWire(g)
		if err != nil {
			return ScriptState{}, err
		}
		out.Globals = append(out.Globals, v)
	}
	for _, l := range w.Locals {
		v, err := fromWire(l)
		if err != nil {
			return ScriptState{}, err
		}
		out.Locals = append(out.Locals, v)
	}
	return out, nil
}

// MarshalVariable serializes a Variable to canonical CBOR.
func MarshalVariable(v Variable) ([]byte, error) {
	w, err := toWire(v)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalVariable deserializes a Variable from CBOR bytes.
func UnmarshalVariable(data []byte) (Variable, error) {
	var w wireVariable
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Variable{}, fmt.Errorf("nwscript: unmarshal variable: %w", err)
	}
	return fromWire(w)
}

// MarshalScriptState serializes a ScriptState to canonical CBOR.
func MarshalScriptState(s ScriptState) ([]byte, error) {
	w, err := stateToWire(s)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalScriptState deserializes a ScriptState from CBOR bytes.
func UnmarshalScriptState(data []byte) (ScriptState, error) {
	var w wireState
	if err := cbor.Unmarshal(data, &w); err != nil {
		return ScriptState{}, fmt.Errorf("nwscript: unmarshal script state: %w", err)
	}
	return stateFromWire(w)
}

// MarshalCBOR lets Variables be embedded in other CBOR documents.
func (v Variable) MarshalCBOR() ([]byte, error) {
	return MarshalVariable(v)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Variable) UnmarshalCBOR(data []byte) error {
	out, err := UnmarshalVariable(data)
	if err != nil {
		return err
	}
	*v = out
	return nil
}
