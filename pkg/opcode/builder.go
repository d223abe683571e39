package opcode

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"
)

// Builder assembles NCS bytecode. Jump targets are symbolic labels that are
// resolved by Bytes.
//
//	b := opcode.NewBuilder()
//	b.ConstString("Hello")
//	b.Action(1, 1)
//	b.Retn()
//	ncs, err := b.Bytes()
type Builder struct {
	code   []byte
	labels map[string]uint32
	fixups []fixup
	err    error
}

type fixup struct {
	at    int    // position of the operand in code
	addr  uint32 // address of the jump instruction
	label string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{labels: make(map[string]uint32)}
}

// Addr returns the address the next instruction will have.
func (b *Builder) Addr() uint32 {
	return uint32(HeaderSize + len(b.code))
}

// Label names the address of the next instruction.
func (b *Builder) Label(name string) *Builder {
	if _, dup := b.labels[name]; dup && b.err == nil {
		b.err = fmt.Errorf("opcode: duplicate label %q", name)
	}
	b.labels[name] = b.Addr()
	return b
}

func (b *Builder) op(cmd Cmd, typ Type) {
	b.code = append(b.code, byte(cmd), byte(typ))
}

func (b *Builder) i16(v int16) {
	b.code = binary.BigEndian.AppendUint16(b.code, uint16(v))
}

func (b *Builder) i32(v int32) {
	b.code = binary.BigEndian.AppendUint32(b.code, uint32(v))
}

// Op emits an instruction without operands, such as ADD or RETN.
func (b *Builder) Op(cmd Cmd, typ Type) *Builder {
	b.op(cmd, typ)
	return b
}

// RSAdd reserves a zero value of typ.
func (b *Builder) RSAdd(typ Type) *Builder {
	return b.Op(RSADD, typ)
}

// Retn emits RETN.
func (b *Builder) Retn() *Builder {
	return b.Op(RETN, TypeNone)
}

// ConstInt pushes an int constant.
func (b *Builder) ConstInt(v int32) *Builder {
	b.op(CONST, TypeInt)
	b.i32(v)
	return b
}

// ConstFloat pushes a float constant.
func (b *Builder) ConstFloat(v float32) *Builder {
	b.op(CONST, TypeFloat)
	b.i32(int32(math.Float32bits(v)))
	return b
}

// ConstString pushes a string constant, encoded as Windows-1252.
func (b *Builder) ConstString(s string) *Builder {
	raw, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("opcode: string constant %q: %w", s, err)
		}
		return b
	}
	if len(raw) > math.MaxUint16 {
		if b.err == nil {
			b.err = fmt.Errorf("opcode: string constant of %d bytes", len(raw))
		}
		return b
	}
	b.op(CONST, TypeString)
	b.code = binary.BigEndian.AppendUint16(b.code, uint16(len(raw)))
	b.code = append(b.code, raw...)
	return b
}

// ConstObject pushes an object constant. 0 is OBJECT_SELF.
func (b *Builder) ConstObject(v int32) *Builder {
	b.op(CONST, TypeObject)
	b.i32(v)
	return b
}

// Action calls engine function routine with argc arguments.
func (b *Builder) Action(routine uint16, argc uint8) *Builder {
	b.op(ACTION, TypeNone)
	b.code = binary.BigEndian.AppendUint16(b.code, routine)
	b.code = append(b.code, argc)
	return b
}

// Copy emits CPDOWNSP, CPTOPSP, CPDOWNBP or CPTOPBP.
func (b *Builder) Copy(cmd Cmd, offset int32, size int16) *Builder {
	b.op(cmd, TypeDirect)
	b.i32(offset)
	b.i16(size)
	return b
}

// Offset emits an instruction with a single int32 operand: MOVSP, DECISP,
// INCISP, DECIBP or INCIBP.
func (b *Builder) Offset(cmd Cmd, offset int32) *Builder {
	typ := TypeInt
	if cmd == MOVSP {
		typ = TypeNone
	}
	b.op(cmd, typ)
	b.i32(offset)
	return b
}

// Jump emits JMP, JSR, JZ or JNZ to a label.
func (b *Builder) Jump(cmd Cmd, label string) *Builder {
	addr := b.Addr()
	b.op(cmd, TypeNone)
	b.fixups = append(b.fixups, fixup{at: len(b.code), addr: addr, label: label})
	b.i32(0)
	return b
}

// Destruct emits DESTRUCT.
func (b *Builder) Destruct(size, offsetKeep, sizeKeep int16) *Builder {
	b.op(DESTRUCT, TypeDirect)
	b.i16(size)
	b.i16(offsetKeep)
	b.i16(sizeKeep)
	return b
}

// EqualStruct emits EQUALTT or NEQUALTT for structs of size bytes.
func (b *Builder) EqualStruct(cmd Cmd, size uint16) *Builder {
	b.op(cmd, TypeStructStruct)
	b.code = binary.BigEndian.AppendUint16(b.code, size)
	return b
}

// StoreState emits STORESTATE. The resume point is the instruction after a
// JMP that directly follows it, which is where compiled scripts put the
// deferred block.
func (b *Builder) StoreState(sizeBP, sizeSP int32) *Builder {
	b.op(STORESTATE, Type(storeStateLen+jumpLen))
	b.i32(sizeBP)
	b.i32(sizeSP)
	return b
}

const (
	storeStateLen = 10
	jumpLen       = 6
)

// Bytes resolves labels and returns the complete NCS file.
func (b *Builder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	code := append([]byte(nil), b.code...)
	for _, f := range b.fixups {
		target, ok := b.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("opcode: undefined label %q", f.label)
		}
		binary.BigEndian.PutUint32(code[f.at:], uint32(int32(target)-int32(f.addr)))
	}

	out := make([]byte, 0, HeaderSize+len(code))
	out = append(out, Magic...)
	out = append(out, sizeMarker)
	out = binary.BigEndian.AppendUint32(out, uint32(HeaderSize+len(code)))
	return append(out, code...), nil
}
