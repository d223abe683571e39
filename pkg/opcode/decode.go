package opcode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"
)

// Magic is the NCS file signature.
const Magic = "NCS V1.0"

// sizeMarker precedes the big-endian program size in the header.
const sizeMarker = 0x42

// HeaderSize is the length of the NCS header; the first instruction starts
// at this offset.
const HeaderSize = 13

// ErrBadHeader is returned for data that is not an NCS V1.0 file.
var ErrBadHeader = errors.New("opcode: not an NCS V1.0 file")

// DecodeError reports a malformed instruction.
type DecodeError struct {
	Address uint32
	Msg     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("opcode: %s at %08X", e.Msg, e.Address)
}

// Program is a decoded NCS file.
type Program struct {
	// Size is the program size declared in the header.
	Size         uint32
	Instructions []Instruction

	index map[uint32]int
}

// At returns the index of the instruction starting at addr.
func (p *Program) At(addr uint32) (int, bool) {
	i, ok := p.index[addr]
	return i, ok
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Decode parses a complete NCS file.
func Decode(data []byte) (*Program, error) {
	if len(data) < HeaderSize || !bytes.Equal(data[:len(Magic)], []byte(Magic)) || data[8] != sizeMarker {
		return nil, ErrBadHeader
	}
	size := binary.BigEndian.Uint32(data[9:13])
	if int64(size) > int64(len(data)) {
		return nil, fmt.Errorf("%w: declared size %d exceeds %d bytes", ErrBadHeader, size, len(data))
	}
	if size < HeaderSize {
		size = uint32(len(data))
	}

	p := &Program{Size: size, index: make(map[uint32]int)}
	r := reader{data: data[:size], pos: HeaderSize}
	for r.pos < len(r.data) {
		in, err := r.instruction()
		if err != nil {
			return nil, err
		}
		p.index[in.Address] = len(p.Instructions)
		p.Instructions = append(p.Instructions, in)
	}
	return p, nil
}

type reader struct {
	data []byte
	pos  int
	err  error
	addr uint32
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.data) {
		r.err = &DecodeError{Address: r.addr, Msg: "truncated instruction"}
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) i16() int32 {
	return int32(int16(r.u16()))
}

func (r *reader) i32() int32 {
	if b := r.take(4); b != nil {
		return int32(binary.BigEndian.Uint32(b))
	}
	return 0
}

func (r *reader) instruction() (Instruction, error) {
	r.addr = uint32(r.pos)
	in := Instruction{Address: r.addr}
	in.Cmd = Cmd(r.u8())
	in.Type = Type(r.u8())
	if r.err != nil {
		return in, r.err
	}

	switch in.Cmd {
	case CPDOWNSP, CPTOPSP, CPDOWNBP, CPTOPBP:
		in.Args[0] = r.i32()
		in.Args[1] = r.i16()

	case CONST:
		switch in.Type {
		case TypeInt, TypeObject:
			in.Args[0] = r.i32()
		case TypeFloat:
			in.Float = math.Float32frombits(uint32(r.i32()))
		case TypeString:
			n := int(r.u16())
			raw := r.take(n)
			if r.err == nil {
				s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
				if err != nil {
					return in, &DecodeError{Address: r.addr, Msg: "bad string constant: " + err.Error()}
				}
				in.Text = string(s)
			}
		default:
			return in, &DecodeError{Address: r.addr, Msg: fmt.Sprintf("CONST of type %s", in.Type)}
		}

	case ACTION:
		in.Args[0] = int32(r.u16())
		in.Args[1] = int32(r.u8())

	case EQUAL, NEQUAL:
		if in.Type == TypeStructStruct {
			in.Args[0] = int32(r.u16())
		}

	case MOVSP, JMP, JSR, JZ, JNZ, DECISP, INCISP, DECIBP, INCIBP:
		in.Args[0] = r.i32()

	case DESTRUCT:
		in.Args[0] = r.i16()
		in.Args[1] = r.i16()
		in.Args[2] = r.i16()

	case STORESTATE:
		in.Args[0] = r.i32()
		in.Args[1] = r.i32()

	case RSADD, LOGANDII, LOGORII, INCORII, EXCORII, BOOLANDII,
		GEQ, GT, LT, LEQ, SHLEFTII, SHRIGHTII, USHRIGHTII,
		ADD, SUB, MUL, DIV, MOD, NEG, COMP, NOT,
		STORESTATEALL, RETN, SAVEBP, RESTOREBP, NOP:

	default:
		return in, &DecodeError{Address: r.addr, Msg: fmt.Sprintf("unknown opcode 0x%02X", uint8(in.Cmd))}
	}

	if r.err != nil {
		return in, r.err
	}
	in.Length = uint32(r.pos) - in.Address
	return in, nil
}
