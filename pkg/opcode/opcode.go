// Package opcode defines the NCS instruction set executed by the NWScript
// virtual machine. This package is the foundation that both the assembler
// and the VM depend on: Decode turns a compiled NCS file into Instructions
// and Builder produces NCS files from them.
package opcode

import "fmt"

// Cmd is the opcode byte of an NCS instruction.
type Cmd uint8

// NCS opcodes. Operand layouts are listed in encoding order after the
// opcode and type bytes; all multi-byte values are big-endian.
const (
	// CPDOWNSP copies the top of stack down into an SP-relative slot.
	// Args: [offset int32, size int16]
	CPDOWNSP Cmd = 0x01

	// RSADD reserves one zero value of the instruction type on the stack.
	RSADD Cmd = 0x02

	// CPTOPSP copies an SP-relative slot to the top of stack.
	// Args: [offset int32, size int16]
	CPTOPSP Cmd = 0x03

	// CONST pushes a constant of the instruction type.
	// Args: int32 | float32 | uint16 length + bytes | object int32
	CONST Cmd = 0x04

	// ACTION calls an engine function.
	// Args: [routine uint16, argc uint8]
	ACTION Cmd = 0x05

	LOGANDII  Cmd = 0x06
	LOGORII   Cmd = 0x07
	INCORII   Cmd = 0x08
	EXCORII   Cmd = 0x09
	BOOLANDII Cmd = 0x0A

	// EQUAL and NEQUAL compare two values. Struct comparisons carry the
	// struct size.
	// Args (type 0x24 only): [size uint16]
	EQUAL  Cmd = 0x0B
	NEQUAL Cmd = 0x0C

	GEQ Cmd = 0x0D
	GT  Cmd = 0x0E
	LT  Cmd = 0x0F
	LEQ Cmd = 0x10

	SHLEFTII   Cmd = 0x11
	SHRIGHTII  Cmd = 0x12
	USHRIGHTII Cmd = 0x13

	ADD  Cmd = 0x14
	SUB  Cmd = 0x15
	MUL  Cmd = 0x16
	DIV  Cmd = 0x17
	MOD  Cmd = 0x18
	NEG  Cmd = 0x19
	COMP Cmd = 0x1A

	// MOVSP pops bytes off the stack.
	// Args: [offset int32] (negative)
	MOVSP Cmd = 0x1B

	// STORESTATEALL saves the whole stack for a deferred action. The type
	// byte is the offset of the resume point.
	STORESTATEALL Cmd = 0x1C

	// JMP, JSR, JZ and JNZ jump relative to the instruction address.
	// Args: [offset int32]
	JMP Cmd = 0x1D
	JSR Cmd = 0x1E
	JZ  Cmd = 0x1F

	// RETN returns from a subroutine, or ends the script at top level.
	RETN Cmd = 0x20

	// DESTRUCT removes size bytes from the top of stack except for a kept
	// window.
	// Args: [size int16, offsetKeep int16, sizeKeep int16]
	DESTRUCT Cmd = 0x21

	NOT Cmd = 0x22

	// DECISP and INCISP modify an int at an SP-relative slot.
	// Args: [offset int32]
	DECISP Cmd = 0x23
	INCISP Cmd = 0x24

	JNZ Cmd = 0x25

	// CPDOWNBP and CPTOPBP are the BP-relative copies.
	// Args: [offset int32, size int16]
	CPDOWNBP Cmd = 0x26
	CPTOPBP  Cmd = 0x27

	// DECIBP and INCIBP modify an int at a BP-relative slot.
	// Args: [offset int32]
	DECIBP Cmd = 0x28
	INCIBP Cmd = 0x29

	// SAVEBP pushes BP and points BP at the top of stack; RESTOREBP undoes it.
	SAVEBP    Cmd = 0x2A
	RESTOREBP Cmd = 0x2B

	// STORESTATE saves the BP and SP windows for a deferred action. The type
	// byte is the offset of the resume point.
	// Args: [sizeBP int32, sizeSP int32]
	STORESTATE Cmd = 0x2C

	NOP Cmd = 0x2D
)

var cmdNames = map[Cmd]string{
	CPDOWNSP: "CPDOWNSP", RSADD: "RSADD", CPTOPSP: "CPTOPSP", CONST: "CONST",
	ACTION: "ACTION", LOGANDII: "LOGANDII", LOGORII: "LOGORII", INCORII: "INCORII",
	EXCORII: "EXCORII", BOOLANDII: "BOOLANDII", EQUAL: "EQUAL", NEQUAL: "NEQUAL",
	GEQ: "GEQ", GT: "GT", LT: "LT", LEQ: "LEQ",
	SHLEFTII: "SHLEFTII", SHRIGHTII: "SHRIGHTII", USHRIGHTII: "USHRIGHTII",
	ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", MOD: "MOD", NEG: "NEG", COMP: "COMP",
	MOVSP: "MOVSP", STORESTATEALL: "STORESTATEALL",
	JMP: "JMP", JSR: "JSR", JZ: "JZ", RETN: "RETN", DESTRUCT: "DESTRUCT", NOT: "NOT",
	DECISP: "DECISP", INCISP: "INCISP", JNZ: "JNZ",
	CPDOWNBP: "CPDOWNBP", CPTOPBP: "CPTOPBP", DECIBP: "DECIBP", INCIBP: "INCIBP",
	SAVEBP: "SAVEBP", RESTOREBP: "RESTOREBP", STORESTATE: "STORESTATE", NOP: "NOP",
}

func (c Cmd) String() string {
	if name, ok := cmdNames[c]; ok {
		return name
	}
	return fmt.Sprintf("OP_%02X", uint8(c))
}

// Valid reports whether c is part of the instruction set.
func (c Cmd) Valid() bool {
	_, ok := cmdNames[c]
	return ok
}

// IsJump reports whether the instruction carries a relative jump target.
func (c Cmd) IsJump() bool {
	return c == JMP || c == JSR || c == JZ || c == JNZ
}

// Type is the instruction type byte, naming the operand types.
type Type uint8

const (
	TypeNone   Type = 0x00
	TypeDirect Type = 0x01

	TypeInt    Type = 0x03
	TypeFloat  Type = 0x04
	TypeString Type = 0x05
	TypeObject Type = 0x06

	// TypeEngine0 to TypeEngine0+9 name the engine types.
	TypeEngine0 Type = 0x10

	TypeIntInt       Type = 0x20
	TypeFloatFloat   Type = 0x21
	TypeObjectObject Type = 0x22
	TypeStringString Type = 0x23
	TypeStructStruct Type = 0x24
	TypeIntFloat     Type = 0x25
	TypeFloatInt     Type = 0x26

	// TypeEngineEngine0 to TypeEngineEngine0+9 compare two engine types.
	TypeEngineEngine0 Type = 0x30

	TypeVectorVector Type = 0x3A
	TypeVectorFloat  Type = 0x3B
	TypeFloatVector  Type = 0x3C
)

// NumEngineTypes is the number of engine type slots.
const NumEngineTypes = 10

// EngineIndex returns the engine type slot of a unary or binary engine type
// byte.
func (t Type) EngineIndex() (int, bool) {
	switch {
	case t >= TypeEngine0 && t < TypeEngine0+NumEngineTypes:
		return int(t - TypeEngine0), true
	case t >= TypeEngineEngine0 && t < TypeEngineEngine0+NumEngineTypes:
		return int(t - TypeEngineEngine0), true
	}
	return 0, false
}

var typeNames = map[Type]string{
	TypeNone: "", TypeDirect: "", TypeInt: "I", TypeFloat: "F", TypeString: "S", TypeObject: "O",
	TypeIntInt: "II", TypeFloatFloat: "FF", TypeObjectObject: "OO", TypeStringString: "SS",
	TypeStructStruct: "TT", TypeIntFloat: "IF", TypeFloatInt: "FI",
	TypeVectorVector: "VV", TypeVectorFloat: "VF", TypeFloatVector: "FV",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	if i, ok := t.EngineIndex(); ok {
		if t >= TypeEngineEngine0 {
			return fmt.Sprintf("E%dE%d", i, i)
		}
		return fmt.Sprintf("E%d", i)
	}
	return fmt.Sprintf("T%02X", uint8(t))
}

// Instruction is one decoded NCS instruction.
type Instruction struct {
	Address uint32 // byte offset from the start of the file
	Length  uint32 // encoded length in bytes
	Cmd     Cmd
	Type    Type

	// Args holds the integer operands in encoding order. For CONST int and
	// object it holds the value, for ACTION the routine and argc.
	Args [3]int32

	Float float32 // CONST float
	Text  string  // CONST string, decoded from Windows-1252
}

// Target returns the absolute address a jump instruction branches to.
func (in Instruction) Target() int64 {
	return int64(in.Address) + int64(in.Args[0])
}

// Next returns the address of the following instruction.
func (in Instruction) Next() uint32 {
	return in.Address + in.Length
}

func (in Instruction) String() string {
	name := in.Cmd.String() + in.Type.String()
	switch in.Cmd {
	case CONST:
		switch in.Type {
		case TypeFloat:
			return fmt.Sprintf("%08X %s %g", in.Address, name, in.Float)
		case TypeString:
			return fmt.Sprintf("%08X %s %q", in.Address, name, in.Text)
		}
		return fmt.Sprintf("%08X %s %d", in.Address, name, in.Args[0])
	case ACTION:
		return fmt.Sprintf("%08X %s %d %d", in.Address, name, in.Args[0], in.Args[1])
	case CPDOWNSP, CPTOPSP, CPDOWNBP, CPTOPBP, STORESTATE:
		return fmt.Sprintf("%08X %s %d %d", in.Address, name, in.Args[0], in.Args[1])
	case DESTRUCT:
		return fmt.Sprintf("%08X %s %d %d %d", in.Address, name, in.Args[0], in.Args[1], in.Args[2])
	case MOVSP, DECISP, INCISP, DECIBP, INCIBP:
		return fmt.Sprintf("%08X %s %d", in.Address, name, in.Args[0])
	case JMP, JSR, JZ, JNZ:
		return fmt.Sprintf("%08X %s %08X", in.Address, name, in.Target())
	case EQUAL, NEQUAL:
		if in.Type == TypeStructStruct {
			return fmt.Sprintf("%08X %s %d", in.Address, name, in.Args[0])
		}
	}
	return fmt.Sprintf("%08X %s", in.Address, name)
}
