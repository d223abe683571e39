package vm

import (
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
)

// arithmetic executes ADD, SUB, MUL, DIV and MOD. The type byte names the
// operand types; operands of other kinds are a type mismatch.
func (m *machine) arithmetic(in opcode.Instruction) error {
	switch in.Type {
	case opcode.TypeIntInt:
		b, err := m.popInt()
		if err != nil {
			return err
		}
		a, err := m.popInt()
		if err != nil {
			return err
		}
		r, err := intOp(in.Cmd, a, b)
		if err != nil {
			return err
		}
		return m.push(nwscript.NewInt(r))

	case opcode.TypeIntFloat, opcode.TypeFloatInt, opcode.TypeFloatFloat:
		if in.Cmd == opcode.MOD {
			break
		}
		b, err := m.popNumber(in.Type == opcode.TypeIntFloat || in.Type == opcode.TypeFloatFloat)
		if err != nil {
			return err
		}
		a, err := m.popNumber(in.Type == opcode.TypeFloatInt || in.Type == opcode.TypeFloatFloat)
		if err != nil {
			return err
		}
		return m.push(nwscript.NewFloat(floatOp(in.Cmd, a, b)))

	case opcode.TypeStringString:
		if in.Cmd != opcode.ADD {
			break
		}
		b, err := m.popString()
		if err != nil {
			return err
		}
		a, err := m.popString()
		if err != nil {
			return err
		}
		return m.push(nwscript.NewString(a + b))

	case opcode.TypeVectorVector:
		if in.Cmd != opcode.ADD && in.Cmd != opcode.SUB {
			break
		}
		b, err := m.popVector()
		if err != nil {
			return err
		}
		a, err := m.popVector()
		if err != nil {
			return err
		}
		var r nwscript.Vector
		for i := range r {
			r[i] = floatOp(in.Cmd, a[i], b[i])
		}
		return m.pushVector(r)

	case opcode.TypeVectorFloat:
		if in.Cmd != opcode.MUL && in.Cmd != opcode.DIV {
			break
		}
		f, err := m.popFloat()
		if err != nil {
			return err
		}
		v, err := m.popVector()
		if err != nil {
			return err
		}
		for i := range v {
			v[i] = floatOp(in.Cmd, v[i], f)
		}
		return m.pushVector(v)

	case opcode.TypeFloatVector:
		if in.Cmd != opcode.MUL {
			break
		}
		v, err := m.popVector()
		if err != nil {
			return err
		}
		f, err := m.popFloat()
		if err != nil {
			return err
		}
		for i := range v {
			v[i] *= f
		}
		return m.pushVector(v)
	}

	return nwscript.NewInterpreterFault("%s of type %s", in.Cmd, in.Type)
}

// popNumber pops a float, or an int converted to float when isFloat is false.
func (m *machine) popNumber(isFloat bool) (float32, error) {
	if isFloat {
		return m.popFloat()
	}
	i, err := m.popInt()
	return float32(i), err
}

func intOp(cmd opcode.Cmd, a, b int32) (int32, error) {
	switch cmd {
	case opcode.ADD:
		return a + b, nil
	case opcode.SUB:
		return a - b, nil
	case opcode.MUL:
		return a * b, nil
	case opcode.DIV:
		if b == 0 {
			return 0, nwscript.NewInterpreterFault("integer division by zero")
		}
		return a / b, nil
	case opcode.MOD:
		if b == 0 {
			return 0, nwscript.NewInterpreterFault("integer modulo by zero")
		}
		return a % b, nil
	}
	return 0, nwscript.NewInterpreterFault("%s on ints", cmd)
}

// floatOp follows IEEE 754, so division by zero yields an infinity or NaN.
func floatOp(cmd opcode.Cmd, a, b float32) float32 {
	switch cmd {
	case opcode.ADD:
		return a + b
	case opcode.SUB:
		return a - b
	case opcode.MUL:
		return a * b
	case opcode.DIV:
		return a / b
	}
	return 0
}
