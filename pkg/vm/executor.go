package vm

import (
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
)

// step executes the instruction at pc. pc only moves when the instruction
// succeeds, so a fault reports the failing instruction.
func (m *machine) step() error {
	in := m.prog.Instructions[m.pc]
	next := m.pc + 1

	var err error
	switch in.Cmd {
	case opcode.CPDOWNSP:
		err = m.copyDown(len(m.stack), in.Args[0], in.Args[1])
	case opcode.CPTOPSP:
		err = m.copyTop(len(m.stack), in.Args[0], in.Args[1])
	case opcode.CPDOWNBP:
		err = m.copyDown(m.bp, in.Args[0], in.Args[1])
	case opcode.CPTOPBP:
		err = m.copyTop(m.bp, in.Args[0], in.Args[1])

	case opcode.RSADD:
		err = m.reserve(in.Type)
	case opcode.CONST:
		err = m.constant(in)
	case opcode.ACTION:
		err = m.action(uint32(in.Args[0]), int(in.Args[1]))

	case opcode.LOGANDII, opcode.LOGORII, opcode.INCORII, opcode.EXCORII, opcode.BOOLANDII,
		opcode.SHLEFTII, opcode.SHRIGHTII, opcode.USHRIGHTII:
		err = m.intBinary(in.Cmd)

	case opcode.EQUAL, opcode.NEQUAL:
		err = m.equality(in)
	case opcode.GEQ, opcode.GT, opcode.LT, opcode.LEQ:
		err = m.compare(in)

	case opcode.ADD, opcode.SUB, opcode.MUL, opcode.DIV, opcode.MOD:
		err = m.arithmetic(in)
	case opcode.NEG:
		err = m.negate(in.Type)
	case opcode.COMP:
		var i int32
		if i, err = m.popInt(); err == nil {
			err = m.push(nwscript.NewInt(^i))
		}
	case opcode.NOT:
		var i int32
		if i, err = m.popInt(); err == nil {
			err = m.push(nwscript.NewBool(i == 0))
		}

	case opcode.MOVSP:
		if in.Args[0] > 0 {
			return nwscript.NewInterpreterFault("MOVSP by positive offset %d", in.Args[0])
		}
		var n int
		if n, err = slots(-in.Args[0]); err == nil {
			_, err = m.popN(n)
		}

	case opcode.JMP:
		next, err = m.jump(in)
	case opcode.JSR:
		if len(m.returns) >= MaxCallDepth {
			return nwscript.NewInterpreterFault("call depth exceeds %d", MaxCallDepth)
		}
		if next, err = m.jump(in); err == nil {
			m.returns = append(m.returns, m.pc+1)
		}
	case opcode.JZ, opcode.JNZ:
		var cond int32
		if cond, err = m.popInt(); err != nil {
			break
		}
		if (cond == 0) == (in.Cmd == opcode.JZ) {
			next, err = m.jump(in)
		}
	case opcode.RETN:
		if len(m.returns) == 0 {
			m.done = true
			return nil
		}
		next = m.returns[len(m.returns)-1]
		m.returns = m.returns[:len(m.returns)-1]

	case opcode.DESTRUCT:
		err = m.destruct(in.Args[0], in.Args[1], in.Args[2])

	case opcode.DECISP:
		err = m.addInt(len(m.stack), in.Args[0], -1)
	case opcode.INCISP:
		err = m.addInt(len(m.stack), in.Args[0], 1)
	case opcode.DECIBP:
		err = m.addInt(m.bp, in.Args[0], -1)
	case opcode.INCIBP:
		err = m.addInt(m.bp, in.Args[0], 1)

	case opcode.SAVEBP:
		if err = m.push(nwscript.NewInt(int32(m.bp))); err == nil {
			m.bp = len(m.stack)
		}
	case opcode.RESTOREBP:
		var bp int32
		if bp, err = m.popInt(); err == nil {
			if bp < 0 || int(bp) > len(m.stack) {
				return nwscript.NewInterpreterFault("restored BP %d out of range", bp)
			}
			m.bp = int(bp)
		}

	case opcode.STORESTATE:
		err = m.storeState(in, in.Args[0], in.Args[1])
	case opcode.STORESTATEALL:
		err = m.storeState(in, int32(m.bp*slotSize), int32((len(m.stack)-m.bp)*slotSize))

	case opcode.NOP:

	default:
		return nwscript.NewInterpreterFault("unknown opcode %s", in.Cmd)
	}

	if err != nil {
		return err
	}
	m.pc = next
	return nil
}

// jump resolves the relative target of a jump instruction.
func (m *machine) jump(in opcode.Instruction) (int, error) {
	target := in.Target()
	if target < 0 || target > int64(^uint32(0)) {
		return 0, nwscript.NewInterpreterFault("jump target %d out of range", target)
	}
	idx, ok := m.prog.At(uint32(target))
	if !ok {
		return 0, nwscript.NewInterpreterFault("jump target %08X is not an instruction", target)
	}
	return idx, nil
}

func (m *machine) reserve(t opcode.Type) error {
	switch t {
	case opcode.TypeInt:
		return m.push(nwscript.NewInt(0))
	case opcode.TypeFloat:
		return m.push(nwscript.NewFloat(0))
	case opcode.TypeString:
		return m.push(nwscript.NewString(""))
	case opcode.TypeObject:
		return m.push(nwscript.NewObject(nwscript.ObjectInvalid))
	}
	if _, ok := t.EngineIndex(); ok && t < opcode.TypeIntInt {
		return m.push(nwscript.NewEngineType(nil))
	}
	return nwscript.NewInterpreterFault("RSADD of type %s", t)
}

func (m *machine) constant(in opcode.Instruction) error {
	switch in.Type {
	case opcode.TypeInt:
		return m.push(nwscript.NewInt(in.Args[0]))
	case opcode.TypeFloat:
		return m.push(nwscript.NewFloat(in.Float))
	case opcode.TypeString:
		return m.push(nwscript.NewString(in.Text))
	case opcode.TypeObject:
		return m.push(nwscript.NewObject(m.resolveObject(nwscript.ObjectID(uint32(in.Args[0])))))
	}
	return nwscript.NewInterpreterFault("CONST of type %s", in.Type)
}

// resolveObject maps the object constants compilers emit.
func (m *machine) resolveObject(id nwscript.ObjectID) nwscript.ObjectID {
	switch id {
	case nwscript.ObjectSelfConstant:
		return m.inv.Caller
	case nwscript.ObjectInvalidConstant, nwscript.ObjectInvalid:
		return nwscript.ObjectInvalid
	}
	return id
}

// action pops the arguments of an engine call, dispatches it and pushes
// the result.
//
// An unknown routine has no signature, so argc is popped as one slot per
// argument. A vector argument occupies three slots and leaves two of them
// behind; the stack stays misaligned for the rest of that script.
func (m *machine) action(id uint32, argc int) error {
	sig, known := m.functions.Signature(id)
	if !known {
		m.log.Debug("Unknown engine function, popping one slot per argument",
			"id", id, "argc", argc, "slots", argc, "stack", len(m.stack), "script", m.inv.Script)
		if _, err := m.popN(argc); err != nil {
			return err
		}
		ctx, err := m.functions.CallContext(m.ctx, id, nil, m.inv.Caller, m.inv.Triggerer, m.inv.Script)
		if err != nil {
			return err
		}
		return m.pushResult(ctx.Signature().Return, ctx.Return())
	}

	if argc > len(sig.Params) {
		return nwscript.NewArityError(m.functions.Name(id), argc, len(sig.Params))
	}

	args := make([]nwscript.Variable, argc)
	for i := 0; i < argc; i++ {
		switch sig.Params[i] {
		case nwscript.TypeVector:
			v, err := m.popVector()
			if err != nil {
				return err
			}
			args[i] = nwscript.NewVector(v[0], v[1], v[2])
		case nwscript.TypeScriptState:
			if m.state == nil {
				args[i] = nwscript.NewScriptState(nwscript.ScriptState{})
			} else {
				args[i] = nwscript.NewScriptState(*m.state)
			}
		default:
			v, err := m.pop()
			if err != nil {
				return err
			}
			args[i] = v
		}
	}

	ctx, err := m.functions.CallContext(m.ctx, id, args, m.inv.Caller, m.inv.Triggerer, m.inv.Script)
	if err != nil {
		return err
	}
	return m.pushResult(sig.Return, ctx.Return())
}

func (m *machine) pushResult(t nwscript.Type, v nwscript.Variable) error {
	switch t {
	case nwscript.TypeVoid:
		return nil
	case nwscript.TypeVector:
		vec, err := v.Vector()
		if err != nil {
			return err
		}
		return m.pushVector(vec)
	}
	return m.push(v)
}

// storeState captures the BP window below BP and the SP window at the top
// of stack. The resume point is the instruction address plus the type byte.
func (m *machine) storeState(in opcode.Instruction, sizeBP, sizeSP int32) error {
	nBP, err := slots(sizeBP)
	if err != nil {
		return err
	}
	nSP, err := slots(sizeSP)
	if err != nil {
		return err
	}
	if nBP > m.bp || m.bp > len(m.stack) || nSP > len(m.stack) {
		return nwscript.NewInterpreterFault("cannot store state of %d/%d slots", nBP, nSP)
	}

	state := nwscript.ScriptState{
		Offset:  in.Address + uint32(in.Type),
		Globals: append([]nwscript.Variable(nil), m.stack[m.bp-nBP:m.bp]...),
		Locals:  append([]nwscript.Variable(nil), m.stack[len(m.stack)-nSP:]...),
	}
	m.state = &state
	return nil
}

func (m *machine) intBinary(cmd opcode.Cmd) error {
	b, err := m.popInt()
	if err != nil {
		return err
	}
	a, err := m.popInt()
	if err != nil {
		return err
	}

	var r int32
	switch cmd {
	case opcode.LOGANDII:
		r = boolInt(a != 0 && b != 0)
	case opcode.LOGORII:
		r = boolInt(a != 0 || b != 0)
	case opcode.INCORII:
		r = a | b
	case opcode.EXCORII:
		r = a ^ b
	case opcode.BOOLANDII:
		r = a & b
	case opcode.SHLEFTII:
		r = a << uint32(b)
	case opcode.SHRIGHTII:
		r = a >> uint32(b)
	case opcode.USHRIGHTII:
		r = int32(uint32(a) >> uint32(b))
	}
	return m.push(nwscript.NewInt(r))
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (m *machine) equality(in opcode.Instruction) error {
	var n int
	switch in.Type {
	case opcode.TypeIntInt, opcode.TypeFloatFloat, opcode.TypeObjectObject, opcode.TypeStringString:
		n = 1
	case opcode.TypeVectorVector:
		n = 3
	case opcode.TypeStructStruct:
		var err error
		if n, err = slots(in.Args[0]); err != nil {
			return err
		}
	default:
		if _, ok := in.Type.EngineIndex(); !ok || in.Type < opcode.TypeEngineEngine0 {
			return nwscript.NewInterpreterFault("EQUAL of type %s", in.Type)
		}
		n = 1
	}

	b, err := m.popN(n)
	if err != nil {
		return err
	}
	a, err := m.popN(n)
	if err != nil {
		return err
	}

	want := operandKind(in.Type)
	eq := true
	for i := range a {
		if want != nwscript.KindUnset {
			if a[i].Kind() != want {
				return nwscript.NewTypeMismatchError(want, a[i].Kind())
			}
			if b[i].Kind() != want {
				return nwscript.NewTypeMismatchError(want, b[i].Kind())
			}
		}
		if !a[i].Equal(b[i]) {
			eq = false
		}
	}
	return m.push(nwscript.NewBool(eq == (in.Cmd == opcode.EQUAL)))
}

// operandKind returns the slot kind a homogeneous binary type byte expects,
// or KindUnset for structs.
func operandKind(t opcode.Type) nwscript.Kind {
	switch t {
	case opcode.TypeIntInt:
		return nwscript.KindInt
	case opcode.TypeFloatFloat, opcode.TypeVectorVector:
		return nwscript.KindFloat
	case opcode.TypeObjectObject:
		return nwscript.KindObject
	case opcode.TypeStringString:
		return nwscript.KindString
	}
	if _, ok := t.EngineIndex(); ok {
		return nwscript.KindEngineType
	}
	return nwscript.KindUnset
}

func (m *machine) compare(in opcode.Instruction) error {
	var lt, eq bool
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
		lt, eq = a < b, a == b
	case opcode.TypeFloatFloat:
		b, err := m.popFloat()
		if err != nil {
			return err
		}
		a, err := m.popFloat()
		if err != nil {
			return err
		}
		lt, eq = a < b, a == b
	default:
		return nwscript.NewInterpreterFault("%s of type %s", in.Cmd, in.Type)
	}

	var r bool
	switch in.Cmd {
	case opcode.GEQ:
		r = !lt
	case opcode.GT:
		r = !lt && !eq
	case opcode.LT:
		r = lt
	case opcode.LEQ:
		r = lt || eq
	}
	return m.push(nwscript.NewBool(r))
}

func (m *machine) negate(t opcode.Type) error {
	switch t {
	case opcode.TypeInt:
		i, err := m.popInt()
		if err != nil {
			return err
		}
		return m.push(nwscript.NewInt(-i))
	case opcode.TypeFloat:
		f, err := m.popFloat()
		if err != nil {
			return err
		}
		return m.push(nwscript.NewFloat(-f))
	}
	return nwscript.NewInterpreterFault("NEG of type %s", t)
}
