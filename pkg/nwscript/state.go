package nwscript

// ScriptState is a snapshot of a suspended script: the bytecode offset to
// resume at, plus the global (BP-relative) and local (SP-relative) stack
// slots that were live when the state was stored.
//
// ScriptState has copy semantics: Clone before handing a state to code that
// may keep it.
type ScriptState struct {
	Offset  uint32
	Globals []Variable
	Locals  []Variable
}

// Clone returns a deep copy of the state.
func (s ScriptState) Clone() ScriptState {
	out := ScriptState{Offset: s.Offset}
	if len(s.Globals) > 0 {
		out.Globals = append([]Variable(nil), s.Globals...)
	}
	if len(s.Locals) > 0 {
		out.Locals = append([]Variable(nil), s.Locals...)
	}
	return out
}

// Empty reports whether the state holds nothing to resume.
func (s ScriptState) Empty() bool {
	return s.Offset == 0 && len(s.Globals) == 0 && len(s.Locals) == 0
}

// Equal compares two states slot by slot.
func (s ScriptState) Equal(o ScriptState) bool {
	if s.Offset != o.Offset || len(s.Globals) != len(o.Globals) || len(s.Locals) != len(o.Locals) {
		return false
	}
	for i := range s.Globals {
		if !s.Globals[i].Equal(o.Globals[i]) {
			return false
		}
	}
	for i := range s.Locals {
		if !s.Locals[i].Equal(o.Locals[i]) {
			return false
		}
	}
	return true
}
