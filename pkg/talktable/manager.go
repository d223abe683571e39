package talktable

import "sync"

// AltBit marks a StrRef that refers to the alternate (custom) talk table.
const AltBit uint32 = 0x01000000

// Manager resolves string references against a main talk table and an
// optional alternate one, each with an optional feminine variant.
// A Manager is safe for concurrent use.
type Manager struct {
	mu            sync.RWMutex
	main, mainFem *Table
	alt, altFem   *Table
}

// NewManager creates a manager without tables. Every lookup fails until
// SetMain is called.
func NewManager() *Manager {
	return &Manager{}
}

// SetMain installs the main talk table. fem may be nil.
func (m *Manager) SetMain(t, fem *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.main, m.mainFem = t, fem
}

// SetAlt installs the alternate talk table. fem may be nil.
func (m *Manager) SetAlt(t, fem *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alt, m.altFem = t, fem
}

// String returns the text for strRef. The feminine table is preferred when
// feminine is set and it has the entry.
func (m *Manager) String(strRef uint32, feminine bool) (string, bool) {
	if strRef == StrRefInvalid {
		return "", false
	}

	m.mu.RLock()
	t, fem := m.main, m.mainFem
	if strRef&AltBit != 0 {
		t, fem = m.alt, m.altFem
		strRef &^= AltBit
	}
	m.mu.RUnlock()

	if feminine && fem != nil {
		if s, ok := fem.String(strRef); ok {
			return s, true
		}
	}
	if t == nil {
		return "", false
	}
	return t.String(strRef)
}
