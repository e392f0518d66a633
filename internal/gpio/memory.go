package gpio

import "sync"

// MemoryDriver latches outputs in memory. Used for -simulate and in tests.
type MemoryDriver struct {
	mu     sync.Mutex
	state  map[Line]bool
	writes int
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{state: make(map[Line]bool)}
}

func (m *MemoryDriver) Set(line Line, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[line] = active
	m.writes++
}

func (m *MemoryDriver) Active(line Line) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[line]
}

// Writes counts Set calls.
func (m *MemoryDriver) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
