package env

import "github.com/holiman/uint256"

// MockAdapter is an in-memory Adapter used by tests and the cmd/racer
// scenario runner. Block height and caller are mutable fields the test
// (or scenario script) drives directly, and transfers post into a
// per-identity ledger instead of a real chain.
type MockAdapter struct {
	block   uint64
	caller  Identity
	value   *uint256.Int
	ledger  map[Identity]*uint256.Int
	failing map[Identity]bool
}

// NewMockAdapter returns a MockAdapter starting at block height 0.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		value:   uint256.NewInt(0),
		ledger:  make(map[Identity]*uint256.Int),
		failing: make(map[Identity]bool),
	}
}

// SetBlock moves the simulated chain to the given height. Heights only
// need to move forward for the market engine's invariants to hold, but
// the mock does not enforce that — tests that need monotonic blocks
// enforce it themselves.
func (m *MockAdapter) SetBlock(h uint64) { m.block = h }

// SetCaller selects which identity subsequent calls are made as.
func (m *MockAdapter) SetCaller(id Identity) { m.caller = id }

// SetValueIn selects the value attached to the next call (e.g. a vote fee).
func (m *MockAdapter) SetValueIn(v *uint256.Int) { m.value = v }

// FailTransfersTo makes Transfer error whenever it targets id, to exercise
// the "abort the whole operation" rule on a failed transfer.
func (m *MockAdapter) FailTransfersTo(id Identity, fail bool) { m.failing[id] = fail }

// Balance returns how much a given identity has received so far.
func (m *MockAdapter) Balance(id Identity) *uint256.Int {
	if b, ok := m.ledger[id]; ok {
		return new(uint256.Int).Set(b)
	}
	return uint256.NewInt(0)
}

func (m *MockAdapter) Now() uint64 { return m.block }

func (m *MockAdapter) Caller() Identity { return m.caller }

func (m *MockAdapter) ValueIn() *uint256.Int {
	if m.value == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(m.value)
}

func (m *MockAdapter) Transfer(to Identity, amount *uint256.Int) error {
	if m.failing[to] {
		return ErrTransferFailed
	}
	cur, ok := m.ledger[to]
	if !ok {
		cur = uint256.NewInt(0)
	}
	m.ledger[to] = new(uint256.Int).Add(cur, amount)
	return nil
}
