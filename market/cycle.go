package market

import (
	"github.com/holiman/uint256"

	"racer/env"
)

// Cycle is a bounded voting window: fixed fee, escrowed pool, dense id.
type Cycle struct {
	ID         uint64
	StartBlock uint64
	EndBlock   uint64
	VotePrice  *uint256.Int
	Creator    env.Identity
	NextVoteID uint64
	Balance    *uint256.Int
}

// cycleState bundles a Cycle with the per-cycle structures that derive
// from it: the insertion-ordered symbol set, the vote log, and the
// current top-three ranking. All four are created together and live for
// as long as the registry does — cycles are never destroyed.
type cycleState struct {
	cycle   *Cycle
	symbols *SymbolIndex
	votes   *VoteStore
	top     TopThree
}

// CycleRegistry is the map of cycle id to cycle descriptor, plus the
// monotone id allocator cycles need.
type CycleRegistry struct {
	next   uint64
	cycles map[uint64]*cycleState
}

func newCycleRegistry() *CycleRegistry {
	return &CycleRegistry{cycles: make(map[uint64]*cycleState)}
}

// Create allocates a new cycle. price must be strictly positive and
// start+length must not overflow a uint64.
func (r *CycleRegistry) Create(start, length uint64, price *uint256.Int, creator env.Identity) (*Cycle, error) {
	if price == nil || price.IsZero() {
		return nil, newErr(ErrKindInvalidVotePrice)
	}
	end := start + length
	if end < start {
		return nil, newErr(ErrKindArithmeticOverflow)
	}

	c := &Cycle{
		ID:         r.next,
		StartBlock: start,
		EndBlock:   end,
		VotePrice:  new(uint256.Int).Set(price),
		Creator:    creator,
		NextVoteID: 0,
		Balance:    uint256.NewInt(0),
	}
	r.cycles[c.ID] = &cycleState{
		cycle:   c,
		symbols: newSymbolIndex(),
		votes:   newVoteStore(),
		top:     TopThree{},
	}
	r.next++
	return c, nil
}

func (r *CycleRegistry) get(id uint64) (*cycleState, bool) {
	cs, ok := r.cycles[id]
	return cs, ok
}
