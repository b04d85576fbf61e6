package market

import "racer/env"

// Vote is a single placement of a cycle's fee on a symbol. Votes are
// append-only: after Append, the only field ever mutated again is
// Claimed, and then exactly once, false to true.
type Vote struct {
	ID            uint64
	Symbol        Symbol
	Placer        env.Identity
	Claimed       bool
	CycleID       uint64
	PlacedAtBlock uint64
}

// SymbolStats is the per-cycle, per-symbol view: the symbol's stable
// position in the SymbolIndex, its running vote count, and the ordered
// list of vote ids that targeted it. Racer derives it on demand from
// VoteStore + SymbolIndex rather than maintaining a third copy, which
// keeps vote_count always equal to len(votes_of(c,s)) by construction.
type SymbolStats struct {
	Index     int
	VoteCount uint64
	VoteIDs   []uint64
}

// VoteStore is a per-cycle append-only log of votes, indexed by vote_id,
// plus a secondary index of vote ids per symbol.
type VoteStore struct {
	votes    []*Vote
	bySymbol map[Symbol][]uint64
}

func newVoteStore() *VoteStore {
	return &VoteStore{bySymbol: make(map[Symbol][]uint64)}
}

// Append records v under the next vote id and returns it. The caller is
// responsible for having set every field of v except ID.
func (vs *VoteStore) Append(v *Vote) uint64 {
	id := uint64(len(vs.votes))
	v.ID = id
	vs.votes = append(vs.votes, v)
	vs.bySymbol[v.Symbol] = append(vs.bySymbol[v.Symbol], id)
	return id
}

// Get returns the vote with the given id.
func (vs *VoteStore) Get(id uint64) (*Vote, bool) {
	if id >= uint64(len(vs.votes)) {
		return nil, false
	}
	return vs.votes[id], true
}

// IDsFor returns the vote ids that targeted s, in placement order.
func (vs *VoteStore) IDsFor(s Symbol) []uint64 {
	return vs.bySymbol[s]
}

// CountFor returns how many votes targeted s.
func (vs *VoteStore) CountFor(s Symbol) uint64 {
	return uint64(len(vs.bySymbol[s]))
}

// Total returns the number of votes appended so far.
func (vs *VoteStore) Total() uint64 {
	return uint64(len(vs.votes))
}

// Stats assembles the SymbolStats view for s within idx.
func (vs *VoteStore) Stats(idx *SymbolIndex, s Symbol) (SymbolStats, bool) {
	i, ok := idx.Pos(s)
	if !ok {
		return SymbolStats{}, false
	}
	ids := vs.IDsFor(s)
	return SymbolStats{Index: i, VoteCount: uint64(len(ids)), VoteIDs: ids}, true
}
