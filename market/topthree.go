package market

// TopThree holds positional references into a cycle's SymbolIndex naming
// the three highest-vote symbols, ranked p0 >= p1 >= p2 by vote count.
// When fewer than three distinct symbols exist, unused slots alias to
// p0 (or to p1 if only p2 is unused).
type TopThree struct {
	P0, P1, P2 int
}

// recomputeTopThree re-derives TopThree from scratch with a single linear
// scan over idx in insertion order. Each symbol
// displaces a slot only when its vote count is strictly greater than
// that slot's current occupant, so ties are always won by the
// earlier-inserted symbol. Slots start unfilled (not pre-seeded to
// index 0) so that a later symbol tied with an already-seated one can
// still claim a lower-ranked, still-unfilled slot instead of being
// folded into whichever symbol happened to arrive first.
func recomputeTopThree(idx *SymbolIndex, votes *VoteStore) TopThree {
	const unfilled = -1
	p0, p1, p2 := unfilled, unfilled, unfilled

	countAt := func(slot int) uint64 {
		s, _ := idx.Get(slot)
		return votes.CountFor(s)
	}

	for i := 0; i < idx.Count(); i++ {
		s, _ := idx.Get(i)
		c := votes.CountFor(s)
		switch {
		case p0 == unfilled || c > countAt(p0):
			p2, p1, p0 = p1, p0, i
		case p1 == unfilled || c > countAt(p1):
			p2, p1 = p1, i
		case p2 == unfilled || c > countAt(p2):
			p2 = i
		}
	}

	if p0 == unfilled {
		p0 = 0
	}
	if p1 == unfilled {
		p1 = p0
	}
	if p2 == unfilled {
		p2 = p1
	}
	return TopThree{P0: p0, P1: p1, P2: p2}
}

// placeOf returns the rank (0, 1, or 2) of v's symbol within top, checking
// p0 before p1 before p2 so that a symbol occupying an aliased slot is
// always reported at its best (lowest) rank.
func placeOf(v *Vote, top TopThree, idx *SymbolIndex) (int, bool) {
	if s, ok := idx.Get(top.P0); ok && s == v.Symbol {
		return 0, true
	}
	if s, ok := idx.Get(top.P1); ok && s == v.Symbol {
		return 1, true
	}
	if s, ok := idx.Get(top.P2); ok && s == v.Symbol {
		return 2, true
	}
	return 0, false
}
