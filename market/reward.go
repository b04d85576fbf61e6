package market

import (
	"math/big"

	"github.com/holiman/uint256"

	"racer/fp"
)

// timeliness computes t(v) = divu(placed_at_block - start_block,
// end_block - start_block) ∈ [0,1]. Both operands are safe as uint64
// subtractions: placed_at_block is constrained to [start,end] at
// placement time, and end >= start is enforced at cycle creation.
func timeliness(v *Vote, c *Cycle) (fp.Fixed, error) {
	num := v.PlacedAtBlock - c.StartBlock
	den := c.EndBlock - c.StartBlock
	return fp.DivuUint64(num, den)
}

// curvePoint is φ(v, place): a quadratic penalty for how late v landed,
// steepest for first place and shallowest for third.
func curvePoint(t fp.Fixed, place int) (fp.Fixed, error) {
	one, err := fp.FromUint(1)
	if err != nil {
		return fp.Fixed{}, err
	}

	switch place {
	case 0:
		diff, err := fp.Sub(t, one)
		if err != nil {
			return fp.Fixed{}, err
		}
		return fp.Pow(diff, 2)
	case 1:
		half, err := fp.DivuUint64(1, 2)
		if err != nil {
			return fp.Fixed{}, err
		}
		tHalf, err := fp.Mul(t, half)
		if err != nil {
			return fp.Fixed{}, err
		}
		diff, err := fp.Sub(tHalf, half)
		if err != nil {
			return fp.Fixed{}, err
		}
		return fp.Pow(diff, 2)
	case 2:
		third, err := fp.DivuUint64(1, 3)
		if err != nil {
			return fp.Fixed{}, err
		}
		tThird, err := fp.Mul(t, third)
		if err != nil {
			return fp.Fixed{}, err
		}
		diff, err := fp.Sub(tThird, third)
		if err != nil {
			return fp.Fixed{}, err
		}
		return fp.Pow(diff, 2)
	default:
		return fp.Fixed{}, fp.ErrNegative
	}
}

// baseReward is B(c) = divu(balance, next_vote_id): the pool split evenly
// across every vote ever placed, before shaping by timeliness.
func baseReward(cs *cycleState) (fp.Fixed, error) {
	bal := cs.cycle.Balance.ToBig()
	nv := new(big.Int).SetUint64(cs.cycle.NextVoteID)
	return fp.Divu(bal, nv)
}

// normalizationFactor is N(c), the reciprocal of the per-vote average
// curve point across the top-three voters. The third term's guard is
// p2 != p0, not p2 != p1 — a deliberate anti-double-count rule for the
// all-aliased case; see DESIGN.md.
func normalizationFactor(cs *cycleState) (fp.Fixed, error) {
	sym0, _ := cs.symbols.Get(cs.top.P0)

	s, err := sumCurve(cs, sym0, 0)
	if err != nil {
		return fp.Fixed{}, err
	}

	if cs.top.P1 != cs.top.P0 {
		sym1, _ := cs.symbols.Get(cs.top.P1)
		add, err := sumCurve(cs, sym1, 1)
		if err != nil {
			return fp.Fixed{}, err
		}
		s, err = fp.Add(s, add)
		if err != nil {
			return fp.Fixed{}, err
		}
	}

	if cs.top.P2 != cs.top.P0 {
		sym2, _ := cs.symbols.Get(cs.top.P2)
		add, err := sumCurve(cs, sym2, 2)
		if err != nil {
			return fp.Fixed{}, err
		}
		s, err = fp.Add(s, add)
		if err != nil {
			return fp.Fixed{}, err
		}
	}

	nv, err := fp.FromUint(cs.cycle.NextVoteID)
	if err != nil {
		return fp.Fixed{}, err
	}
	s, err = fp.Div(s, nv)
	if err != nil {
		return fp.Fixed{}, err
	}
	one, err := fp.FromUint(1)
	if err != nil {
		return fp.Fixed{}, err
	}
	return fp.Div(one, s)
}

func sumCurve(cs *cycleState, sym Symbol, place int) (fp.Fixed, error) {
	var sum fp.Fixed
	for _, id := range cs.votes.IDsFor(sym) {
		v, _ := cs.votes.Get(id)
		t, err := timeliness(v, cs.cycle)
		if err != nil {
			return fp.Fixed{}, err
		}
		phi, err := curvePoint(t, place)
		if err != nil {
			return fp.Fixed{}, err
		}
		sum, err = fp.Add(sum, phi)
		if err != nil {
			return fp.Fixed{}, err
		}
	}
	return sum, nil
}

// calculateReward is calculate_reward(cycle_id, vote_id): pure over the
// cycle's final state, idempotent, deterministic. It returns the payable
// amount and the vote's place, or an error if the vote isn't in the top
// three or a fixed-point fault occurred.
func calculateReward(cs *cycleState, voteID uint64) (*uint256.Int, int, error) {
	v, ok := cs.votes.Get(voteID)
	if !ok {
		return nil, 0, errVoteDoesntExist(voteID)
	}
	place, ok := placeOf(v, cs.top, cs.symbols)
	if !ok {
		return nil, 0, newErr(ErrKindVoteNotInTopThree)
	}

	t, err := timeliness(v, cs.cycle)
	if err != nil {
		return nil, 0, errFromFP(err)
	}
	phi, err := curvePoint(t, place)
	if err != nil {
		return nil, 0, errFromFP(err)
	}
	b, err := baseReward(cs)
	if err != nil {
		return nil, 0, errFromFP(err)
	}
	n, err := normalizationFactor(cs)
	if err != nil {
		return nil, 0, errFromFP(err)
	}

	r, err := fp.Mul(b, phi)
	if err != nil {
		return nil, 0, errFromFP(err)
	}
	r, err = fp.Mul(r, n)
	if err != nil {
		return nil, 0, errFromFP(err)
	}
	amount, err := fp.ToUint(r)
	if err != nil {
		return nil, 0, errFromFP(err)
	}
	return uint256.MustFromBig(amount), place, nil
}
