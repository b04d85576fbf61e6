// Package market implements the Racer time-weighted prediction market:
// cycle lifecycle, vote ingestion and fee custody, the per-cycle top-three
// ranking, the post-cycle fixed-point reward computation, and the claim
// protocol including the late-vote reassignment rule. Controller is the
// only exported entry point; every other type in this package exists to
// support it.
package market

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"racer/env"
	"racer/fp"
)

// Controller is the market's public surface: create_cycle, place_vote,
// claim_reward, batch_claim_reward, is_claim_available, plus read-only
// queries. It is not safe for concurrent use by multiple goroutines; the
// whole engine assumes the single-threaded cooperative transaction model
// the rest of this package is built around — callers that need concurrent
// access must serialize calls with an external mutex.
type Controller struct {
	adapter    env.Adapter
	registry   *CycleRegistry
	emitter    Emitter
	metrics    *metrics
	claimGuard reentrancyGuard
}

// NewController wires a Controller to its environment adapter. log may be
// nil, in which case events are still counted in metrics but nothing is
// logged.
func NewController(adapter env.Adapter, log *zap.Logger) *Controller {
	return &Controller{
		adapter:  adapter,
		registry: newCycleRegistry(),
		emitter:  NewEmitter(log),
		metrics:  newMetrics(),
	}
}

// CreateCycle opens a new voting window [start, start+length] at the
// given per-vote fee, owned by the current caller.
func (c *Controller) CreateCycle(start, length uint64, price *uint256.Int) (uint64, error) {
	creator := c.adapter.Caller()
	cycle, err := c.registry.Create(start, length, price, creator)
	if err != nil {
		return 0, err
	}
	c.emitter.CycleCreated(creator, cycle.ID, cycle.StartBlock, length, cycle.VotePrice.String())
	return cycle.ID, nil
}

// PlaceVote records a vote for symbol in cycleID, paid for by the value
// attached to the current call, and returns the new vote's id.
func (c *Controller) PlaceVote(cycleID uint64, symbol Symbol) (uint64, error) {
	cs, ok := c.registry.get(cycleID)
	if !ok {
		return 0, errCycleDoesntExist(cycleID)
	}

	now := c.adapter.Now()
	if now < cs.cycle.StartBlock || now > cs.cycle.EndBlock {
		return 0, errCycleVotingUnavailable(cycleID)
	}

	value := c.adapter.ValueIn()
	if value.Cmp(cs.cycle.VotePrice) != 0 {
		return 0, errInvalidVoteFee(cs.cycle.VotePrice.String())
	}

	placer := c.adapter.Caller()
	voteID := cs.votes.Append(&Vote{
		Symbol:        symbol,
		Placer:        placer,
		CycleID:       cycleID,
		PlacedAtBlock: now,
	})
	cs.cycle.NextVoteID = voteID + 1
	cs.symbols.Insert(symbol)
	cs.cycle.Balance = new(uint256.Int).Add(cs.cycle.Balance, cs.cycle.VotePrice)
	cs.top = recomputeTopThree(cs.symbols, cs.votes)

	c.metrics.votesPlaced.Inc()
	c.metrics.openBalance.Add(u256Float(cs.cycle.VotePrice))
	c.emitter.VotePlaced(placer, voteID, cycleID, symbol)
	return voteID, nil
}

// IsClaimAvailable reports whether the current caller could successfully
// claim voteID in cycleID right now. It never returns a non-nil error
// except when cycleID itself doesn't exist — every other unmet condition
// (cycle still open, vote missing, vote outside the top three, wrong
// caller under the late-vote rule) simply yields false — this is a
// read-only availability check, not itself a claim attempt.
func (c *Controller) IsClaimAvailable(cycleID, voteID uint64) (bool, error) {
	cs, ok := c.registry.get(cycleID)
	if !ok {
		return false, errCycleDoesntExist(cycleID)
	}
	if c.adapter.Now() <= cs.cycle.EndBlock {
		return false, nil
	}
	v, ok := cs.votes.Get(voteID)
	if !ok {
		return false, nil
	}
	place, ok := placeOf(v, cs.top, cs.symbols)
	if !ok {
		return false, nil
	}
	claimant, err := eligibleClaimant(cs, v, place)
	if err != nil {
		return false, nil
	}
	return claimant == c.adapter.Caller(), nil
}

// ClaimReward pays out voteID's reward to whoever the late-vote rule
// names as eligible, provided that's the current caller.
func (c *Controller) ClaimReward(cycleID, voteID uint64) (*uint256.Int, error) {
	if err := c.claimGuard.enter(); err != nil {
		return nil, err
	}
	defer c.claimGuard.exit()
	return c.claimOne(cycleID, voteID)
}

// BatchClaimReward claims every id in voteIDs under a single reentrancy
// guard acquisition. The whole batch is staged against the cycle's
// current, unmutated state before anything commits: if any id fails a
// check (cycle not ended, vote missing or already claimed, not in the top
// three, wrong caller), the batch aborts with zero mutations and zero
// transfers. Only once every id in the batch stages clean does it commit
// them in order, one claimOne per id, so later ids still see earlier ids'
// balance deduction within the same batch. Staging does not cover a
// transfer the environment rejects during the commit: that id's own
// effects are rolled back, but ids committed before it stay claimed and
// paid, and their amounts are returned alongside the error. The returned
// slice holds the amounts claimed, one per voteIDs entry, on full success.
func (c *Controller) BatchClaimReward(cycleID uint64, voteIDs []uint64) ([]*uint256.Int, error) {
	if err := c.claimGuard.enter(); err != nil {
		return nil, err
	}
	defer c.claimGuard.exit()

	cs, ok := c.registry.get(cycleID)
	if !ok {
		return nil, errCycleDoesntExist(cycleID)
	}
	if err := c.stageBatch(cs, voteIDs, c.adapter.Caller()); err != nil {
		return nil, err
	}

	amounts := make([]*uint256.Int, 0, len(voteIDs))
	for _, id := range voteIDs {
		amt, err := c.claimOne(cycleID, id)
		if err != nil {
			return amounts, err
		}
		amounts = append(amounts, amt)
	}
	return amounts, nil
}

// stageBatch replays every check claimOne makes before it mutates
// anything, for every id in voteIDs, against the cycle's real state —
// without touching it. A vote id repeated within the same batch is
// caught by staged, since the real Claimed flag only flips once the
// batch actually commits. Reward amounts computed here are discarded;
// staging only needs to know whether each id would succeed, and that
// answer doesn't depend on the balance deduction a given id's own
// commit would make (baseReward falls as balance falls, so checking
// against the larger, pre-batch balance can only overstate an amount,
// never turn a commit that would succeed into one that overflows).
func (c *Controller) stageBatch(cs *cycleState, voteIDs []uint64, caller env.Identity) error {
	if c.adapter.Now() <= cs.cycle.EndBlock {
		return errCycleDidntEnd(cs.cycle.ID)
	}

	staged := make(map[uint64]bool, len(voteIDs))
	for _, id := range voteIDs {
		v, ok := cs.votes.Get(id)
		if !ok {
			return errVoteDoesntExist(id)
		}
		if v.Claimed || staged[id] {
			return newErr(ErrKindVoteAlreadyClaimed)
		}

		_, place, err := calculateReward(cs, id)
		if err != nil {
			return err
		}
		claimant, err := eligibleClaimant(cs, v, place)
		if err != nil {
			return err
		}
		if claimant != caller {
			return errVoteNotPlacedByCaller(id, caller)
		}
		staged[id] = true
	}
	return nil
}

func (c *Controller) claimOne(cycleID, voteID uint64) (*uint256.Int, error) {
	cs, ok := c.registry.get(cycleID)
	if !ok {
		return nil, errCycleDoesntExist(cycleID)
	}
	if c.adapter.Now() <= cs.cycle.EndBlock {
		return nil, errCycleDidntEnd(cycleID)
	}
	v, ok := cs.votes.Get(voteID)
	if !ok {
		return nil, errVoteDoesntExist(voteID)
	}
	if v.Claimed {
		return nil, newErr(ErrKindVoteAlreadyClaimed)
	}

	amount, place, err := calculateReward(cs, voteID)
	if err != nil {
		return nil, err
	}

	claimant, err := eligibleClaimant(cs, v, place)
	if err != nil {
		return nil, err
	}
	caller := c.adapter.Caller()
	if claimant != caller {
		return nil, errVoteNotPlacedByCaller(voteID, caller)
	}

	// checks-effects-interactions: mark claimed and deduct balance before
	// the external transfer, which may re-enter the controller.
	prevBalance := new(uint256.Int).Set(cs.cycle.Balance)
	if cs.cycle.Balance.Cmp(amount) < 0 {
		cs.cycle.Balance = uint256.NewInt(0)
	} else {
		cs.cycle.Balance = new(uint256.Int).Sub(cs.cycle.Balance, amount)
	}
	v.Claimed = true

	if err := c.adapter.Transfer(caller, amount); err != nil {
		v.Claimed = false
		cs.cycle.Balance = prevBalance
		return nil, errTransferFailed(err)
	}

	c.metrics.rewardsClaimed.Inc()
	c.metrics.rewardAmounts.Observe(u256Float(amount))
	c.metrics.openBalance.Sub(u256Float(prevBalance) - u256Float(cs.cycle.Balance))
	c.emitter.VoteClaimed(caller, cycleID, v.Symbol, amount.String())
	return amount, nil
}

// eligibleClaimant applies the late-vote rule: first place is always
// claimable by the placer; second/third place are reassigned to the
// cycle's creator once their timeliness crosses the 2/3 and 1/3
// thresholds, respectively.
func eligibleClaimant(cs *cycleState, v *Vote, place int) (env.Identity, error) {
	if place == 0 {
		return v.Placer, nil
	}

	t, err := timeliness(v, cs.cycle)
	if err != nil {
		return env.Identity{}, errFromFP(err)
	}

	var threshold fp.Fixed
	switch place {
	case 1:
		threshold, err = fp.DivuUint64(2, 3)
	case 2:
		threshold, err = fp.DivuUint64(1, 3)
	default:
		return v.Placer, nil
	}
	if err != nil {
		return env.Identity{}, errFromFP(err)
	}

	if fp.Cmp(t, threshold) >= 0 {
		return cs.cycle.Creator, nil
	}
	return v.Placer, nil
}

// CycleView is a read-only snapshot of a Cycle, safe to hand to callers
// without exposing the Controller's internal maps.
type CycleView struct {
	ID         uint64
	StartBlock uint64
	EndBlock   uint64
	VotePrice  *uint256.Int
	Creator    env.Identity
	NextVoteID uint64
	Balance    *uint256.Int
}

// GetCycle returns a snapshot of cycleID's descriptor.
func (c *Controller) GetCycle(cycleID uint64) (CycleView, error) {
	cs, ok := c.registry.get(cycleID)
	if !ok {
		return CycleView{}, errCycleDoesntExist(cycleID)
	}
	return CycleView{
		ID:         cs.cycle.ID,
		StartBlock: cs.cycle.StartBlock,
		EndBlock:   cs.cycle.EndBlock,
		VotePrice:  new(uint256.Int).Set(cs.cycle.VotePrice),
		Creator:    cs.cycle.Creator,
		NextVoteID: cs.cycle.NextVoteID,
		Balance:    new(uint256.Int).Set(cs.cycle.Balance),
	}, nil
}

// SymbolVoteCount returns how many votes symbol has received in cycleID.
func (c *Controller) SymbolVoteCount(cycleID uint64, symbol Symbol) (uint64, error) {
	cs, ok := c.registry.get(cycleID)
	if !ok {
		return 0, errCycleDoesntExist(cycleID)
	}
	return cs.votes.CountFor(symbol), nil
}

// TotalVoteCount returns the total number of votes placed in cycleID.
func (c *Controller) TotalVoteCount(cycleID uint64) (uint64, error) {
	cs, ok := c.registry.get(cycleID)
	if !ok {
		return 0, errCycleDoesntExist(cycleID)
	}
	return cs.votes.Total(), nil
}

// CycleBalance returns cycleID's current escrowed balance.
func (c *Controller) CycleBalance(cycleID uint64) (*uint256.Int, error) {
	cs, ok := c.registry.get(cycleID)
	if !ok {
		return nil, errCycleDoesntExist(cycleID)
	}
	return new(uint256.Int).Set(cs.cycle.Balance), nil
}

// TopThreeSymbols returns the symbols currently ranked 1st, 2nd, and 3rd
// in cycleID. When fewer than three distinct symbols have been voted on,
// the unused slots alias to the lower-ranked real symbol.
func (c *Controller) TopThreeSymbols(cycleID uint64) ([3]Symbol, error) {
	cs, ok := c.registry.get(cycleID)
	if !ok {
		return [3]Symbol{}, errCycleDoesntExist(cycleID)
	}
	s0, _ := cs.symbols.Get(cs.top.P0)
	s1, _ := cs.symbols.Get(cs.top.P1)
	s2, _ := cs.symbols.Get(cs.top.P2)
	return [3]Symbol{s0, s1, s2}, nil
}
