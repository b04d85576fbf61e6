package market

import (
	"fmt"

	"go.uber.org/zap"

	"racer/env"
)

// Emitter reports the three market events: one terse log line per event
// (messages cc, vp, vc), backed by zap so the lines carry structured fields
// instead of being the only record of what happened.
type Emitter interface {
	CycleCreated(creator env.Identity, id, start, length uint64, price string)
	VotePlaced(placer env.Identity, voteID, cycleID uint64, symbol Symbol)
	VoteClaimed(claimer env.Identity, cycleID uint64, symbol Symbol, amount string)
}

type zapEmitter struct {
	log *zap.Logger
}

// NewEmitter wraps a *zap.Logger as an Emitter. A nil logger degrades to
// zap.NewNop(), so an Emitter is always safe to call even when nothing
// is listening.
func NewEmitter(log *zap.Logger) Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &zapEmitter{log: log}
}

func (e *zapEmitter) CycleCreated(creator env.Identity, id, start, length uint64, price string) {
	e.log.Info("cc",
		zap.String("creator", creator.String()),
		zap.Uint64("id", id),
		zap.Uint64("start", start),
		zap.Uint64("length", length),
		zap.String("price", price),
	)
}

func (e *zapEmitter) VotePlaced(placer env.Identity, voteID, cycleID uint64, symbol Symbol) {
	e.log.Info("vp",
		zap.String("placer", placer.String()),
		zap.Uint64("voteId", voteID),
		zap.Uint64("cycleId", cycleID),
		zap.String("symbol", symbolString(symbol)),
	)
}

func (e *zapEmitter) VoteClaimed(claimer env.Identity, cycleID uint64, symbol Symbol, amount string) {
	e.log.Info("vc",
		zap.String("claimer", claimer.String()),
		zap.Uint64("cycleId", cycleID),
		zap.String("symbol", symbolString(symbol)),
		zap.String("amount", amount),
	)
}

func symbolString(s Symbol) string {
	return fmt.Sprintf("%q", string(s[:]))
}
