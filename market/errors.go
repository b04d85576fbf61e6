package market

import (
	"errors"
	"fmt"

	"racer/env"
	"racer/fp"
)

// ErrorKind identifies one of the market engine's failure modes.
// Every public Controller operation either succeeds completely or returns
// a *Error wrapping one of these; a failed call leaves no partial state,
// except that BatchClaimReward keeps the ids it committed before the
// environment rejected a transfer (see its doc).
type ErrorKind int

const (
	_ ErrorKind = iota
	ErrKindCycleDoesntExist
	ErrKindInvalidVotePrice
	ErrKindArithmeticOverflow
	ErrKindCycleVotingUnavailable
	ErrKindInvalidVoteFee
	ErrKindCycleDidntEnd
	ErrKindVoteDoesntExist
	ErrKindVoteAlreadyClaimed
	ErrKindVoteNotInTopThree
	ErrKindVoteNotPlacedByCaller
	ErrKindReentrancy
	ErrKindTransferFailed
	ErrKindOverflow
	ErrKindDivByZero
	ErrKindNegative
)

var kindText = map[ErrorKind]string{
	ErrKindCycleDoesntExist:       "cycle doesn't exist",
	ErrKindInvalidVotePrice:       "invalid vote price",
	ErrKindArithmeticOverflow:     "arithmetic overflow",
	ErrKindCycleVotingUnavailable: "cycle voting unavailable",
	ErrKindInvalidVoteFee:         "invalid vote fee",
	ErrKindCycleDidntEnd:          "cycle didn't end",
	ErrKindVoteDoesntExist:        "vote doesn't exist",
	ErrKindVoteAlreadyClaimed:     "vote already claimed",
	ErrKindVoteNotInTopThree:      "vote not in top three",
	ErrKindVoteNotPlacedByCaller:  "vote not placed by caller",
	ErrKindReentrancy:             "reentrancy",
	ErrKindTransferFailed:         "transfer failed",
	ErrKindOverflow:               "overflow",
	ErrKindDivByZero:              "division by zero",
	ErrKindNegative:               "negative",
}

func (k ErrorKind) String() string {
	if s, ok := kindText[k]; ok {
		return s
	}
	return "unknown error"
}

// Error is the concrete error type every Controller operation returns.
// It carries whatever identifying fields help a caller act on it, so
// callers can match on Kind with errors.As without parsing strings.
type Error struct {
	Kind     ErrorKind
	CycleID  *uint64
	VoteID   *uint64
	Required *string // e.g. the exact fee owed, for InvalidVoteFee
	Caller   *env.Identity
	cause    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.CycleID != nil {
		msg += fmt.Sprintf(" (cycle %d)", *e.CycleID)
	}
	if e.VoteID != nil {
		msg += fmt.Sprintf(" (vote %d)", *e.VoteID)
	}
	if e.Required != nil {
		msg += fmt.Sprintf(" (required %s)", *e.Required)
	}
	if e.Caller != nil {
		msg += fmt.Sprintf(" (caller %s)", e.Caller.String())
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, SomeKind-shaped sentinel) work: it matches any
// target that is also a *Error with the same Kind, ignoring the target's
// other fields and cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(kind ErrorKind) *Error { return &Error{Kind: kind} }

func errCycleDoesntExist(id uint64) *Error {
	return &Error{Kind: ErrKindCycleDoesntExist, CycleID: &id}
}

func errVoteDoesntExist(id uint64) *Error {
	return &Error{Kind: ErrKindVoteDoesntExist, VoteID: &id}
}

func errInvalidVoteFee(required string) *Error {
	return &Error{Kind: ErrKindInvalidVoteFee, Required: &required}
}

func errCycleVotingUnavailable(id uint64) *Error {
	return &Error{Kind: ErrKindCycleVotingUnavailable, CycleID: &id}
}

func errCycleDidntEnd(id uint64) *Error {
	return &Error{Kind: ErrKindCycleDidntEnd, CycleID: &id}
}

func errVoteNotPlacedByCaller(voteID uint64, caller env.Identity) *Error {
	return &Error{Kind: ErrKindVoteNotPlacedByCaller, VoteID: &voteID, Caller: &caller}
}

func errTransferFailed(cause error) *Error {
	return &Error{Kind: ErrKindTransferFailed, cause: cause}
}

func errFromFP(cause error) *Error {
	switch {
	case errors.Is(cause, fp.ErrOverflow):
		return &Error{Kind: ErrKindOverflow, cause: cause}
	case errors.Is(cause, fp.ErrDivByZero):
		return &Error{Kind: ErrKindDivByZero, cause: cause}
	case errors.Is(cause, fp.ErrNegative):
		return &Error{Kind: ErrKindNegative, cause: cause}
	default:
		return &Error{Kind: ErrKindOverflow, cause: cause}
	}
}
