// Package env is the sole capability boundary between the market engine
// and the outside world. It defines the four primitives the market
// engine consumes — current block height, caller identity, attached
// value, and outbound transfer — and intentionally stops there: RPC/ABI
// transport, wallet abstraction, event indexing, and a real
// block-height oracle are external collaborators, out of scope for this
// repository.
package env

import (
	"encoding/hex"
	"errors"

	"github.com/holiman/uint256"
)

// Identity is a 20-byte account address.
type Identity [20]byte

// String renders the identity as 0x-prefixed hex, for logs and events.
func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// IsZero reports whether id is the zero address.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// ErrTransferFailed is returned by an Adapter.Transfer implementation that
// rejects a payout; the caller maps it to market.TransferFailed.
var ErrTransferFailed = errors.New("env: transfer failed")

// Adapter is implemented by whatever hosts the market engine (a chain
// runtime, a simulator, a test harness). Every method must be callable
// synchronously and without side effects beyond Transfer.
type Adapter interface {
	// Now returns the current block height.
	Now() uint64
	// Caller returns the identity that invoked the current operation.
	Caller() Identity
	// ValueIn returns the value attached to the current call.
	ValueIn() *uint256.Int
	// Transfer moves amount to the given identity. A non-nil error aborts
	// the whole calling operation; no partial state may survive.
	Transfer(to Identity, amount *uint256.Int) error
}
