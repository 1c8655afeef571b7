package chordring

import "errors"

// Error kinds the core distinguishes, per spec.md §7.
var (
	// ErrUnknownVnode is returned when a frame names a virtual node id
	// this process does not host.
	ErrUnknownVnode = errors.New("chordring: unknown virtual node id")

	// ErrResponseMismatch is the logic-assertion failure of spec.md §7:
	// a reply whose command keyword does not match the request that
	// provoked it. Treated as a network-level failure of that RPC.
	ErrResponseMismatch = errors.New("chordring: response command does not match request")

	// ErrRoutingExhausted guards against a find_predecessor loop that
	// fails to converge (a ring-consistency bug, not a normal
	// condition); it is not part of the source's termination argument,
	// which assumes convergence, but protects a periodic task from
	// hanging forever if that assumption is ever violated.
	ErrRoutingExhausted = errors.New("chordring: find_predecessor did not converge")
)
