package chordring

import (
	"context"
	"math/rand"

	"github.com/abentley/chordring/internal/ringmath"
	"github.com/go-kit/log/level"
)

// Join implements spec.md §4.4.1: find the successor of our own
// identifier starting from a bootstrap peer, adopt it as finger[0],
// and clear our predecessor so the first stabilize/notify exchange
// discovers it fresh rather than trusting a stale guess.
func (vn *VirtualNode) Join(ctx context.Context, bootstrap ringmath.Location) error {
	self := vn.Self()
	succ, err := FindSuccessor(ctx, vn.transport, bootstrap, self.ID)
	if err != nil {
		return err
	}

	vn.mu.Lock()
	vn.predecessor = nil
	vn.finger[0] = succ
	vn.mu.Unlock()

	level.Info(vn.logger).Log("msg", "joined ring", "self", self.String(), "via", bootstrap.String(), "successor", succ.String())
	return nil
}

// Stabilize implements spec.md §4.4.2: ask our successor for its
// predecessor, adopt it as our own successor if it lies strictly
// between us and our current successor, then notify whoever our
// successor now is that we exist. The successor's predecessor being
// unknown ("none") is a normal transient, not an error.
func (vn *VirtualNode) Stabilize(ctx context.Context) error {
	vn.mu.Lock()
	self := vn.self
	succ := vn.finger[0]
	vn.mu.Unlock()

	x, ok, err := vn.transport.GetPredecessor(ctx, succ)
	if err != nil {
		vn.countStabilize(err)
		return err
	}
	if !ok {
		// Successor has no predecessor yet (it just joined): a normal
		// transient, not an error, but there is nothing to notify.
		vn.countStabilize(nil)
		return nil
	}

	if ringmath.InRange(x.ID, self.ID, false, succ.ID, false) {
		vn.setSuccessor(x)
		succ = x
	}

	err = vn.transport.Notify(ctx, succ, self)
	vn.countStabilize(err)
	return err
}

func (vn *VirtualNode) countStabilize(err error) {
	if vn.metrics == nil {
		return
	}
	vn.metrics.stabilizeRuns.Inc()
	if err != nil {
		vn.metrics.stabilizeErrors.Inc()
	}
}

// FixFingers implements spec.md §4.4.3: refresh one randomly chosen
// non-zero finger slot per call by re-running find_successor against
// its start identifier.
func (vn *VirtualNode) FixFingers(ctx context.Context) error {
	vn.mu.Lock()
	self := vn.self
	bits := vn.bits
	vn.mu.Unlock()

	if bits < 2 {
		return nil
	}
	idx := 1 + rand.Intn(bits-1)

	vn.mu.Lock()
	key := vn.fingerStart[idx]
	vn.mu.Unlock()

	loc, err := FindSuccessor(ctx, vn.transport, self, key)
	vn.countFixFingers(err)
	if err != nil {
		return err
	}

	vn.mu.Lock()
	vn.finger[idx] = loc
	vn.mu.Unlock()
	return nil
}

func (vn *VirtualNode) countFixFingers(err error) {
	if vn.metrics == nil {
		return
	}
	vn.metrics.fixFingersRuns.Inc()
	if err != nil {
		vn.metrics.fixFingersErrors.Inc()
	}
}
