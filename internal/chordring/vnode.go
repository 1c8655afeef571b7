package chordring

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/abentley/chordring/internal/ringmath"
	"github.com/go-kit/log"
)

// VirtualNode holds one virtual node's ring state: its own location,
// predecessor pointer, and finger table. Construction matches spec.md
// §3's Lifecycle and Invariants 1-4 exactly: finger[i] starts as self,
// predecessor starts as self, fingerStart[i] = (self.ID + 2^i) mod 2^m.
// One mutex guards all of it; every method here is the "snapshot,
// release, RPC, reacquire, install" discipline's local half.
type VirtualNode struct {
	self ringmath.Location
	bits int

	mu          sync.Mutex
	predecessor *ringmath.Location // nil means "none"
	finger      []ringmath.Location
	fingerStart []*big.Int

	transport Transport
	logger    log.Logger
	metrics   *metrics
}

func newVirtualNode(self ringmath.Location, bits int, transport Transport, logger log.Logger, m *metrics) *VirtualNode {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	finger := make([]ringmath.Location, bits)
	fingerStart := make([]*big.Int, bits)
	for i := 0; i < bits; i++ {
		finger[i] = self
		fingerStart[i] = ringmath.AddPowerMod(self.ID, i, bits)
	}
	pred := self
	return &VirtualNode{
		self:        self,
		bits:        bits,
		predecessor: &pred,
		finger:      finger,
		fingerStart: fingerStart,
		transport:   transport,
		logger:      logger,
		metrics:     m,
	}
}

// Self returns this virtual node's own location.
func (vn *VirtualNode) Self() ringmath.Location {
	return vn.self
}

func (vn *VirtualNode) getPredecessor() (ringmath.Location, bool) {
	vn.mu.Lock()
	defer vn.mu.Unlock()
	if vn.predecessor == nil {
		return ringmath.Location{}, false
	}
	return *vn.predecessor, true
}

func (vn *VirtualNode) getSuccessor() ringmath.Location {
	vn.mu.Lock()
	defer vn.mu.Unlock()
	return vn.finger[0]
}

func (vn *VirtualNode) setSuccessor(loc ringmath.Location) {
	vn.mu.Lock()
	vn.finger[0] = loc
	vn.mu.Unlock()
}

// closestPrecedingFinger scans the finger table from the far end back
// toward self for the closest known node preceding key, per spec.md
// §3's routing table definition. Falls back to self when nothing
// qualifies, which is always a safe answer.
func (vn *VirtualNode) closestPrecedingFinger(key *big.Int) ringmath.Location {
	vn.mu.Lock()
	self := vn.self
	snapshot := append([]ringmath.Location(nil), vn.finger...)
	vn.mu.Unlock()

	for i := len(snapshot) - 1; i >= 0; i-- {
		f := snapshot[i]
		if ringmath.InRange(f.ID, self.ID, false, key, false) {
			return f
		}
	}
	return self
}

// notifyWith is the local half of the NOTIFY RPC: adopt notifier as our
// predecessor if we have none, or if notifier lies strictly between our
// current predecessor and us.
func (vn *VirtualNode) notifyWith(notifier ringmath.Location) {
	vn.mu.Lock()
	defer vn.mu.Unlock()
	if vn.predecessor == nil || ringmath.InRange(notifier.ID, vn.predecessor.ID, false, vn.self.ID, false) {
		loc := notifier
		vn.predecessor = &loc
	}
}

// infoText renders the INFO diagnostic body: self, predecessor,
// successor, and the full finger table, adapted from original_source's
// to_info(). Kept free of whitespace so RES INFO survives the
// "spaces stripped on parse" round trip cleanly.
func (vn *VirtualNode) infoText() string {
	vn.mu.Lock()
	self := vn.self
	pred := vn.predecessor
	fingerCopy := append([]ringmath.Location(nil), vn.finger...)
	vn.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(self.String())
	sb.WriteString("|predecessor=")
	if pred != nil {
		sb.WriteString(pred.String())
	} else {
		sb.WriteString("NONE")
	}
	sb.WriteString("|successor=")
	sb.WriteString(fingerCopy[0].String())
	for i, f := range fingerCopy {
		fmt.Fprintf(&sb, "|finger[%d]=%s", i, f.String())
	}
	return sb.String()
}
