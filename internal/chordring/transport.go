package chordring

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/abentley/chordring/internal/ringmath"
)

// Transport is how a virtual node reaches another location, local or
// remote, for the four peer RPCs of spec.md §6.2. Implementations must
// not block holding any vnode lock; callers snapshot state, release
// their lock, then call through Transport.
type Transport interface {
	ClosestPrecedingFinger(ctx context.Context, target ringmath.Location, key *big.Int) (ringmath.Location, error)
	GetPredecessor(ctx context.Context, target ringmath.Location) (loc ringmath.Location, ok bool, err error)
	GetSuccessor(ctx context.Context, target ringmath.Location) (ringmath.Location, error)
	Notify(ctx context.Context, target, self ringmath.Location) error
}

// localRPC is the subset of *VirtualNode that LocalTransport invokes
// directly, in-process, instead of round-tripping through the network.
// Mirrors the teacher's VnodeRPC/LocalTransport split.
type localRPC interface {
	closestPrecedingFinger(key *big.Int) ringmath.Location
	getPredecessor() (ringmath.Location, bool)
	getSuccessor() ringmath.Location
	notifyWith(notifier ringmath.Location)
}

// LocalTransport shortcuts RPCs addressed to a virtual node registered
// in this process, and falls through to a remote Transport (normally a
// *TCPTransport) for everything else. One LocalTransport is shared by
// every virtual node a Server hosts.
type LocalTransport struct {
	remote Transport

	mu    sync.RWMutex
	local map[string]localRPC
}

// NewLocalTransport builds a LocalTransport that falls through to
// remote for any location it has not registered. A nil remote is
// replaced with BlackholeTransport, useful in tests that only ever
// exercise locally-registered nodes.
func NewLocalTransport(remote Transport) *LocalTransport {
	if remote == nil {
		remote = BlackholeTransport{}
	}
	return &LocalTransport{remote: remote, local: make(map[string]localRPC)}
}

// Register makes rpc answer local calls addressed to loc.
func (lt *LocalTransport) Register(loc ringmath.Location, rpc localRPC) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.local[loc.String()] = rpc
}

// Deregister removes loc from the local registry, e.g. when a virtual
// node is taken offline.
func (lt *LocalTransport) Deregister(loc ringmath.Location) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	delete(lt.local, loc.String())
}

func (lt *LocalTransport) lookup(loc ringmath.Location) (localRPC, bool) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	rpc, ok := lt.local[loc.String()]
	return rpc, ok
}

func (lt *LocalTransport) ClosestPrecedingFinger(ctx context.Context, target ringmath.Location, key *big.Int) (ringmath.Location, error) {
	if rpc, ok := lt.lookup(target); ok {
		return rpc.closestPrecedingFinger(key), nil
	}
	return lt.remote.ClosestPrecedingFinger(ctx, target, key)
}

func (lt *LocalTransport) GetPredecessor(ctx context.Context, target ringmath.Location) (ringmath.Location, bool, error) {
	if rpc, ok := lt.lookup(target); ok {
		loc, has := rpc.getPredecessor()
		return loc, has, nil
	}
	return lt.remote.GetPredecessor(ctx, target)
}

func (lt *LocalTransport) GetSuccessor(ctx context.Context, target ringmath.Location) (ringmath.Location, error) {
	if rpc, ok := lt.lookup(target); ok {
		return rpc.getSuccessor(), nil
	}
	return lt.remote.GetSuccessor(ctx, target)
}

func (lt *LocalTransport) Notify(ctx context.Context, target, self ringmath.Location) error {
	if rpc, ok := lt.lookup(target); ok {
		rpc.notifyWith(self)
		return nil
	}
	return lt.remote.Notify(ctx, target, self)
}

// BlackholeTransport answers every RPC with an error. It is the default
// remote for a LocalTransport built without one, matching the
// teacher's transport of the same name.
type BlackholeTransport struct{}

func (BlackholeTransport) ClosestPrecedingFinger(context.Context, ringmath.Location, *big.Int) (ringmath.Location, error) {
	return ringmath.Location{}, fmt.Errorf("chordring: blackhole transport: no remote configured")
}

func (BlackholeTransport) GetPredecessor(context.Context, ringmath.Location) (ringmath.Location, bool, error) {
	return ringmath.Location{}, false, fmt.Errorf("chordring: blackhole transport: no remote configured")
}

func (BlackholeTransport) GetSuccessor(context.Context, ringmath.Location) (ringmath.Location, error) {
	return ringmath.Location{}, fmt.Errorf("chordring: blackhole transport: no remote configured")
}

func (BlackholeTransport) Notify(context.Context, ringmath.Location, ringmath.Location) error {
	return fmt.Errorf("chordring: blackhole transport: no remote configured")
}
