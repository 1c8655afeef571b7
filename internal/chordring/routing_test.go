package chordring

import (
	"context"
	"math/big"
	"testing"

	"github.com/abentley/chordring/internal/ringmath"
	"github.com/stretchr/testify/require"
)

const testBits = 8 // mod 256, small enough to reason about by hand

// manualLocation builds a Location with an explicit identifier instead
// of hashing one, so routing tests can pin exact ring positions.
func manualLocation(port uint16, id int64) ringmath.Location {
	return ringmath.Location{
		IP:            "127.0.0.1",
		Port:          port,
		VirtualNodeID: 0,
		ID:            big.NewInt(id),
	}
}

func TestFindSuccessorSingleNode(t *testing.T) {
	local := NewLocalTransport(nil)
	a := newVirtualNode(manualLocation(9000, 10), testBits, local, nil, nil)
	local.Register(a.Self(), a)

	for _, key := range []int64{0, 10, 128, 255} {
		got, err := FindSuccessor(context.Background(), local, a.Self(), big.NewInt(key))
		require.NoError(t, err)
		require.True(t, got.Equal(a.Self()), "key %d: want self, got %s", key, got)
	}
}

func TestFindSuccessorThreeNodeRing(t *testing.T) {
	local := NewLocalTransport(nil)
	a := newVirtualNode(manualLocation(9000, 10), testBits, local, nil, nil)
	b := newVirtualNode(manualLocation(9001, 100), testBits, local, nil, nil)
	c := newVirtualNode(manualLocation(9002, 200), testBits, local, nil, nil)
	local.Register(a.Self(), a)
	local.Register(b.Self(), b)
	local.Register(c.Self(), c)

	a.setSuccessor(b.Self())
	b.setSuccessor(c.Self())
	c.setSuccessor(a.Self())

	cases := []struct {
		key  int64
		want ringmath.Location
	}{
		{50, b.Self()},
		{100, b.Self()},
		{150, c.Self()},
		{250, a.Self()},
		{5, a.Self()},
	}

	for _, tc := range cases {
		got, err := FindSuccessor(context.Background(), local, a.Self(), big.NewInt(tc.key))
		require.NoError(t, err)
		require.True(t, got.Equal(tc.want), "key %d: want %s, got %s", tc.key, tc.want, got)
	}
}

func TestFindPredecessorPropagatesRPCError(t *testing.T) {
	local := NewLocalTransport(BlackholeTransport{})
	a := manualLocation(9000, 10)

	_, err := FindSuccessor(context.Background(), local, a, big.NewInt(1))
	require.Error(t, err)
}
