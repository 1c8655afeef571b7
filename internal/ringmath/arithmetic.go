// Package ringmath implements the identifier algebra of the Chord ring:
// hashing strings onto the ring, reducing them modulo the identifier
// space, and testing ring-arc membership.
package ringmath

import (
	"crypto/sha256"
	"math/big"
)

// Hash returns the SHA-256 digest of s as a big-endian integer.
func Hash(s string) *big.Int {
	sum := sha256.Sum256([]byte(s))
	return new(big.Int).SetBytes(sum[:])
}

// modulus returns 2^bits.
func modulus(bits int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(bits))
}

// ComputeIdentifier hashes s and reduces it modulo 2^bits, placing it
// on the ring Z / 2^bits Z.
func ComputeIdentifier(bits int, s string) *big.Int {
	return new(big.Int).Mod(Hash(s), modulus(bits))
}

// AddPowerMod returns (id + 2^exp) mod 2^bits, the finger-start formula
// of spec.md §3: finger[i].start = (n.id + 2^i) mod 2^m.
func AddPowerMod(id *big.Int, exp int, bits int) *big.Int {
	sum := new(big.Int).Add(id, new(big.Int).Lsh(big.NewInt(1), uint(exp)))
	return sum.Mod(sum, modulus(bits))
}

// InRange reports whether n lies on the clockwise ring arc running from
// left to right, with inclusivity controlled independently at each
// border. The three cases below must be reproduced exactly:
//
//   - left < right (non-wrapping): the arc is the ordinary integer
//     interval, AND of the two border conditions.
//   - left > right (wrapping): the arc wraps through zero, OR of the
//     two border conditions (two disjoint integer intervals unioned).
//   - left == right (degenerate): true iff either border is inclusive,
//     or n is simply not equal to left.
func InRange(n, left *big.Int, leftIncl bool, right *big.Int, rightIncl bool) bool {
	cmp := left.Cmp(right)

	leftCond := func() bool {
		if leftIncl {
			return n.Cmp(left) >= 0
		}
		return n.Cmp(left) > 0
	}
	rightCond := func() bool {
		if rightIncl {
			return n.Cmp(right) <= 0
		}
		return n.Cmp(right) < 0
	}

	switch {
	case cmp < 0:
		return leftCond() && rightCond()
	case cmp > 0:
		return leftCond() || rightCond()
	default:
		if leftIncl || rightIncl {
			return true
		}
		return n.Cmp(left) != 0
	}
}
