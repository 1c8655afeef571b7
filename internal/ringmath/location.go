package ringmath

import (
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
)

// Location identifies a Chord peer: the physical (ip, port) it listens
// on, the index of the virtual node hosted there, and the derived ring
// identifier. ID is always a pure function of (IP, Port, VirtualNodeID)
// and must never be trusted across the wire — callers reconstruct it
// with NewLocation/ParseLocation instead of accepting it directly.
type Location struct {
	IP            string
	Port          uint16
	VirtualNodeID uint8
	ID            *big.Int
}

// canonical returns the "ip:port:vnid" string identifiers are derived
// from and that String always serializes to.
func canonical(ip string, port uint16, vnid uint8) string {
	return fmt.Sprintf("%s:%d:%d", ip, port, vnid)
}

// NewLocation builds a Location, deriving its identifier from the
// canonical (ip, port, vnid) triple.
func NewLocation(bits int, ip string, port uint16, vnid uint8) Location {
	return Location{
		IP:            ip,
		Port:          port,
		VirtualNodeID: vnid,
		ID:            ComputeIdentifier(bits, canonical(ip, port, vnid)),
	}
}

// ParseLocation accepts "ip:port" (virtual node id defaults to 0) or
// "ip:port:vnid"; any other shape is an error. The identifier is always
// recomputed, never read off the wire.
func ParseLocation(bits int, s string) (Location, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Location{}, fmt.Errorf("%w: %q", ErrBadLocation, s)
	}

	ip := parts[0]
	port, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Location{}, fmt.Errorf("%w: bad port in %q: %v", ErrBadLocation, s, err)
	}

	var vnid uint64
	if len(parts) == 3 {
		vnid, err = strconv.ParseUint(parts[2], 10, 8)
		if err != nil {
			return Location{}, fmt.Errorf("%w: bad virtual node id in %q: %v", ErrBadLocation, s, err)
		}
	}

	return NewLocation(bits, ip, uint16(port), uint8(vnid)), nil
}

// String always serializes the three-field form: ip:port:vnid.
func (l Location) String() string {
	return canonical(l.IP, l.Port, l.VirtualNodeID)
}

// ToAddr resolves the Location to a dialable TCP address, rejecting
// anything that isn't a parseable IPv4 or IPv6 literal.
func (l Location) ToAddr() (*net.TCPAddr, error) {
	if net.ParseIP(l.IP) == nil {
		return nil, fmt.Errorf("%w: not an IP address: %q", ErrBadLocation, l.IP)
	}
	return &net.TCPAddr{IP: net.ParseIP(l.IP), Port: int(l.Port)}, nil
}

// Equal reports whether two locations name the same peer, i.e. their
// (ip, port, vnid) triples match. The identifier is a derived value and
// is not compared directly.
func (l Location) Equal(other Location) bool {
	return l.IP == other.IP && l.Port == other.Port && l.VirtualNodeID == other.VirtualNodeID
}
