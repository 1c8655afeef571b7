package ringmath

import "errors"

// ErrBadLocation is returned when a string cannot be parsed as a
// Location, or names an IP address ToAddr cannot resolve.
var ErrBadLocation = errors.New("ringmath: bad location")
