package rangeindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var (
	// ErrMalformedCIDR is returned for range text that is not a valid IPv4
	// CIDR: missing or repeated slash, bad dotted-quad address, or a prefix
	// length outside 0..32.
	ErrMalformedCIDR = errors.New("rangeindex: malformed cidr")
)

// ParseCIDR splits an IPv4 CIDR into its full (unmasked) network address and
// prefix length.
func ParseCIDR(text string) (uint32, uint8, error) {
	addrPart, prefixPart, found := strings.Cut(text, "/")
	if !found || strings.Contains(prefixPart, "/") {
		return 0, 0, fmt.Errorf("%w: %q: expected exactly one '/'", ErrMalformedCIDR, text)
	}

	addr, err := ParseAddr(addrPart)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrMalformedCIDR, text, err)
	}

	prefix, ok := parsePrefixLength(prefixPart)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q: prefix length must be an integer in 0..32", ErrMalformedCIDR, text)
	}

	return addr, prefix, nil
}

// ParseAddr parses a dotted-quad IPv4 address into its 32-bit value.
func ParseAddr(text string) (uint32, error) {
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return 0, err
	}
	if !addr.Is4() {
		return 0, fmt.Errorf("%s is not an IPv4 address", text)
	}
	return AddrToUint32(addr), nil
}

// AddrToUint32 converts an IPv4 address to its big-endian integer form. The
// caller guarantees addr.Is4().
func AddrToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

// Uint32ToAddr is the inverse of AddrToUint32.
func Uint32ToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// Mask returns the network mask for a prefix length. Lengths outside 0..32
// are rejected rather than clamped.
func Mask(prefix int) (uint32, error) {
	if prefix < 0 || prefix > 32 {
		return 0, fmt.Errorf("%w: prefix length %d out of range", ErrMalformedCIDR, prefix)
	}
	return mask(uint8(prefix)), nil
}

func mask(prefix uint8) uint32 {
	if prefix == 0 {
		return 0
	}
	return ^(uint32(1)<<(32-uint32(prefix)) - 1)
}

func parsePrefixLength(s string) (uint8, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	var n int
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n > 32 {
		return 0, false
	}
	return uint8(n), true
}
