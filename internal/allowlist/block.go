// Package allowlist compiles the firewall allow-list from its sources:
// the operator's connection, static entries, private ranges, and the
// remotely fetched crawler list.
package allowlist

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidFormat is returned for anything that is not a dotted-quad
// IPv4 address, optionally followed by /prefix.
var ErrInvalidFormat = errors.New("invalid address format")

// Block is a canonical IPv4 CIDR block. Host bits are always zeroed for
// prefixes shorter than /32; a single address is a /32.
type Block struct {
	IP        net.IP
	PrefixLen int
}

// String returns the canonical CIDR form, the dedup key for the list.
func (b Block) String() string {
	return fmt.Sprintf("%s/%d", b.IP.String(), b.PrefixLen)
}

// Mask returns the block's network mask.
func (b Block) Mask() net.IPMask {
	return net.CIDRMask(b.PrefixLen, 32)
}

// Contains reports whether ip falls inside the block.
func (b Block) Contains(ip net.IP) bool {
	n := net.IPNet{IP: b.IP, Mask: b.Mask()}
	return n.Contains(ip)
}

// Normalize converts raw input into a canonical Block. It accepts a
// dotted-quad optionally followed by /prefix and rejects everything else,
// IPv6 included. Host bits are zeroed against the mask.
func Normalize(s string) (Block, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Block{}, fmt.Errorf("%w: empty input", ErrInvalidFormat)
	}

	if strings.Contains(s, "/") {
		ip, ipnet, err := net.ParseCIDR(s)
		if err != nil {
			return Block{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
		if ip.To4() == nil {
			return Block{}, fmt.Errorf("%w: %q is not IPv4", ErrInvalidFormat, s)
		}
		ones, _ := ipnet.Mask.Size()
		// ParseCIDR already masked the network address
		return Block{IP: ipnet.IP.To4(), PrefixLen: ones}, nil
	}

	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return Block{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return Block{IP: ip.To4(), PrefixLen: 32}, nil
}

// ToClassC coarsens a single address to its containing /24: the fourth
// octet is discarded regardless of its value. This widening is deliberate
// policy for sources whose hosts churn within a provider's /24; it is not
// applied to inputs that carry an explicit prefix.
func ToClassC(s string) (Block, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		return Block{}, fmt.Errorf("%w: %q carries a prefix, refusing to coarsen", ErrInvalidFormat, s)
	}
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return Block{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	v4 := ip.To4()
	return Block{IP: net.IPv4(v4[0], v4[1], v4[2], 0).To4(), PrefixLen: 24}, nil
}

// normalizeEntry applies the coarsening policy: bare hosts become their
// /24 when coarsen is set, explicit CIDRs always pass through.
func normalizeEntry(s string, coarsen bool) (Block, error) {
	if coarsen && !strings.Contains(s, "/") {
		return ToClassC(s)
	}
	return Normalize(s)
}
