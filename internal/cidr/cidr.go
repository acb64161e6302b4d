// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package cidr implements IPv4 CIDR arithmetic: parsing, containment,
// overlap, and contiguous subdivision. Addresses are kept as 32-bit
// unsigned integers throughout; conversion to and from dotted-quad text
// happens only at the package boundary (Parse/String), per the engine's
// arithmetic contract.
package cidr

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/easytofu/cidrplan/internal/ipamerrors"
)

// Cidr is an IPv4 network: a 32-bit address paired with a prefix length
// in [0, 32]. Equality is structural (Go's built-in == works).
type Cidr struct {
	Addr   uint32
	Prefix uint8
}

// mask returns the prefix-length bits of a /prefix network, high bits set.
func mask(prefix uint8) uint32 {
	if prefix == 0 {
		return 0
	}
	return ^uint32(0) << (32 - prefix)
}

// Parse parses "a.b.c.d/p". Octets must be decimal 0..255, the prefix an
// integer in 0..32. Non-zero host bits are tolerated (mirroring
// net.ParseCIDR's own IP-component behavior); call Normalize to clear
// them. Extra tokens, missing prefix, or out-of-range components are
// rejected with CodeInvalidCidrFormat / CodeInvalidPrefix.
func Parse(text string) (Cidr, error) {
	parts := strings.Split(text, "/")
	if len(parts) != 2 {
		return Cidr{}, ipamerrors.New(ipamerrors.CodeInvalidCidrFormat,
			"expected <ip>/<prefix>", "cidr", text)
	}

	addr, err := parseIPv4(parts[0])
	if err != nil {
		return Cidr{}, ipamerrors.New(ipamerrors.CodeInvalidCidrFormat,
			err.Error(), "cidr", text)
	}

	prefix, err := strconv.Atoi(parts[1])
	if err != nil || prefix < 0 || prefix > 32 {
		return Cidr{}, ipamerrors.New(ipamerrors.CodeInvalidPrefix,
			"prefix length must be an integer in [0, 32]", "cidr", text)
	}

	return Cidr{Addr: addr, Prefix: uint8(prefix)}, nil
}

func parseIPv4(s string) (uint32, error) {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return 0, fmt.Errorf("invalid IPv4 address %q", s)
	}
	var addr uint32
	for _, o := range octets {
		v, err := strconv.Atoi(o)
		if err != nil || v < 0 || v > 255 {
			return 0, fmt.Errorf("invalid octet %q in %q", o, s)
		}
		addr = addr<<8 | uint32(v)
	}
	return addr, nil
}

// Normalize clears the host bits of c, masking the address to its
// prefix. Idempotent.
func Normalize(c Cidr) Cidr {
	return Cidr{Addr: c.Addr & mask(c.Prefix), Prefix: c.Prefix}
}

// String renders c in dotted-quad-slash-prefix form.
func (c Cidr) String() string {
	a := c.Addr
	return fmt.Sprintf("%d.%d.%d.%d/%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a), c.Prefix)
}

// Size returns 2^(32-prefix), the number of addresses in c.
func Size(c Cidr) uint64 {
	return uint64(1) << (32 - c.Prefix)
}

// UsableIPs returns the number of host-assignable addresses: size-2 for
// prefixes <= 30 (network + broadcast reserved), 2 for /31, 1 for /32.
func UsableIPs(c Cidr) uint64 {
	switch c.Prefix {
	case 31:
		return 2
	case 32:
		return 1
	default:
		return Size(c) - 2
	}
}

// Contains reports whether outer fully contains inner: outer must have an
// equal-or-shorter prefix, and its network bits must match inner's.
func Contains(outer, inner Cidr) bool {
	if outer.Prefix > inner.Prefix {
		return false
	}
	m := mask(outer.Prefix)
	return (inner.Addr & m) == (outer.Addr & m)
}

// Overlap reports whether a and b share any address.
func Overlap(a, b Cidr) bool {
	return Contains(a, b) || Contains(b, a)
}

// RequiredPrefixBits returns ceil(log2(max(1, count))) additional prefix
// bits needed to address count consecutive children. count <= 0 is a
// caller error.
func RequiredPrefixBits(count int) (uint8, error) {
	if count <= 0 {
		return 0, ipamerrors.New(ipamerrors.CodeInvalidOperation,
			"count must be positive", "count", strconv.Itoa(count))
	}
	if count <= 1 {
		return 0, nil
	}
	var bits uint8
	for (uint64(1) << bits) < uint64(count) {
		bits++
	}
	return bits, nil
}

// OptimalChildPrefix returns parent.Prefix + RequiredPrefixBits(count),
// failing with CodeInsufficientSpace if that would exceed 32.
func OptimalChildPrefix(parent Cidr, count int) (uint8, error) {
	bits, err := RequiredPrefixBits(count)
	if err != nil {
		return 0, err
	}
	result := int(parent.Prefix) + int(bits)
	if result > 32 {
		return 0, ipamerrors.New(ipamerrors.CodeInsufficientSpace,
			"not enough address space left for allocation",
			"cidr", parent.String(), "requiredPrefix", strconv.Itoa(result))
	}
	return uint8(result), nil
}

// Subdivide splits cidr into 2^(newPrefix-cidr.Prefix) consecutive
// children in ascending address order. If newPrefix == cidr.Prefix,
// returns []Cidr{cidr}. Fails with CodeInvalidPrefix if newPrefix is out
// of [cidr.Prefix, 32].
func Subdivide(c Cidr, newPrefix uint8) ([]Cidr, error) {
	if newPrefix < c.Prefix || newPrefix > 32 {
		return nil, ipamerrors.New(ipamerrors.CodeInvalidPrefix,
			"new prefix must be in [cidr.Prefix, 32]",
			"cidr", c.String(), "newPrefix", strconv.Itoa(int(newPrefix)))
	}
	if newPrefix == c.Prefix {
		return []Cidr{c}, nil
	}

	count := uint64(1) << (newPrefix - c.Prefix)
	step := uint64(1) << (32 - newPrefix)
	base := Normalize(c)

	children := make([]Cidr, count)
	for i := uint64(0); i < count; i++ {
		children[i] = Cidr{Addr: base.Addr + uint32(i*step), Prefix: newPrefix}
	}
	return children, nil
}

// ToIPNet converts c to a *net.IPNet, for interop with net.IP-based
// libraries at the system's edges.
func ToIPNet(c Cidr) *net.IPNet {
	n := Normalize(c)
	ip := net.IPv4(byte(n.Addr>>24), byte(n.Addr>>16), byte(n.Addr>>8), byte(n.Addr))
	return &net.IPNet{IP: ip.To4(), Mask: net.CIDRMask(int(n.Prefix), 32)}
}

// FromIPNet converts a *net.IPNet (expected IPv4) into a Cidr.
func FromIPNet(n *net.IPNet) (Cidr, error) {
	ip4 := n.IP.To4()
	if ip4 == nil {
		return Cidr{}, ipamerrors.New(ipamerrors.CodeInvalidCidrFormat, "only IPv4 networks are supported")
	}
	ones, bits := n.Mask.Size()
	if bits != 32 {
		return Cidr{}, ipamerrors.New(ipamerrors.CodeInvalidCidrFormat, "only IPv4 networks are supported")
	}
	addr := uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
	return Cidr{Addr: addr, Prefix: uint8(ones)}, nil
}
