package endpoint

import (
	"encoding/binary"
	"net/netip"
)

// -------------------------------------------------------------------------
// IPv4 classification — spec data model §3
// -------------------------------------------------------------------------

// IsLoopback4 reports whether a is in 127.0.0.0/8.
func IsLoopback4(a netip.Addr) bool {
	return a.Is4() && a.As4()[0] == 127
}

// IsLimitedBroadcast4 reports whether a is the limited broadcast address
// 255.255.255.255.
func IsLimitedBroadcast4(a netip.Addr) bool {
	return a.Is4() && a.As4() == [4]byte{255, 255, 255, 255}
}

// IsPrivate4 reports whether a falls in one of the RFC 1918 private
// ranges: 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16.
func IsPrivate4(a netip.Addr) bool {
	if !a.Is4() {
		return false
	}
	b := a.As4()
	switch {
	case b[0] == 10:
		return true
	case b[0] == 172 && b[1] >= 16 && b[1] <= 31:
		return true
	case b[0] == 192 && b[1] == 168:
		return true
	default:
		return false
	}
}

// IsMulticast4 reports whether a is in the 224.0.0.0/4 multicast range.
func IsMulticast4(a netip.Addr) bool {
	return a.Is4() && (a.As4()[0]&0xf0) == 0xe0
}

// IsPublic4 reports whether a is none of unspecified, loopback, limited
// broadcast, private, or multicast.
func IsPublic4(a netip.Addr) bool {
	if !a.Is4() {
		return false
	}
	return !a.IsUnspecified() && !IsLoopback4(a) && !IsLimitedBroadcast4(a) &&
		!IsPrivate4(a) && !IsMulticast4(a)
}

// -------------------------------------------------------------------------
// IPv6 classification — spec data model §3
// -------------------------------------------------------------------------

// IsLoopback6 reports whether a is ::1.
func IsLoopback6(a netip.Addr) bool {
	return a.Is6() && !a.Is4In6() && a.IsLoopback()
}

// IsV4Mapped6 reports whether a is of the form ::ffff:a.b.c.d.
func IsV4Mapped6(a netip.Addr) bool {
	return a.Is6() && a.Is4In6()
}

// IsV4Compatible6 reports whether a is a deprecated v4-compatible address
// of the form ::a.b.c.d (the first 96 bits zero, the low 32 bits
// nonzero, distinct from the ::ffff:0:0/96 v4-mapped prefix).
func IsV4Compatible6(a netip.Addr) bool {
	if !a.Is6() || a.Is4In6() {
		return false
	}
	b := a.As16()
	for i := range 12 {
		if b[i] != 0 {
			return false
		}
	}
	return b[12] != 0 || b[13] != 0 || b[14] != 0 || b[15] != 0
}

// nat64WKP is the 64:ff9b::/96 well-known prefix (RFC 6052).
var nat64WKP = [12]byte{0x00, 0x64, 0xff, 0x9b}

// IsNAT64WKP6 reports whether a falls in the NAT64 well-known prefix
// 64:ff9b::/96.
func IsNAT64WKP6(a netip.Addr) bool {
	if !a.Is6() || a.Is4In6() {
		return false
	}
	b := a.As16()
	return [12]byte(b[:12]) == nat64WKP
}

// IsISATAP6 reports whether a's interface identifier carries the ISATAP
// pattern 00-00-5E-FE (with the universal/local bit of the high byte
// ignored, as ISATAP addresses may be locally or globally assigned).
func IsISATAP6(a netip.Addr) bool {
	if !a.Is6() {
		return false
	}
	b := a.As16()
	return (b[8]&0xfd) == 0x00 && b[9] == 0x00 && b[10] == 0x5e && b[11] == 0xfe
}

// Is6to4 reports whether a falls in the 6to4 2002::/16 range.
func Is6to4(a netip.Addr) bool {
	if !a.Is6() || a.Is4In6() {
		return false
	}
	b := a.As16()
	return b[0] == 0x20 && b[1] == 0x02
}

// IsULA6 reports whether a is a unique-local address, fc00::/7.
func IsULA6(a netip.Addr) bool {
	return a.Is6() && !a.Is4In6() && (a.As16()[0]&0xfe) == 0xfc
}

// IsLinkLocal6 reports whether a is a link-local address, fe80::/10.
func IsLinkLocal6(a netip.Addr) bool {
	return a.Is6() && !a.Is4In6() && a.IsLinkLocalUnicast()
}

// IsMulticast6 reports whether a is a multicast address, ff00::/8.
func IsMulticast6(a netip.Addr) bool {
	return a.Is6() && a.IsMulticast()
}

// IsGlobalUnicast6 reports whether a is a global unicast address: none of
// unspecified, loopback, link-local, unique-local, or multicast.
func IsGlobalUnicast6(a netip.Addr) bool {
	if !a.Is6() || a.Is4In6() {
		return false
	}
	return a.IsGlobalUnicast() && !IsULA6(a) && !IsLinkLocal6(a)
}

// -------------------------------------------------------------------------
// Host-order word representation — spec §3, §9 "IPv6 endianness"
// -------------------------------------------------------------------------

// Words6 is an IPv6 address represented as eight host-order 16-bit words,
// mirroring the original C union-of-arrays data model. The rest of the
// module, internal/ipc included, uses netip.Addr (which is already
// network-order byte-exact) instead.
type Words6 [8]uint16

// NetworkToHost6 converts the 16 network-order bytes of an IPv6 address
// into their host-order word representation (the "ntoh6" of spec §8).
func NetworkToHost6(network [16]byte) Words6 {
	var w Words6
	for i := range 8 {
		w[i] = binary.BigEndian.Uint16(network[i*2 : i*2+2])
	}
	return w
}

// HostToNetwork6 converts eight host-order 16-bit words back into the 16
// network-order bytes of an IPv6 address (the "hton6" of spec §8).
// HostToNetwork6(NetworkToHost6(b)) == b for all b.
func HostToNetwork6(words Words6) [16]byte {
	var network [16]byte
	for i := range 8 {
		binary.BigEndian.PutUint16(network[i*2:i*2+2], words[i])
	}
	return network
}

// -------------------------------------------------------------------------
// v4/v6 interoperability — spec §4.B "IPv4/IPv6 interop"
// -------------------------------------------------------------------------

// IPv4ToIPv6 constructs the bit-exact v4-mapped IPv6 address ::ffff:a.b.c.d
// for the given IPv4 address v4.
func IPv4ToIPv6(v4 netip.Addr) netip.Addr {
	b4 := v4.As4()
	var b16 [16]byte
	b16[10] = 0xff
	b16[11] = 0xff
	copy(b16[12:], b4[:])
	return netip.AddrFrom16(b16)
}

// IPv6ToIPv4 extracts the IPv4 address embedded in a v4-mapped IPv6
// address. ok is false if v6 is not of the form ::ffff:a.b.c.d.
func IPv6ToIPv4(v6 netip.Addr) (addr netip.Addr, ok bool) {
	if !v6.Is4In6() {
		return netip.Addr{}, false
	}
	return v6.Unmap(), true
}
