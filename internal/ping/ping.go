//go:build linux

package ping

import (
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

// Family selects the ICMP protocol version a Prober speaks.
type Family int

const (
	// FamilyIPv4 probes over ICMPv4.
	FamilyIPv4 Family = iota
	// FamilyIPv6 probes over ICMPv6.
	FamilyIPv6
)

// checksumOffset is the byte offset of the checksum field within an
// ICMP(v6) header, used to register kernel-computed checksums for v6
// raw sockets (golang.org/x/net/ipv6.PacketConn.SetChecksum wraps the
// IPV6_CHECKSUM setsockopt that does this).
const checksumOffset = 2

// Prober is a raw ICMP socket bound to one address family. It keeps no
// in-flight state: correlating a Receive to the Send that produced it is
// the caller's responsibility.
type Prober struct {
	family Family
	pc     net.PacketConn
	v6     *ipv6.PacketConn // set only for FamilyIPv6, for checksum registration
}

// Open creates a raw ICMP socket for family. It requires CAP_NET_RAW (or
// root); on EPERM it reports dierr.Permission distinctly rather than a
// generic I/O error.
//
// Grounded directly on uping's NewSender/NewListener: unix.Socket with
// SOCK_RAW, wrapped into a net.PacketConn via net.FilePacketConn so the
// rest of the engine can use ordinary net I/O.
func Open(family Family) (*Prober, error) {
	domain := unix.AF_INET
	proto := unix.IPPROTO_ICMP
	if family == FamilyIPv6 {
		domain = unix.AF_INET6
		proto = unix.IPPROTO_ICMPV6
	}

	fd, err := unix.Socket(domain, unix.SOCK_RAW, proto)
	if err != nil {
		if err == unix.EPERM {
			return nil, dierr.New("ping.Open", dierr.Permission)
		}
		return nil, dierr.Wrap("ping.Open", dierr.IoError, err)
	}

	file := os.NewFile(uintptr(fd), "ping-raw")
	defer file.Close()

	pc, err := net.FilePacketConn(file)
	if err != nil {
		return nil, dierr.Wrap("ping.Open", dierr.IoError, err)
	}

	p := &Prober{family: family, pc: pc}
	if family == FamilyIPv6 {
		p.v6 = ipv6.NewPacketConn(pc)
		if err := p.v6.SetChecksum(true, checksumOffset); err != nil {
			_ = pc.Close()
			return nil, dierr.Wrap("ping.Open", dierr.IoError, err)
		}
	}
	return p, nil
}

// Close releases the underlying raw socket.
func (p *Prober) Close() error {
	return dierr.Wrap("ping.Close", dierr.IoError, p.pc.Close())
}

// Family reports which ICMP protocol version p speaks.
func (p *Prober) Family() Family {
	return p.family
}

// SetDeadline bounds subsequent Receive calls, matching the underlying
// net.PacketConn deadline semantics.
func (p *Prober) SetDeadline(t time.Time) error {
	return dierr.Wrap("ping.SetDeadline", dierr.IoError, p.pc.SetDeadline(t))
}

// addrOf converts a net.Addr returned by a raw IP packet conn into a
// netip.Addr, unmapping a v4-in-v6 representation if present.
func addrOf(a net.Addr) netip.Addr {
	var ip net.IP
	switch v := a.(type) {
	case *net.IPAddr:
		ip = v.IP
	case *net.UDPAddr:
		ip = v.IP
	default:
		return netip.Addr{}
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}
