//go:build linux

package ipc

import (
	"golang.org/x/sys/unix"

	"github.com/diminuto-go/diminuto/internal/dierr"
	"github.com/diminuto-go/diminuto/internal/endpoint"
)

// domainAndSockaddr derives the socket() domain argument and a
// unix.Sockaddr for e, using port as the port number to bind (stream and
// datagram callers each pick TCPPort or UDPPort before calling this).
func domainAndSockaddr(e endpoint.Endpoint, port endpoint.Port) (domain int, sa unix.Sockaddr, fam Family, err error) {
	switch e.Kind {
	case endpoint.LocalKind:
		return unix.AF_UNIX, &unix.SockaddrUnix{Name: e.LocalPath}, FamilyLocal, nil
	case endpoint.IPv6Kind:
		return unix.AF_INET6, &unix.SockaddrInet6{Port: int(port), Addr: e.IPv6.As16()}, FamilyIPv6, nil
	case endpoint.IPv4Kind:
		return unix.AF_INET, &unix.SockaddrInet4{Port: int(port), Addr: e.IPv4.As4()}, FamilyIPv4, nil
	default:
		return 0, nil, 0, dierr.New("ipc.domainAndSockaddr", dierr.Invalid)
	}
}
