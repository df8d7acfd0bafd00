package ipc

import (
	"net"
	"net/netip"
	"syscall"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

// Family identifies the address family a Handle was created for.
type Family int

const (
	// FamilyIPv4 is an IPv4 socket.
	FamilyIPv4 Family = iota
	// FamilyIPv6 is an IPv6 socket.
	FamilyIPv6
	// FamilyLocal is a UNIX-domain socket.
	FamilyLocal
)

// Handle wraps one of net.Listener, net.Conn, or net.PacketConn, plus the
// address family it was created for and the raw syscall.Conn needed to
// apply or query socket options. A Handle is safe for the same
// concurrent use as the net type it wraps.
type Handle struct {
	family Family

	listener net.Listener
	conn     net.Conn
	packet   net.PacketConn

	raw syscall.RawConn
}

// Family reports the address family the handle was created for.
func (h *Handle) Family() Family {
	return h.family
}

// Close releases the handle's underlying socket.
func (h *Handle) Close() error {
	switch {
	case h.listener != nil:
		return dierr.Wrap("ipc.Close", dierr.IoError, h.listener.Close())
	case h.conn != nil:
		return dierr.Wrap("ipc.Close", dierr.IoError, h.conn.Close())
	case h.packet != nil:
		return dierr.Wrap("ipc.Close", dierr.IoError, h.packet.Close())
	default:
		return dierr.New("ipc.Close", dierr.Invalid)
	}
}

// Shutdown half-closes a stream handle's read side, write side, or both.
// It has no effect on datagram or listening handles.
func (h *Handle) Shutdown(how ShutdownHow) error {
	tc, ok := h.conn.(interface {
		CloseRead() error
		CloseWrite() error
	})
	if !ok {
		return dierr.New("ipc.Shutdown", dierr.Invalid)
	}
	var err error
	switch how {
	case ShutdownRead:
		err = tc.CloseRead()
	case ShutdownWrite:
		err = tc.CloseWrite()
	case ShutdownBoth:
		if rerr := tc.CloseRead(); rerr != nil {
			err = rerr
		}
		if werr := tc.CloseWrite(); werr != nil && err == nil {
			err = werr
		}
	}
	return dierr.Wrap("ipc.Shutdown", dierr.IoError, err)
}

// ShutdownHow selects which half of a stream connection to close.
type ShutdownHow int

const (
	// ShutdownRead closes the read half.
	ShutdownRead ShutdownHow = iota
	// ShutdownWrite closes the write half.
	ShutdownWrite
	// ShutdownBoth closes both halves.
	ShutdownBoth
)

// LocalAddrPort is the near-end query: the local address and port bound
// by the handle.
func (h *Handle) LocalAddrPort() (netip.AddrPort, error) {
	switch {
	case h.listener != nil:
		return addrPortOf(h.listener.Addr())
	case h.conn != nil:
		return addrPortOf(h.conn.LocalAddr())
	case h.packet != nil:
		return addrPortOf(h.packet.LocalAddr())
	default:
		return netip.AddrPort{}, dierr.New("ipc.LocalAddrPort", dierr.Invalid)
	}
}

// RemoteAddrPort is the far-end query: the remote address and port of a
// connected stream handle. It returns an error for listening or
// unconnected datagram handles.
func (h *Handle) RemoteAddrPort() (netip.AddrPort, error) {
	if h.conn == nil {
		return netip.AddrPort{}, dierr.New("ipc.RemoteAddrPort", dierr.Invalid)
	}
	return addrPortOf(h.conn.RemoteAddr())
}

func addrPortOf(a net.Addr) (netip.AddrPort, error) {
	switch v := a.(type) {
	case *net.TCPAddr:
		return v.AddrPort(), nil
	case *net.UDPAddr:
		return v.AddrPort(), nil
	default:
		return netip.AddrPort{}, dierr.New("ipc.addrPortOf", dierr.Invalid)
	}
}

// Read reads from a connected stream handle.
func (h *Handle) Read(p []byte) (int, error) {
	if h.conn == nil {
		return 0, dierr.New("ipc.Read", dierr.Invalid)
	}
	return h.conn.Read(p)
}

// Write writes to a connected stream handle.
func (h *Handle) Write(p []byte) (int, error) {
	if h.conn == nil {
		return 0, dierr.New("ipc.Write", dierr.Invalid)
	}
	return h.conn.Write(p)
}

// -------------------------------------------------------------------------
// Interface enumeration
// -------------------------------------------------------------------------

// Interface describes one network interface and the addresses bound to it.
type Interface struct {
	Name string
	IPv4 []netip.Addr
	IPv6 []netip.Addr
}

// Interfaces enumerates the host's network interfaces and the IPv4/IPv6
// addresses bound to each. It is implemented on stdlib net.Interfaces —
// the retrieved corpus shows no richer netlink wrapper, and net is the
// correct idiomatic layer for read-only interface enumeration.
func Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, dierr.Wrap("ipc.Interfaces", dierr.IoError, err)
	}

	result := make([]Interface, 0, len(ifaces))
	for _, ifc := range ifaces {
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		entry := Interface{Name: ifc.Name}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			addr, ok := netip.AddrFromSlice(ipNet.IP)
			if !ok {
				continue
			}
			addr = addr.Unmap()
			if addr.Is4() {
				entry.IPv4 = append(entry.IPv4, addr)
			} else {
				entry.IPv6 = append(entry.IPv6, addr)
			}
		}
		result = append(result, entry)
	}
	return result, nil
}
