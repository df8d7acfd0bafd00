//go:build linux

package ipc

import (
	"net"
	"net/netip"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/diminuto-go/diminuto/internal/dierr"
	"github.com/diminuto-go/diminuto/internal/endpoint"
)

// ListenStream opens a stream provider: it binds to e's address, port,
// and (if set via injector) interface, enables address reuse via the
// injector, and begins listening with backlog. A backlog <= 0 requests
// the platform maximum. A zero port binds ephemerally; read it back
// afterward with LocalAddrPort.
//
// Applies socket options between socket creation and bind, generalized
// to TCP/UNIX stream sockets with an explicit listen() backlog (which
// net.ListenConfig does not expose to callers).
func ListenStream(e endpoint.Endpoint, backlog int, injector Injector) (h *Handle, err error) {
	domain, sa, fam, err := domainAndSockaddr(e, e.TCPPort)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, dierr.Wrap("ipc.ListenStream", dierr.IoError, err)
	}
	closeOnErr := true
	defer func() {
		if closeOnErr {
			_ = unix.Close(fd)
		}
	}()

	if injector == nil {
		injector = DefaultInjector
	}
	if err := injector(fd); err != nil {
		return nil, dierr.Wrap("ipc.ListenStream", dierr.IoError, err)
	}

	if err := unix.Bind(fd, sa); err != nil {
		return nil, dierr.Wrap("ipc.ListenStream", dierr.IoError, err)
	}

	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return nil, dierr.Wrap("ipc.ListenStream", dierr.IoError, err)
	}

	file := os.NewFile(uintptr(fd), "ipc-listener")
	defer file.Close()

	ln, err := net.FileListener(file)
	if err != nil {
		return nil, dierr.Wrap("ipc.ListenStream", dierr.IoError, err)
	}

	raw, err := rawConnOf(ln)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	closeOnErr = false
	return &Handle{family: fam, listener: ln, raw: raw}, nil
}

// Accept waits for the next inbound connection on a stream provider
// handle and returns a new handle for it plus the peer's address and
// port (the zero value for a UNIX-domain peer, which has neither).
// EINTR is a retryable, non-fatal condition; Go's net package
// already retries EINTR internally, so the error returned here is never
// a masked EINTR.
func Accept(h *Handle) (*Handle, netip.AddrPort, error) {
	if h.listener == nil {
		return nil, netip.AddrPort{}, dierr.New("ipc.Accept", dierr.Invalid)
	}

	conn, err := h.listener.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, netip.AddrPort{}, dierr.Wrap("ipc.Accept", dierr.TimedOut, err)
		}
		return nil, netip.AddrPort{}, dierr.Wrap("ipc.Accept", dierr.IoError, err)
	}

	raw, err := rawConnOf(conn)
	if err != nil {
		_ = conn.Close()
		return nil, netip.AddrPort{}, err
	}

	peer, err := addrPortOf(conn.RemoteAddr())
	if err != nil && h.family != FamilyLocal {
		_ = conn.Close()
		return nil, netip.AddrPort{}, err
	}

	return &Handle{family: h.family, conn: conn, raw: raw}, peer, nil
}

// DialStream opens a stream consumer: optionally binding a local
// address/port via localEndpoint, then connecting to remote.
// Pass a zero-value endpoint.Endpoint for localEndpoint to let the
// kernel choose.
func DialStream(localEndpoint, remote endpoint.Endpoint, injector Injector) (h *Handle, err error) {
	domain, rsa, fam, err := domainAndSockaddr(remote, remote.TCPPort)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, dierr.Wrap("ipc.DialStream", dierr.IoError, err)
	}
	closeOnErr := true
	defer func() {
		if closeOnErr {
			_ = unix.Close(fd)
		}
	}()

	if injector == nil {
		injector = DefaultInjector
	}
	if err := injector(fd); err != nil {
		return nil, dierr.Wrap("ipc.DialStream", dierr.IoError, err)
	}

	if localEndpoint.Kind != endpoint.Unspecified {
		_, lsa, _, err := domainAndSockaddr(localEndpoint, localEndpoint.TCPPort)
		if err == nil {
			if err := unix.Bind(fd, lsa); err != nil {
				return nil, dierr.Wrap("ipc.DialStream", dierr.IoError, err)
			}
		}
	}

	if err := unix.Connect(fd, rsa); err != nil {
		if err == unix.EINTR {
			return nil, dierr.New("ipc.DialStream", dierr.Interrupted)
		}
		return nil, dierr.Wrap("ipc.DialStream", dierr.IoError, err)
	}

	file := os.NewFile(uintptr(fd), "ipc-stream")
	defer file.Close()

	conn, err := net.FileConn(file)
	if err != nil {
		return nil, dierr.Wrap("ipc.DialStream", dierr.IoError, err)
	}

	raw, err := rawConnOf(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	closeOnErr = false
	return &Handle{family: fam, conn: conn, raw: raw}, nil
}

// rawConnOf extracts the syscall.RawConn needed for post-creation option
// access from a net type that implements syscall.Conn.
func rawConnOf(v any) (syscall.RawConn, error) {
	sc, ok := v.(syscall.Conn)
	if !ok {
		return nil, dierr.New("ipc.rawConnOf", dierr.Invalid)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, dierr.Wrap("ipc.rawConnOf", dierr.IoError, err)
	}
	return raw, nil
}
