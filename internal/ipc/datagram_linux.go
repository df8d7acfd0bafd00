//go:build linux

package ipc

import (
	"errors"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/diminuto-go/diminuto/internal/dierr"
	"github.com/diminuto-go/diminuto/internal/endpoint"
)

// NewDatagramPeer opens a UDP (or UNIX-datagram) socket bound to e,
// applying injector before bind exactly as ListenStream does.
func NewDatagramPeer(e endpoint.Endpoint, injector Injector) (h *Handle, err error) {
	sockType := unix.SOCK_DGRAM
	domain, sa, fam, err := domainAndSockaddr(e, e.UDPPort)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(domain, sockType, 0)
	if err != nil {
		return nil, dierr.Wrap("ipc.NewDatagramPeer", dierr.IoError, err)
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
		return nil, dierr.Wrap("ipc.NewDatagramPeer", dierr.IoError, err)
	}

	if err := unix.Bind(fd, sa); err != nil {
		return nil, dierr.Wrap("ipc.NewDatagramPeer", dierr.IoError, err)
	}

	file := os.NewFile(uintptr(fd), "ipc-datagram")
	defer file.Close()

	pc, err := net.FilePacketConn(file)
	if err != nil {
		return nil, dierr.Wrap("ipc.NewDatagramPeer", dierr.IoError, err)
	}

	raw, err := rawConnOf(pc)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}

	closeOnErr = false
	return &Handle{family: fam, packet: pc, raw: raw}, nil
}

// SendDatagram sends buf to dst on a datagram peer handle. If the socket
// is connected (dst is the zero value), the destination is implicit.
func SendDatagram(h *Handle, buf []byte, dst netip.AddrPort) (int, error) {
	if h.packet == nil {
		return 0, dierr.New("ipc.SendDatagram", dierr.Invalid)
	}

	var n int
	var err error
	if dst.IsValid() {
		n, err = h.packet.WriteTo(buf, net.UDPAddrFromAddrPort(dst))
	} else if c, ok := h.packet.(net.Conn); ok {
		n, err = c.Write(buf)
	} else {
		return 0, dierr.New("ipc.SendDatagram", dierr.Invalid)
	}
	if err != nil {
		if isWouldBlock(err) {
			return n, dierr.New("ipc.SendDatagram", dierr.WouldBlock)
		}
		return n, dierr.Wrap("ipc.SendDatagram", dierr.IoError, err)
	}
	return n, nil
}

// RecvDatagram reads one datagram into buf, reporting the source address
// and port. EAGAIN/EWOULDBLOCK on a non-blocking socket are reported as
// dierr.WouldBlock, not a generic error.
func RecvDatagram(h *Handle, buf []byte) (n int, src netip.AddrPort, err error) {
	if h.packet == nil {
		return 0, netip.AddrPort{}, dierr.New("ipc.RecvDatagram", dierr.Invalid)
	}

	n, addr, err := h.packet.ReadFrom(buf)
	if err != nil {
		if isWouldBlock(err) {
			return n, netip.AddrPort{}, dierr.New("ipc.RecvDatagram", dierr.WouldBlock)
		}
		return n, netip.AddrPort{}, dierr.Wrap("ipc.RecvDatagram", dierr.IoError, err)
	}

	src, err = addrPortOf(addr)
	if err != nil {
		return n, netip.AddrPort{}, err
	}
	return n, src, nil
}

// RecvDatagramTimestamped is RecvDatagram plus the kernel's receive
// timestamp, extracted from SCM_TIMESTAMP ancillary data (requires
// SetTimestamp(h, true) to have been called first). Grounded on the
// teacher's rawsock_linux.go parseMeta/ParseSocketControlMessage
// pattern, adapted from IP_PKTINFO/IP_RECVTTL to SCM_TIMESTAMP.
func RecvDatagramTimestamped(h *Handle, buf []byte) (n int, src netip.AddrPort, ts time.Time, err error) {
	uc, ok := h.packet.(*net.UDPConn)
	if !ok {
		return 0, netip.AddrPort{}, time.Time{}, dierr.New("ipc.RecvDatagramTimestamped", dierr.Invalid)
	}

	oob := make([]byte, 64)
	n, oobn, _, addr, rerr := uc.ReadMsgUDP(buf, oob)
	if rerr != nil {
		if isWouldBlock(rerr) {
			return n, netip.AddrPort{}, time.Time{}, dierr.New("ipc.RecvDatagramTimestamped", dierr.WouldBlock)
		}
		return n, netip.AddrPort{}, time.Time{}, dierr.Wrap("ipc.RecvDatagramTimestamped", dierr.IoError, rerr)
	}

	src, err = addrPortOf(addr)
	if err != nil {
		return n, netip.AddrPort{}, time.Time{}, err
	}

	ts = extractTimestamp(oob[:oobn])
	return n, src, ts, nil
}

// extractTimestamp parses a struct timeval out of an SCM_TIMESTAMP
// control message, returning the zero time if none is present.
func extractTimestamp(oob []byte) time.Time {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return time.Time{}
	}
	for _, m := range msgs {
		if m.Header.Level != unix.SOL_SOCKET || m.Header.Type != unix.SCM_TIMESTAMP {
			continue
		}
		if len(m.Data) < 16 {
			continue
		}
		sec := int64(m.Data[0]) | int64(m.Data[1])<<8 | int64(m.Data[2])<<16 | int64(m.Data[3])<<24 |
			int64(m.Data[4])<<32 | int64(m.Data[5])<<40 | int64(m.Data[6])<<48 | int64(m.Data[7])<<56
		usec := int64(m.Data[8]) | int64(m.Data[9])<<8 | int64(m.Data[10])<<16 | int64(m.Data[11])<<24 |
			int64(m.Data[12])<<32 | int64(m.Data[13])<<40 | int64(m.Data[14])<<48 | int64(m.Data[15])<<56
		return time.Unix(sec, usec*int64(time.Microsecond))
	}
	return time.Time{}
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
