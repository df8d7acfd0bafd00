//go:build linux

package ipc

import (
	"math"
	"time"

	"golang.org/x/sys/unix"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

// control runs fn against the handle's underlying file descriptor by
// invoking syscall.RawConn.Control to reach the raw fd.
func control(h *Handle, fn func(fd int) error) error {
	if h.raw == nil {
		return dierr.New("ipc.control", dierr.Invalid)
	}
	var sockErr error
	err := h.raw.Control(func(fd uintptr) {
		sockErr = fn(int(fd))
	})
	if err != nil {
		return dierr.Wrap("ipc.control", dierr.IoError, err)
	}
	return dierr.Wrap("ipc.control", dierr.IoError, sockErr)
}

func setBoolOpt(h *Handle, level, opt int, v bool) error {
	i := 0
	if v {
		i = 1
	}
	return control(h, func(fd int) error {
		return unix.SetsockoptInt(fd, level, opt, i)
	})
}

func getBoolOpt(h *Handle, level, opt int) (bool, error) {
	var v int
	err := control(h, func(fd int) error {
		var gerr error
		v, gerr = unix.GetsockoptInt(fd, level, opt)
		return gerr
	})
	return v != 0, err
}

// SetNonblocking toggles O_NONBLOCK on the handle's file descriptor.
func SetNonblocking(h *Handle, on bool) error {
	return control(h, func(fd int) error {
		return unix.SetNonblock(fd, on)
	})
}

// SetReuseAddress toggles SO_REUSEADDR.
func SetReuseAddress(h *Handle, on bool) error {
	return setBoolOpt(h, unix.SOL_SOCKET, unix.SO_REUSEADDR, on)
}

// ReuseAddress reports whether SO_REUSEADDR is set.
func ReuseAddress(h *Handle) (bool, error) {
	return getBoolOpt(h, unix.SOL_SOCKET, unix.SO_REUSEADDR)
}

// SetReusePort toggles SO_REUSEPORT.
func SetReusePort(h *Handle, on bool) error {
	return setBoolOpt(h, unix.SOL_SOCKET, unix.SO_REUSEPORT, on)
}

// ReusePort reports whether SO_REUSEPORT is set.
func ReusePort(h *Handle) (bool, error) {
	return getBoolOpt(h, unix.SOL_SOCKET, unix.SO_REUSEPORT)
}

// SetKeepalive toggles SO_KEEPALIVE.
func SetKeepalive(h *Handle, on bool) error {
	return setBoolOpt(h, unix.SOL_SOCKET, unix.SO_KEEPALIVE, on)
}

// Keepalive reports whether SO_KEEPALIVE is set.
func Keepalive(h *Handle) (bool, error) {
	return getBoolOpt(h, unix.SOL_SOCKET, unix.SO_KEEPALIVE)
}

// SetTimestamp toggles SO_TIMESTAMP, enabling per-datagram kernel receive
// timestamps retrievable via RecvDatagramTimestamped.
func SetTimestamp(h *Handle, on bool) error {
	return setBoolOpt(h, unix.SOL_SOCKET, unix.SO_TIMESTAMP, on)
}

// Timestamp reports whether SO_TIMESTAMP is set.
func Timestamp(h *Handle) (bool, error) {
	return getBoolOpt(h, unix.SOL_SOCKET, unix.SO_TIMESTAMP)
}

// SetDebug toggles SO_DEBUG.
func SetDebug(h *Handle, on bool) error {
	return setBoolOpt(h, unix.SOL_SOCKET, unix.SO_DEBUG, on)
}

// Debug reports whether SO_DEBUG is set.
func Debug(h *Handle) (bool, error) {
	return getBoolOpt(h, unix.SOL_SOCKET, unix.SO_DEBUG)
}

// lingerFrequency is the tick rate used to convert abstract ticks into
// whole seconds for SO_LINGER: seconds = min(ceil(ticks / frequency),
// math.MaxInt32).
const lingerFrequency = int64(time.Second)

// SetLinger enables SO_LINGER for the given duration, converting ticks
// (nanoseconds, so that callers can pass a time.Duration directly) to
// whole seconds. A negative ticks value disables lingering.
func SetLinger(h *Handle, ticks time.Duration) error {
	if ticks < 0 {
		return control(h, func(fd int) error {
			return unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 0, Linger: 0})
		})
	}

	seconds := (int64(ticks) + lingerFrequency - 1) / lingerFrequency
	if seconds > math.MaxInt32 {
		seconds = math.MaxInt32
	}

	return control(h, func(fd int) error {
		return unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: int32(seconds)})
	})
}

// Linger reports the current SO_LINGER setting: enabled and, if so, the
// configured duration in whole seconds.
func Linger(h *Handle) (enabled bool, seconds int32, err error) {
	var l *unix.Linger
	cerr := control(h, func(fd int) error {
		var gerr error
		l, gerr = unix.GetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER)
		return gerr
	})
	if cerr != nil || l == nil {
		return false, 0, cerr
	}
	return l.Onoff != 0, l.Linger, nil
}

// SetNoDelay toggles TCP_NODELAY.
func SetNoDelay(h *Handle, on bool) error {
	return setBoolOpt(h, unix.IPPROTO_TCP, unix.TCP_NODELAY, on)
}

// NoDelay reports whether TCP_NODELAY is set.
func NoDelay(h *Handle) (bool, error) {
	return getBoolOpt(h, unix.IPPROTO_TCP, unix.TCP_NODELAY)
}

// SetQuickAck toggles TCP_QUICKACK.
func SetQuickAck(h *Handle, on bool) error {
	return setBoolOpt(h, unix.IPPROTO_TCP, unix.TCP_QUICKACK, on)
}

// QuickAck reports whether TCP_QUICKACK is set.
func QuickAck(h *Handle) (bool, error) {
	return getBoolOpt(h, unix.IPPROTO_TCP, unix.TCP_QUICKACK)
}

// SetSendBuffer sets SO_SNDBUF in bytes.
func SetSendBuffer(h *Handle, bytes int) error {
	return control(h, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, bytes)
	})
}

// SendBuffer returns the current SO_SNDBUF value in bytes.
func SendBuffer(h *Handle) (int, error) {
	var v int
	err := control(h, func(fd int) error {
		var gerr error
		v, gerr = unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
		return gerr
	})
	return v, err
}

// SetReceiveBuffer sets SO_RCVBUF in bytes.
func SetReceiveBuffer(h *Handle, bytes int) error {
	return control(h, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
	})
}

// ReceiveBuffer returns the current SO_RCVBUF value in bytes.
func ReceiveBuffer(h *Handle) (int, error) {
	var v int
	err := control(h, func(fd int) error {
		var gerr error
		v, gerr = unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
		return gerr
	})
	return v, err
}

// SetIPv6Only toggles IPV6_V6ONLY, controlling whether a v6 socket also
// accepts v4-mapped connections.
func SetIPv6Only(h *Handle, on bool) error {
	return setBoolOpt(h, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, on)
}

// IPv6Only reports whether IPV6_V6ONLY is set.
func IPv6Only(h *Handle) (bool, error) {
	return getBoolOpt(h, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY)
}

// SetIPv6AddressForm applies IPV6_ADDRFORM, converting a connected
// v4-mapped IPv6 socket in place into an IPv4 socket. Valid only on a
// connected, v4-mapped IPv6 stream socket; the kernel rejects it
// otherwise.
func SetIPv6AddressForm(h *Handle) error {
	return control(h, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_ADDRFORM, unix.AF_INET)
	})
}

// BindToDevice sets SO_BINDTODEVICE, restricting the socket to the named
// interface.
func BindToDevice(h *Handle, ifName string) error {
	return control(h, func(fd int) error {
		return unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, ifName)
	})
}
