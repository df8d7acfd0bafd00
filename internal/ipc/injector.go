//go:build linux

package ipc

import "golang.org/x/sys/unix"

// Injector is invoked on the raw socket after creation but before bind,
// exactly the point at which options like SO_REUSEADDR or IPV6_V6ONLY
// must be set. ListenStream, DialStream and NewDatagramPeer call it
// directly on the descriptor returned by unix.Socket.
type Injector func(fd int) error

// DefaultInjector enables address reuse.
func DefaultInjector(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}
