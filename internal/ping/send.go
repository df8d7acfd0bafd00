//go:build linux

package ping

import (
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

const (
	icmpTypeEchoRequestV4 = 8
	icmpTypeEchoReplyV4   = 0
	icmpTypeEchoRequestV6 = 128
	icmpTypeEchoReplyV6   = 129

	// headerLen is the fixed ICMP echo header: type, code, checksum, id, seq.
	headerLen = 8
	// payloadLen is the fixed echo payload; its first 16 bytes carry a
	// host-order nanosecond send timestamp, the remainder is filler.
	payloadLen = 56
	frameLen   = headerLen + payloadLen
)

// Send builds an ICMP ECHO (v4) or ICMPv6 ECHO_REQUEST (v6) datagram
// carrying id, seq, and a wall-clock send timestamp, then transmits it to
// dst. It reports the number of bytes sent, or a distinguishable
// transient-vs-fatal error.
func (p *Prober) Send(dst netip.Addr, id, seq uint16) (int, error) {
	frame := make([]byte, frameLen)

	typ := byte(icmpTypeEchoRequestV4)
	if p.family == FamilyIPv6 {
		typ = icmpTypeEchoRequestV6
	}
	frame[0] = typ
	frame[1] = 0
	binary.BigEndian.PutUint16(frame[4:6], id)
	binary.BigEndian.PutUint16(frame[6:8], seq)
	putTimestamp(frame[headerLen:headerLen+16], time.Now())

	if p.family == FamilyIPv4 {
		// v6 checksums are computed by the kernel against the offset
		// registered in Open; v4 has no such facility, so compute it here
		// exactly as uping's fillICMPEcho does.
		binary.BigEndian.PutUint16(frame[2:4], checksum(frame))
	}

	n, err := p.pc.WriteTo(frame, &net.IPAddr{IP: dst.AsSlice()})
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, dierr.New("ping.Send", dierr.WouldBlock)
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, dierr.New("ping.Send", dierr.TimedOut)
		}
		return 0, dierr.Wrap("ping.Send", dierr.IoError, err)
	}
	return n, nil
}

// putTimestamp writes t's UnixNano in two host-order uint64 halves
// (seconds, nanosecond remainder) into b, which must be 16 bytes.
func putTimestamp(b []byte, t time.Time) {
	binary.NativeEndian.PutUint64(b[0:8], uint64(t.Unix()))
	binary.NativeEndian.PutUint64(b[8:16], uint64(t.Nanosecond()))
}

// readTimestamp is putTimestamp's inverse.
func readTimestamp(b []byte) time.Time {
	sec := binary.NativeEndian.Uint64(b[0:8])
	nsec := binary.NativeEndian.Uint64(b[8:16])
	return time.Unix(int64(sec), int64(nsec))
}
