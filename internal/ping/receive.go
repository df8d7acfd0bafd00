//go:build linux

package ping

import (
	"errors"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

// Receive reads one datagram and validates it as the reply to an echo
// request of sentLen bytes. It applies the five rejection predicates
// (see validateReply) and reports rejection as ok=false with a nil
// error, never as an error: a reflected or unrelated ICMP datagram is
// not a fault.
//
// On v4, raw ICMP sockets deliver the IP header along with the payload
// (uping's validateEchoReply strips it the same way); on v6, raw ICMPv6
// sockets never include the IPv6 header, so ttl is always reported 0.
func (p *Prober) Receive(buf []byte, sentLen int) (ok bool, id, seq uint16, ttl uint8, rtt time.Duration, src netip.Addr, err error) {
	ic, isIP := p.pc.(*net.IPConn)
	if !isIP {
		return false, 0, 0, 0, 0, netip.Addr{}, dierr.New("ping.Receive", dierr.Invalid)
	}
	// ReadFrom on an IPv4 *net.IPConn strips the IP header; ReadMsgIP
	// returns the datagram exactly as the kernel delivered it.
	n, _, _, addr, rerr := ic.ReadMsgIP(buf, nil)
	if rerr != nil {
		if errors.Is(rerr, unix.EAGAIN) || errors.Is(rerr, unix.EWOULDBLOCK) {
			return false, 0, 0, 0, 0, netip.Addr{}, dierr.New("ping.Receive", dierr.WouldBlock)
		}
		if errors.Is(rerr, os.ErrDeadlineExceeded) {
			return false, 0, 0, 0, 0, netip.Addr{}, dierr.New("ping.Receive", dierr.TimedOut)
		}
		return false, 0, 0, 0, 0, netip.Addr{}, dierr.Wrap("ping.Receive", dierr.IoError, rerr)
	}

	src = addrOf(addr)

	ok, r := validateReply(p.family, buf[:n], sentLen)
	if !ok {
		return false, 0, 0, 0, 0, src, nil
	}

	rtt = time.Since(r.sentAt)
	return true, r.id, r.seq, r.ttl, rtt, src, nil
}
