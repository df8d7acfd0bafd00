//go:build linux

package ping

import (
	"encoding/binary"
	"time"
)

// reply is what validateReply extracts from an accepted datagram.
type reply struct {
	id, seq uint16
	ttl     uint8
	sentAt  time.Time
}

// validateReply applies the five rejection predicates (too short for the
// headers, v4 checksum mismatch, our own echo request reflected, any
// other non-reply type, shorter than what was sent) to frame (the
// bytes read off the wire for family) and reports whether
// it is our echo reply. ok is false with a zero reply on rejection,
// mirroring Receive's "return 0, not an error" contract; it is a pure
// function so it can be exercised without a raw socket.
func validateReply(family Family, frame []byte, sentLen int) (ok bool, r reply) {
	var icmp []byte
	echoRequest, echoReply := byte(icmpTypeEchoRequestV4), byte(icmpTypeEchoReplyV4)

	if family == FamilyIPv4 {
		if len(frame) < 20+headerLen {
			return false, reply{} // too short for an IP header + ICMP header
		}
		ihl := int(frame[0]&0x0f) * 4
		if ihl < 20 || len(frame) < ihl+headerLen {
			return false, reply{}
		}
		r.ttl = frame[8]
		icmp = frame[ihl:]
		if checksum(icmp) != 0 {
			return false, reply{} // fails checksum
		}
	} else {
		echoRequest, echoReply = icmpTypeEchoRequestV6, icmpTypeEchoReplyV6
		if len(frame) < headerLen {
			return false, reply{} // too short for an ICMP header
		}
		icmp = frame
	}

	if icmp[0] == echoRequest {
		return false, reply{} // our own outbound frame reflected
	}
	if icmp[0] != echoReply {
		return false, reply{} // any type other than ECHO_REPLY
	}
	if len(icmp) < sentLen {
		return false, reply{} // shorter than what we sent: not our reply
	}

	r.id = binary.BigEndian.Uint16(icmp[4:6])
	r.seq = binary.BigEndian.Uint16(icmp[6:8])
	if len(icmp) >= headerLen+16 {
		r.sentAt = readTimestamp(icmp[headerLen : headerLen+16])
	}
	return true, r
}
