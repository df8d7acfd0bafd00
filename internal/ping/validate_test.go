//go:build linux

package ping

import (
	"encoding/binary"
	"testing"
	"time"
)

func echoFrameV4(icmpType byte, id, seq uint16, extra int) []byte {
	frame := make([]byte, 20+headerLen+extra)
	frame[0] = 0x45 // version 4, IHL 5 (20 bytes)
	frame[8] = 42   // ttl

	icmp := frame[20:]
	icmp[0] = icmpType
	binary.BigEndian.PutUint16(icmp[4:6], id)
	binary.BigEndian.PutUint16(icmp[6:8], seq)
	if len(icmp) >= headerLen+16 {
		putTimestamp(icmp[headerLen:headerLen+16], time.Now())
	}
	binary.BigEndian.PutUint16(icmp[2:4], 0)
	binary.BigEndian.PutUint16(icmp[2:4], checksum(icmp))
	return frame
}

func TestValidateReplyAccepts(t *testing.T) {
	t.Parallel()

	frame := echoFrameV4(icmpTypeEchoReplyV4, 7, 3, 40)
	ok, r := validateReply(FamilyIPv4, frame, headerLen+40)
	if !ok {
		t.Fatal("validateReply rejected a well-formed echo reply")
	}
	if r.id != 7 || r.seq != 3 {
		t.Errorf("id/seq = %d/%d, want 7/3", r.id, r.seq)
	}
	if r.ttl != 42 {
		t.Errorf("ttl = %d, want 42", r.ttl)
	}
}

func TestValidateRejectsTooShort(t *testing.T) {
	t.Parallel()

	ok, _ := validateReply(FamilyIPv4, make([]byte, 10), 0)
	if ok {
		t.Error("validateReply accepted a frame too short for an IP+ICMP header")
	}
}

func TestValidateRejectsBadChecksum(t *testing.T) {
	t.Parallel()

	frame := echoFrameV4(icmpTypeEchoReplyV4, 1, 1, 0)
	frame[20+2] ^= 0xff // corrupt the checksum field
	ok, _ := validateReply(FamilyIPv4, frame, headerLen)
	if ok {
		t.Error("validateReply accepted a frame with a bad checksum")
	}
}

func TestValidateRejectsEchoRequestLoopback(t *testing.T) {
	t.Parallel()

	frame := echoFrameV4(icmpTypeEchoRequestV4, 1, 1, 0)
	ok, _ := validateReply(FamilyIPv4, frame, headerLen)
	if ok {
		t.Error("validateReply accepted a reflected ECHO REQUEST")
	}
}

func TestValidateRejectsWrongType(t *testing.T) {
	t.Parallel()

	frame := echoFrameV4(3 /* destination unreachable */, 1, 1, 0)
	ok, _ := validateReply(FamilyIPv4, frame, headerLen)
	if ok {
		t.Error("validateReply accepted a non-echo-reply ICMP type")
	}
}

func TestValidateRejectsShorterThanSent(t *testing.T) {
	t.Parallel()

	frame := echoFrameV4(icmpTypeEchoReplyV4, 1, 1, 0)
	ok, _ := validateReply(FamilyIPv4, frame, headerLen+56)
	if ok {
		t.Error("validateReply accepted a reply shorter than what was sent")
	}
}

func TestValidateReplyV6HasNoIPHeader(t *testing.T) {
	t.Parallel()

	icmp := make([]byte, headerLen+16)
	icmp[0] = icmpTypeEchoReplyV6
	binary.BigEndian.PutUint16(icmp[4:6], 9)
	binary.BigEndian.PutUint16(icmp[6:8], 5)
	putTimestamp(icmp[headerLen:headerLen+16], time.Now())

	ok, r := validateReply(FamilyIPv6, icmp, headerLen)
	if !ok {
		t.Fatal("validateReply rejected a well-formed ICMPv6 echo reply")
	}
	if r.id != 9 || r.seq != 5 {
		t.Errorf("id/seq = %d/%d, want 9/5", r.id, r.seq)
	}
	if r.ttl != 0 {
		t.Errorf("ttl = %d, want 0 (v6 never carries a header on raw sockets)", r.ttl)
	}
}
