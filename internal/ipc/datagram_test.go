//go:build linux

package ipc_test

import (
	"testing"

	"github.com/diminuto-go/diminuto/internal/endpoint"
	"github.com/diminuto-go/diminuto/internal/ipc"
)

func TestDatagramSendRecv(t *testing.T) {
	t.Parallel()

	server, err := ipc.NewDatagramPeer(endpoint.MustParse("127.0.0.1:0"), nil)
	if err != nil {
		t.Fatalf("NewDatagramPeer error: %v", err)
	}
	defer server.Close()

	client, err := ipc.NewDatagramPeer(endpoint.MustParse("127.0.0.1:0"), nil)
	if err != nil {
		t.Fatalf("NewDatagramPeer error: %v", err)
	}
	defer client.Close()

	serverAddr, err := server.LocalAddrPort()
	if err != nil {
		t.Fatalf("LocalAddrPort error: %v", err)
	}

	if _, err := ipc.SendDatagram(client, []byte("ping"), serverAddr); err != nil {
		t.Fatalf("SendDatagram error: %v", err)
	}

	buf := make([]byte, 16)
	n, src, err := ipc.RecvDatagram(server, buf)
	if err != nil {
		t.Fatalf("RecvDatagram error: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("RecvDatagram payload = %q, want %q", buf[:n], "ping")
	}
	if !src.IsValid() || src.Addr().String() != "127.0.0.1" {
		t.Fatalf("RecvDatagram src = %v, want 127.0.0.1:*", src)
	}
}

func TestDatagramTimestamped(t *testing.T) {
	t.Parallel()

	server, err := ipc.NewDatagramPeer(endpoint.MustParse("127.0.0.1:0"), nil)
	if err != nil {
		t.Fatalf("NewDatagramPeer error: %v", err)
	}
	defer server.Close()

	if err := ipc.SetTimestamp(server, true); err != nil {
		t.Fatalf("SetTimestamp error: %v", err)
	}

	client, err := ipc.NewDatagramPeer(endpoint.MustParse("127.0.0.1:0"), nil)
	if err != nil {
		t.Fatalf("NewDatagramPeer error: %v", err)
	}
	defer client.Close()

	serverAddr, err := server.LocalAddrPort()
	if err != nil {
		t.Fatalf("LocalAddrPort error: %v", err)
	}
	if _, err := ipc.SendDatagram(client, []byte("tick"), serverAddr); err != nil {
		t.Fatalf("SendDatagram error: %v", err)
	}

	buf := make([]byte, 16)
	n, _, ts, err := ipc.RecvDatagramTimestamped(server, buf)
	if err != nil {
		t.Fatalf("RecvDatagramTimestamped error: %v", err)
	}
	if string(buf[:n]) != "tick" {
		t.Fatalf("payload = %q, want %q", buf[:n], "tick")
	}
	if ts.IsZero() {
		t.Fatal("RecvDatagramTimestamped returned a zero timestamp despite SO_TIMESTAMP")
	}
}
