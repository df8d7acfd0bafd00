package endpoint_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/diminuto-go/diminuto/internal/endpoint"
)

func TestParseMatrix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		wantKind endpoint.Kind
		check    func(t *testing.T, e endpoint.Endpoint)
	}{
		{
			name:     "bare port defaults to ipv4 unspecified",
			input:    ":8888",
			wantKind: endpoint.IPv4Kind,
			check: func(t *testing.T, e endpoint.Endpoint) {
				if !e.HasIPv4 || e.IPv4 != netip.IPv4Unspecified() {
					t.Fatalf("want unspecified ipv4, got %+v", e)
				}
				if e.TCPPort != 8888 || e.UDPPort != 8888 {
					t.Fatalf("want port 8888 on both transports, got tcp=%d udp=%d", e.TCPPort, e.UDPPort)
				}
			},
		},
		{
			name:     "bracketed ipv6 any with service name",
			input:    "[::]:http",
			wantKind: endpoint.IPv6Kind,
			check: func(t *testing.T, e endpoint.Endpoint) {
				if !e.HasIPv6 || e.IPv6 != netip.IPv6Unspecified() {
					t.Fatalf("want unspecified ipv6, got %+v", e)
				}
				if e.TCPPort != 80 {
					t.Fatalf("want tcp port 80 for http, got %d", e.TCPPort)
				}
			},
		},
		{
			name:     "bracketed v4-mapped ipv6 literal with service name",
			input:    "[::ffff:192.168.1.1]:tftp",
			wantKind: endpoint.IPv6Kind,
			check: func(t *testing.T, e endpoint.Endpoint) {
				want := netip.MustParseAddr("::ffff:192.168.1.1")
				if !e.HasIPv6 || e.IPv6 != want {
					t.Fatalf("want %s, got %+v", want, e)
				}
				if e.UDPPort != 69 {
					t.Fatalf("want udp port 69 for tftp, got %d", e.UDPPort)
				}
			},
		},
		{
			name:     "bare hostname with no port",
			input:    "localhost",
			wantKind: endpoint.IPv4Kind,
			check: func(t *testing.T, e endpoint.Endpoint) {
				if !e.HasIPv4 {
					t.Fatalf("want localhost to resolve an ipv4 address, got %+v", e)
				}
				if e.TCPPort != endpoint.PortEphemeral {
					t.Fatalf("want ephemeral port, got %d", e.TCPPort)
				}
			},
		},
		{
			name:     "absolute unix path",
			input:    "/var/tmp/sock",
			wantKind: endpoint.LocalKind,
			check: func(t *testing.T, e endpoint.Endpoint) {
				if e.LocalPath != "/var/tmp/sock" {
					t.Fatalf("want /var/tmp/sock, got %q", e.LocalPath)
				}
				if !e.IsLocal() {
					t.Fatalf("want IsLocal() true")
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e, err := endpoint.Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tc.input, err)
			}
			if e.Kind != tc.wantKind {
				t.Fatalf("Parse(%q).Kind = %v, want %v", tc.input, e.Kind, tc.wantKind)
			}
			tc.check(t, e)
		})
	}
}

func TestParseUndefinedIsAmbiguous(t *testing.T) {
	t.Parallel()

	_, err := endpoint.Parse("undefinedthing")
	if !errors.Is(err, endpoint.ErrAmbiguous) {
		t.Fatalf("Parse(%q) error = %v, want wrapping ErrAmbiguous", "undefinedthing", err)
	}
}

func TestParsePreferIPv6(t *testing.T) {
	endpoint.SetPreferIPv6(true)
	defer endpoint.SetPreferIPv6(false)

	e, err := endpoint.Parse(":9999")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if e.Kind != endpoint.IPv6Kind || !e.HasIPv6 || e.IPv6 != netip.IPv6Unspecified() {
		t.Fatalf("with PreferIPv6(true), want unspecified ipv6 endpoint, got %+v", e)
	}
}

func TestParseRoundTripLiteral(t *testing.T) {
	t.Parallel()

	literals := []string{
		":8888",
		"[::]:8080",
		"[::ffff:192.168.1.1]:69",
		"192.168.1.1:22",
		"/var/tmp/sock",
	}

	for _, s := range literals {
		first, err := endpoint.Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", s, err)
		}
		rendered := first.String()
		second, err := endpoint.Parse(rendered)
		if err != nil {
			t.Fatalf("Parse(rendered %q from %q) error: %v", rendered, s, err)
		}
		if first != second {
			t.Fatalf("round-trip mismatch for %q: first=%+v rendered=%q second=%+v", s, first, rendered, second)
		}
	}
}

func TestParseUnbracketedIPv6LiteralIsAmbiguous(t *testing.T) {
	t.Parallel()

	_, err := endpoint.Parse("::1:8080")
	if !errors.Is(err, endpoint.ErrAmbiguous) {
		t.Fatalf("Parse of unbracketed ipv6-looking literal error = %v, want ErrAmbiguous", err)
	}
}

func TestMustParsePanicsOnError(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("MustParse did not panic on an ambiguous input")
		}
	}()
	endpoint.MustParse("undefinedthing")
}
