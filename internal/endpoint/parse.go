package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

// ErrAmbiguous is returned when a bare token is neither a literal
// address, a resolvable hostname, a numeric port, nor a known service
// name (spec §4.A "Ambiguity": no silent fallback).
var ErrAmbiguous = errors.New("endpoint: not a local path, address, hostname, or port/service")

// preferIPv6 is the process-wide default address family used when an
// input names a port or service but no address at all (spec §5 "the
// endpoint-parser preference flag"; mirrors the original's
// diminuto_ipc_endpoint_ipv6 global). Default is IPv4, matching the
// original's default.
var preferIPv6 atomic.Bool

// SetPreferIPv6 changes the process-wide default address family used
// when parsing an address-absent endpoint (a bare port or service, with
// or without a leading colon). It affects every subsequent call to
// Parse in the process.
func SetPreferIPv6(prefer bool) {
	preferIPv6.Store(prefer)
}

// PreferIPv6 reports the current process-wide default address family
// preference set by SetPreferIPv6.
func PreferIPv6() bool {
	return preferIPv6.Load()
}

// Parse parses s into an Endpoint descriptor per the grammar in spec §6.
// Hostname resolution, when needed, uses the background context; use
// ParseContext to bound or cancel that resolution.
func Parse(s string) (Endpoint, error) {
	return ParseContext(context.Background(), s)
}

// ParseContext is Parse with an explicit context governing any DNS
// resolution the parse requires.
func ParseContext(ctx context.Context, s string) (Endpoint, error) {
	switch {
	case isLocalForm(s):
		return parseLocal(s)
	case strings.HasPrefix(s, "["):
		return parseBracketed(ctx, s)
	default:
		return parseInet(ctx, s)
	}
}

// -------------------------------------------------------------------------
// Form 1 — UNIX-domain path
// -------------------------------------------------------------------------

func isLocalForm(s string) bool {
	return s == "" || strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

func parseLocal(s string) (Endpoint, error) {
	if s == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Endpoint{}, dierr.Wrap("endpoint.Parse", dierr.IoError, err)
		}
		return newLocal(cwd), nil
	}

	path := s
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return Endpoint{}, dierr.Wrap("endpoint.Parse", dierr.IoError, err)
		}
		path = filepath.Join(cwd, path)
	}

	return newLocal(filepath.Clean(path)), nil
}

// ValidLocal reports whether e's LocalPath is usable as a UNIX-domain
// bind target: its parent directory must exist and be a directory. The
// path itself need not yet exist (spec §4.A).
func (e Endpoint) ValidLocal() (bool, error) {
	if e.Kind != LocalKind {
		return false, dierr.New("endpoint.ValidLocal", dierr.Invalid)
	}
	parent := filepath.Dir(e.LocalPath)
	info, err := os.Stat(parent)
	if err != nil {
		return false, nil
	}
	return info.IsDir(), nil
}

// -------------------------------------------------------------------------
// Form 2 — bracketed IPv6 literal
// -------------------------------------------------------------------------

func parseBracketed(ctx context.Context, s string) (Endpoint, error) {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Endpoint{}, fmt.Errorf("endpoint: unterminated %q: %w", s, ErrAmbiguous)
	}

	literal := s[1:end]
	addr, err := netip.ParseAddr(literal)
	if err != nil || !addr.Is6() {
		return Endpoint{}, fmt.Errorf("endpoint: %q is not an IPv6 literal: %w", literal, ErrAmbiguous)
	}

	rest := s[end+1:]
	switch {
	case rest == "":
		return newIPv6(addr, PortEphemeral, PortEphemeral), nil
	case strings.HasPrefix(rest, ":"):
		tcp, udp, err := parsePortOrService(ctx, rest[1:])
		if err != nil {
			return Endpoint{}, err
		}
		return newIPv6(addr, tcp, udp), nil
	default:
		return Endpoint{}, fmt.Errorf("endpoint: trailing %q after bracketed literal: %w", rest, ErrAmbiguous)
	}
}

// -------------------------------------------------------------------------
// Forms 3-5 — IPv4 literal, hostname, bare port/service
// -------------------------------------------------------------------------

func parseInet(ctx context.Context, s string) (Endpoint, error) {
	host, port, hasPort := splitHostPort(s)
	if !hasPort && host == s {
		// No colon at all: try the whole string as a host first, then
		// fall back to treating it as a bare port/service.
		if e, ok, err := tryHost(ctx, s, PortEphemeral, PortEphemeral); ok {
			return e, err
		}
		return parseAddressAbsent(ctx, s)
	}

	if strings.Count(s, ":") > 1 {
		return Endpoint{}, fmt.Errorf("endpoint: %q looks like an unbracketed IPv6 literal: %w", s, ErrAmbiguous)
	}

	if host == "" {
		return parseAddressAbsent(ctx, port)
	}

	tcp, udp, err := parsePortOrService(ctx, port)
	if err != nil {
		return Endpoint{}, err
	}

	if e, ok, err := tryHost(ctx, host, tcp, udp); ok {
		return e, err
	}
	return Endpoint{}, fmt.Errorf("endpoint: %q is not a valid address or hostname: %w", host, ErrAmbiguous)
}

// splitHostPort splits s on its single colon, if any. hasPort is false
// when s has no colon at all (host == s in that case).
func splitHostPort(s string) (host, port string, hasPort bool) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

// tryHost attempts to resolve host as an IPv4 literal or a hostname. ok
// is false when host is neither, so the caller can fall back to
// treating the whole original string as a bare port/service.
func tryHost(ctx context.Context, host string, tcp, udp Port) (e Endpoint, ok bool, err error) {
	if addr, perr := netip.ParseAddr(host); perr == nil && addr.Is4() {
		return newIPv4(addr, tcp, udp), true, nil
	}

	addrs, rerr := net.DefaultResolver.LookupIPAddr(ctx, host)
	if rerr != nil || len(addrs) == 0 {
		return Endpoint{}, false, nil
	}

	var v4, v6 netip.Addr
	var hasV4, hasV6 bool
	for _, a := range addrs {
		na, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		na = na.Unmap()
		if na.Is4() && !hasV4 {
			v4, hasV4 = na, true
		} else if na.Is6() && !hasV6 {
			v6, hasV6 = na, true
		}
	}
	if !hasV4 && !hasV6 {
		return Endpoint{}, false, nil
	}
	return newDualStack(v4, v6, hasV4, hasV6, tcp, udp), true, nil
}

// parseAddressAbsent handles spec §4.A form 5: a bare port/service, with
// no address at all. The address family is the process-wide preference
// (spec §5), and the address value is that family's Unspecified
// sentinel ("any local interface").
func parseAddressAbsent(ctx context.Context, portOrService string) (Endpoint, error) {
	tcp, udp, err := parsePortOrService(ctx, portOrService)
	if err != nil {
		return Endpoint{}, err
	}
	if PreferIPv6() {
		return newIPv6(netip.IPv6Unspecified(), tcp, udp), nil
	}
	return newIPv4(netip.IPv4Unspecified(), tcp, udp), nil
}

// -------------------------------------------------------------------------
// Port-or-service resolution
// -------------------------------------------------------------------------

// parsePortOrService resolves s as either a decimal port number (valid
// for both transports) or a service name, resolved independently for
// tcp and udp. Per spec §9's documented (preserved, not "fixed")
// ambiguity, a service that resolves for only one transport leaves the
// other field at PortEphemeral. A service unresolvable for either
// transport is an error.
func parsePortOrService(ctx context.Context, s string) (tcp, udp Port, err error) {
	if s == "" {
		return PortEphemeral, PortEphemeral, nil
	}

	if n, perr := strconv.ParseUint(s, 10, 16); perr == nil {
		return Port(n), Port(n), nil
	}

	tcpPort, tcpErr := net.DefaultResolver.LookupPort(ctx, "tcp", s)
	udpPort, udpErr := net.DefaultResolver.LookupPort(ctx, "udp", s)
	if tcpErr != nil && udpErr != nil {
		return 0, 0, fmt.Errorf("endpoint: service %q unresolvable for tcp or udp: %w", s, ErrAmbiguous)
	}
	if tcpErr == nil {
		tcp = Port(tcpPort)
	}
	if udpErr == nil {
		udp = Port(udpPort)
	}
	return tcp, udp, nil
}
