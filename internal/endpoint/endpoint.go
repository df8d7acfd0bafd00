package endpoint

import (
	"fmt"
	"net/netip"
)

// Kind identifies which address form an Endpoint carries.
type Kind int

const (
	// Unspecified is the zero Kind: the endpoint carries no address form.
	// Parse never returns it (an address-absent input yields an IPv4Kind
	// or IPv6Kind endpoint holding that family's unspecified address).
	// internal/ipc rejects it as a listen or datagram bind target, and
	// DialStream treats it as "no local bind".
	Unspecified Kind = iota
	// IPv4Kind means the endpoint carries (at least) an IPv4 address.
	// It is also used for dual-stack hostnames where both an IPv4 and
	// an IPv6 address resolved; IPv4 is the connect-preferred family.
	IPv4Kind
	// IPv6Kind means the endpoint carries only an IPv6 address.
	IPv6Kind
	// LocalKind means the endpoint is a UNIX-domain path.
	LocalKind
)

func (k Kind) String() string {
	switch k {
	case Unspecified:
		return "unspecified"
	case IPv4Kind:
		return "ipv4"
	case IPv6Kind:
		return "ipv6"
	case LocalKind:
		return "local"
	default:
		return "invalid"
	}
}

// Port is a 16-bit port number. PortEphemeral (0) means "assign at bind".
type Port uint16

// PortEphemeral is the sentinel port value meaning "assign at bind".
const PortEphemeral Port = 0

// Endpoint is a fully parsed descriptor of one end of a connection or
// bind target. At most one of {HasIPv4 xor HasIPv6, LocalKind} is
// populated, EXCEPT when Parse resolved a dual-stack hostname, in which
// case both HasIPv4 and HasIPv6 may be true simultaneously (spec §4.A
// rule 4): Kind then names the family preferred for an unqualified
// Connect.
type Endpoint struct {
	Kind Kind

	HasIPv4 bool
	IPv4    netip.Addr

	HasIPv6 bool
	IPv6    netip.Addr

	// TCPPort and UDPPort are resolved independently: a service name
	// may resolve for one transport and not the other (spec §9 "Ambiguous
	// source behavior"), in which case the other field stays
	// PortEphemeral. Numeric ports populate both fields with the same
	// value.
	TCPPort Port
	UDPPort Port

	// LocalPath is the canonicalized, absolute UNIX-domain path. Set
	// only when Kind == LocalKind.
	LocalPath string
}

// IsLocal reports whether e is a UNIX-domain endpoint.
func (e Endpoint) IsLocal() bool {
	return e.Kind == LocalKind
}

// Address returns the endpoint's preferred address (IPv4 if present,
// else IPv6) and whether one is present at all. A Local or Unspecified
// endpoint with no numeric address returns ok == false.
func (e Endpoint) Address() (addr netip.Addr, ok bool) {
	switch {
	case e.HasIPv4:
		return e.IPv4, true
	case e.HasIPv6:
		return e.IPv6, true
	default:
		return netip.Addr{}, false
	}
}

// newIPv4 builds an Endpoint carrying only an IPv4 address.
func newIPv4(addr netip.Addr, tcp, udp Port) Endpoint {
	return Endpoint{Kind: IPv4Kind, HasIPv4: true, IPv4: addr, TCPPort: tcp, UDPPort: udp}
}

// newIPv6 builds an Endpoint carrying only an IPv6 address.
func newIPv6(addr netip.Addr, tcp, udp Port) Endpoint {
	return Endpoint{Kind: IPv6Kind, HasIPv6: true, IPv6: addr, TCPPort: tcp, UDPPort: udp}
}

// newDualStack builds an Endpoint carrying both families, as produced by
// resolving a hostname with both A and AAAA records.
func newDualStack(v4, v6 netip.Addr, hasV4, hasV6 bool, tcp, udp Port) Endpoint {
	e := Endpoint{TCPPort: tcp, UDPPort: udp}
	if hasV4 {
		e.HasIPv4 = true
		e.IPv4 = v4
		e.Kind = IPv4Kind
	}
	if hasV6 {
		e.HasIPv6 = true
		e.IPv6 = v6
		if !hasV4 {
			e.Kind = IPv6Kind
		}
	}
	return e
}

// newLocal builds a UNIX-domain Endpoint for the canonicalized path.
func newLocal(path string) Endpoint {
	return Endpoint{Kind: LocalKind, LocalPath: path}
}

// String renders the canonical string form of e. Feeding it back to
// Parse yields an equivalent Endpoint for any e produced from a literal
// (non-hostname) input — see spec §8's round-trip property.
func (e Endpoint) String() string {
	switch e.Kind {
	case LocalKind:
		return e.LocalPath
	case IPv4Kind:
		port := e.preferredPort()
		if port == PortEphemeral {
			return e.IPv4.String()
		}
		return fmt.Sprintf("%s:%d", e.IPv4.String(), port)
	case IPv6Kind:
		port := e.preferredPort()
		if port == PortEphemeral {
			return fmt.Sprintf("[%s]", e.IPv6.String())
		}
		return fmt.Sprintf("[%s]:%d", e.IPv6.String(), port)
	default: // Unspecified
		return fmt.Sprintf(":%d", e.preferredPort())
	}
}

// preferredPort returns TCPPort if set, else UDPPort, for rendering a
// single canonical port number.
func (e Endpoint) preferredPort() Port {
	if e.TCPPort != PortEphemeral {
		return e.TCPPort
	}
	return e.UDPPort
}
