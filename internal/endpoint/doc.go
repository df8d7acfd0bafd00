// Package endpoint parses host:port, "[v6lit]:port", and UNIX-domain path
// strings into a typed Endpoint descriptor, and renders a descriptor back
// to its canonical string form.
//
// It also carries the address-classification predicates (loopback,
// private, multicast, v4-mapped, and so on) and the IPv4/IPv6
// interoperability helpers for callers that need to tell a v4-mapped
// peer from a native IPv6 one.
package endpoint
