// Package ping implements the raw ICMPv4/ICMPv6 echo probe engine: build
// and send an echo request, then receive and validate a reply. The
// engine keeps no in-flight state; correlating a reply to the request
// that produced it is the caller's responsibility.
package ping
