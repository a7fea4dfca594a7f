// Package wire implements RFC 1035 DNS message encoding and decoding for the
// parallel-query resolver engine.
//
// Scope:
//
// This package only encodes and decodes what the engine needs: a single
// question (QDCOUNT=1, QTYPE=A, QCLASS=IN) and the answer records found in a
// matching response. It does not implement zone transfer, EDNS, DNSSEC, or
// any record type beyond A — those are out of scope for a resolver that only
// ever asks "what is the IPv4 address for this name".
//
// Error Handling:
//
// All errors are wrapped with context using fmt.Errorf("...: %w", err) so
// callers can test against ErrDNSError with errors.Is.
package wire

import "errors"

// ErrDNSError is a sentinel error for DNS wire-format violations: truncated
// messages, malformed labels, compression pointer loops, and similar.
var ErrDNSError = errors.New("dns wire error")
