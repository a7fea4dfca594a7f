package wire

// DNS header flags and masks (RFC 1035 Section 4.1.1)
//
// The DNS header contains a 16-bit flags field with the following layout:
//
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|QR|   Opcode  |AA|TC|RD|RA| Z|AD|CD|   RCODE   |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	 15 14 13 12 11 10  9  8  7  6  5  4  3  2  1  0
//
// The engine sends queries with every flag cleared and only ever inspects
// QR, Opcode, TC and RCODE on incoming responses; the remaining flags are
// defined here for completeness when reading the wire bytes.
const (
	QRFlag     uint16 = 0x8000 // Query/Response: 1 = response, 0 = query
	OpcodeMask uint16 = 0x7800 // Bits 14-11: operation type (use >> 11 to extract)
	AAFlag     uint16 = 0x0400 // Authoritative Answer
	TCFlag     uint16 = 0x0200 // Truncation: message was truncated, retry is warranted
	RDFlag     uint16 = 0x0100 // Recursion Desired
	RAFlag     uint16 = 0x0080 // Recursion Available
	ZFlag      uint16 = 0x0040 // Reserved (must be zero in queries)
	ADFlag     uint16 = 0x0020 // Authenticated Data (DNSSEC)
	CDFlag     uint16 = 0x0010 // Checking Disabled (DNSSEC)
	RCodeMask  uint16 = 0x000F // Bits 3-0: response code
)

// RecordType represents a DNS resource record type (RFC 1035 Section 3.2.2).
//
// The engine only queries and accepts TypeA; the others are named for
// reference. ParseAnswer rejects every TYPE other than A without
// consulting them.
type RecordType uint16

const (
	TypeA     RecordType = 1  // IPv4 address — the only type this resolver asks for
	TypeCNAME RecordType = 5  // Canonical name (alias) — rejected, see Non-goals
	TypeAAAA  RecordType = 28 // IPv6 address — rejected, see Non-goals
)

// RecordClass represents a DNS resource record class (RFC 1035).
type RecordClass uint16

const (
	ClassIN RecordClass = 1 // Internet class, the only one this resolver speaks
)

// RCode represents a DNS response code (RFC 1035 Section 4.1.1).
type RCode uint16

const (
	RCodeNoError  RCode = 0 // No error
	RCodeFormErr  RCode = 1 // Format error: our query was malformed (soft)
	RCodeServFail RCode = 2 // Server failure: internal error (soft)
	RCodeNXDomain RCode = 3 // Non-existent domain (terminal)
	RCodeNotImp   RCode = 4 // Not implemented: unsupported query type (soft)
	RCodeRefused  RCode = 5 // Query refused by policy (soft)
)

// RCodeFromFlags extracts the response code from the DNS header flags.
// The RCODE occupies the low 4 bits of the flags field.
func RCodeFromFlags(flags uint16) RCode {
	return RCode(flags & RCodeMask)
}

// IsResponse reports whether the QR bit is set.
func IsResponse(flags uint16) bool {
	return flags&QRFlag != 0
}

// IsTruncated reports whether the TC bit is set.
func IsTruncated(flags uint16) bool {
	return flags&TCFlag != 0
}

// Opcode extracts the 4-bit operation code from the flags field.
func Opcode(flags uint16) uint16 {
	return (flags & OpcodeMask) >> 11
}
