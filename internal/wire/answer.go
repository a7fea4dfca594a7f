package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Sentinel errors ParseAnswer wraps its return value in, so callers can
// classify a rejected answer via errors.Is instead of matching error text.
var (
	// ErrAnswerTypeMismatch is returned when the answer record's TYPE is not A.
	ErrAnswerTypeMismatch = errors.New("answer record type is not A")
	// ErrAnswerClassMismatch is returned when the answer record's CLASS is not
	// IN, or the record was truncated before its declared fields could be read.
	ErrAnswerClassMismatch = errors.New("answer record class is not IN")
	// ErrAnswerRDLength is returned when an A record's RDLENGTH is not 4.
	ErrAnswerRDLength = errors.New("answer record RDLENGTH is not 4")
)

// ParseAnswer reads the IPv4 result out of the first answer record of a
// response datagram.
//
// The engine always sends exactly one question and assumes a well-behaved
// server echoes it back unchanged, so the answer section is known to start
// at questionLen — the exact byte length of the question this engine wrote.
// That lets parsing skip re-decoding the question name and go straight to
// the record that follows it (RFC 1035 Section 4.1.3).
//
// The record's NAME field is skipped rather than decoded: a compressed name
// here is always a two-octet pointer (RFC 1035 Section 4.1.4), and an
// uncompressed one is a plain label sequence terminated by a zero-length
// label. Either way the caller only needs the record's TYPE/CLASS/TTL/RDATA,
// never the name string itself.
//
// Every multi-byte read is bounds-checked before it happens, so a short or
// truncated datagram returns an error instead of panicking.
func ParseAnswer(msg []byte, questionLen int) (addr [4]byte, ttl uint32, err error) {
	off, err := skipName(msg, questionLen)
	if err != nil {
		return addr, 0, err
	}

	// A short read here is indistinguishable from a malformed CLASS field to
	// the caller: both mean the response can't be trusted and are classified
	// the same way (see ErrAnswerClassMismatch).
	if off+10 > len(msg) {
		return addr, 0, fmt.Errorf("%w: truncated before answer record header", ErrAnswerClassMismatch)
	}
	rrType := binary.BigEndian.Uint16(msg[off : off+2])
	rrClass := binary.BigEndian.Uint16(msg[off+2 : off+4])
	ttl = binary.BigEndian.Uint32(msg[off+4 : off+8])
	rdlength := binary.BigEndian.Uint16(msg[off+8 : off+10])
	off += 10

	if rrType != uint16(TypeA) {
		return addr, 0, fmt.Errorf("%w: answer record type %d is not A", ErrAnswerTypeMismatch, rrType)
	}
	if rrClass != uint16(ClassIN) {
		return addr, 0, fmt.Errorf("%w: answer record class %d is not IN", ErrAnswerClassMismatch, rrClass)
	}
	if rdlength != 4 {
		return addr, 0, fmt.Errorf("%w: A record RDLENGTH %d, want 4", ErrAnswerRDLength, rdlength)
	}
	if off+4 > len(msg) {
		return addr, 0, fmt.Errorf("%w: truncated before A record RDATA", ErrAnswerClassMismatch)
	}
	copy(addr[:], msg[off:off+4])
	return addr, ttl, nil
}

// skipName advances past a single NAME field starting at off and returns
// the offset immediately following it. It does not decode or validate the
// labels beyond bounds-checking; callers that need the name itself should
// use DecodeName instead.
func skipName(msg []byte, off int) (int, error) {
	if off < 0 || off >= len(msg) {
		return 0, fmt.Errorf("%w: unexpected EOF skipping answer name", ErrDNSError)
	}

	if isCompressionPointer(msg[off]) {
		if off+2 > len(msg) {
			return 0, fmt.Errorf("%w: truncated compression pointer in answer name", ErrDNSError)
		}
		return off + 2, nil
	}

	for {
		if off >= len(msg) {
			return 0, fmt.Errorf("%w: unexpected EOF skipping answer name", ErrDNSError)
		}
		labelLen := int(msg[off])
		off++
		if labelLen == 0 {
			return off, nil
		}
		if hasReservedBits(byte(labelLen)) {
			return 0, fmt.Errorf("%w: invalid label length in answer name", ErrDNSError)
		}
		if off+labelLen > len(msg) {
			return 0, fmt.Errorf("%w: unexpected EOF skipping answer name label", ErrDNSError)
		}
		off += labelLen
	}
}
