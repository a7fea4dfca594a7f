// Package engine resolves a single hostname to an IPv4 address by racing a
// DNS A-record query against an ordered list of recursive resolvers over
// UDP, returning the first answer any of them produces.
package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kvanzuijlen/parq/internal/wire"
	"golang.org/x/sys/unix"
)

const (
	// maxDatagramSize is the UDP payload budget this engine writes into
	// and reads out of. Responses larger than this are simply never seen:
	// the receive buffer is this size, and reads that don't fit are
	// truncated by the kernel the way any UDP recv is.
	maxDatagramSize = 512
)

// Endpoint is a resolver this engine may query, host and port both
// explicit: nothing here hardcodes port 53, so a caller wiring up a test
// server on an ephemeral loopback port needs no special case.
type Endpoint struct {
	IP   net.IP
	Port uint16
}

// Result is a successful resolution.
type Result struct {
	Address     [4]byte
	TTL         uint32
	ServerIndex int
}

// Engine holds the tunables and the running transaction-ID sequence for
// one resolver client.
//
// Engine is NOT safe for concurrent use: Resolve mutates the sequence
// counter on every call with no internal locking, by design (see
// nextBase) — a caller that wants concurrent resolutions should use one
// Engine per goroutine rather than share one.
type Engine struct {
	MaxServers   int
	MaxRetries   int
	MaxTimeout   time.Duration
	RetryTimeout time.Duration
	Logger       *slog.Logger

	counter uint16
}

// Defaults mirror the reference resolver's tunables.
const (
	DefaultMaxServers   = 8
	DefaultMaxRetries   = 1
	DefaultMaxTimeout   = 500 * time.Millisecond
	DefaultRetryTimeout = 300 * time.Millisecond
)

// New builds an Engine, filling any unset field with its default: a
// non-positive MaxServers, MaxTimeout or RetryTimeout, a negative
// MaxRetries (0 is kept and means no retries), and a nil Logger, which
// becomes slog.Default().
func New(e Engine) *Engine {
	if e.MaxServers <= 0 {
		e.MaxServers = DefaultMaxServers
	}
	if e.MaxRetries < 0 {
		e.MaxRetries = DefaultMaxRetries
	}
	if e.MaxTimeout <= 0 {
		e.MaxTimeout = DefaultMaxTimeout
	}
	if e.RetryTimeout <= 0 {
		e.RetryTimeout = DefaultRetryTimeout
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	return &e
}

// Resolve queries servers in parallel for hostname's A record and returns
// the first valid answer. servers is capped to MaxServers; entries past
// that are ignored rather than rejected, mirroring the reference tool's
// fixed-size server array.
func (e *Engine) Resolve(ctx context.Context, servers []Endpoint, hostname string) (Result, error) {
	if len(servers) == 0 {
		return Result{}, newQueryError(KindNoServers, -1, nil)
	}
	if len(servers) > e.MaxServers {
		servers = servers[:e.MaxServers]
	}

	query, answerOffset, err := e.encodeQuery(hostname)
	if err != nil {
		return Result{}, newQueryError(KindEncodeOverflow, -1, err)
	}

	callDeadline := time.Now().Add(e.MaxTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(callDeadline) {
		callDeadline = ctxDeadline
	}

	// Computed once and reused across every retry within this call: a
	// reply that arrives late from an earlier attempt still lands inside
	// this window instead of being treated as a stray from nothing.
	base := e.nextBase(len(servers))

	retriesLeft := e.MaxRetries
	var lastErr *QueryError

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, newQueryError(KindBudgetExhausted, -1, err)
		}

		result, attemptErr := e.attempt(query, answerOffset, servers, base, callDeadline)
		if attemptErr == nil {
			return result, nil
		}

		qerr := asQueryError(attemptErr)
		lastErr = qerr

		if !qerr.Kind.Retriable() {
			e.Logger.Warn("dns resolve failed", slog.String("hostname", hostname), slog.String("kind", qerr.Kind.String()))
			return Result{}, qerr
		}
		if retriesLeft <= 0 || !time.Now().Before(callDeadline) {
			break
		}
		retriesLeft--
		e.Logger.Info("dns resolve retrying", slog.String("hostname", hostname), slog.String("kind", qerr.Kind.String()), slog.Int("retries_left", retriesLeft))
	}

	// Retries (or the call budget) ran out without a dispositive answer.
	// lastErr already carries whatever the final attempt actually saw —
	// a soft RCODE, a parse failure, silence — so it's returned as-is
	// rather than papered over with a generic budget-exhausted error.
	if lastErr == nil {
		lastErr = newQueryError(KindBudgetExhausted, -1, nil)
	}
	e.Logger.Warn("dns resolve failed", slog.String("hostname", hostname), slog.String("kind", lastErr.Kind.String()))
	return Result{}, lastErr
}

// attempt runs one full dispatch-then-receive cycle: a fresh socket, the
// same ID window as every other attempt in this call, and a deadline
// recomputed from the current wall clock rather than carried over from a
// previous attempt's (possibly already-expired) one.
func (e *Engine) attempt(query []byte, answerOffset int, servers []Endpoint, base uint16, callDeadline time.Time) (Result, error) {
	sock, err := openQuerySocket()
	if err != nil {
		return Result{}, newQueryError(KindSendFailed, -1, err)
	}
	defer func() { _ = sock.close() }()

	remaining := time.Until(callDeadline)
	attemptWindow := e.RetryTimeout
	if remaining < attemptWindow {
		attemptWindow = remaining
	}
	attemptDeadline := time.Now().Add(attemptWindow)

	_ = sock.setSendTimeout(attemptWindow / 2)

	addressed, sendErr := e.dispatch(sock, query, servers, base)
	if sendErr != nil {
		return Result{}, newQueryError(KindSendFailed, -1, sendErr)
	}

	return e.receive(sock, answerOffset, addressed, base, attemptDeadline)
}

// dispatch stamps and sends one copy of query to every server. A short or
// failed send is fatal to the attempt, matching the reference tool's
// behavior: the first sendto that doesn't go out cleanly aborts dispatch
// rather than carrying on to the remaining servers.
func (e *Engine) dispatch(sock *querySocket, query []byte, servers []Endpoint, base uint16) (int, error) {
	addressed := 0
	msg := make([]byte, len(query))
	for i, ep := range servers {
		copy(msg, query)
		wire.PutID(msg, base+uint16(i))
		if err := sock.sendTo(msg, ep); err != nil {
			e.Logger.Warn("dns send failed", slog.Int("server_index", i), slog.Any("err", err))
			return addressed, err
		}
		addressed++
	}
	return addressed, nil
}

// receive reads datagrams until a valid answer arrives, every addressed
// server has been heard from, or attemptDeadline passes. A datagram with
// an out-of-window ID is a stray from some other resolution entirely and
// is discarded without counting against the tally; a datagram with an
// in-window ID that fails validation still counts, since that server did
// reply, just not usefully.
func (e *Engine) receive(sock *querySocket, answerOffset, addressed int, base uint16, attemptDeadline time.Time) (Result, error) {
	var buf [maxDatagramSize]byte
	heardFrom := 0
	sawStray := false
	var lastErr *QueryError

	for heardFrom < addressed {
		remaining := time.Until(attemptDeadline)
		if remaining <= 0 {
			break
		}
		if err := sock.setRecvTimeout(remaining); err != nil {
			return Result{}, newQueryError(KindRecvFailed, -1, err)
		}

		n, _, err := sock.recvFrom(buf[:])
		if err != nil {
			if isTimeout(err) {
				break
			}
			return Result{}, newQueryError(KindRecvFailed, -1, err)
		}

		if n < wire.HeaderSize {
			continue // malformed, too short to even carry an ID
		}
		msg := buf[:n]

		qid := binary.BigEndian.Uint16(msg[0:2])
		if qid < base || int(qid) >= int(base)+addressed {
			sawStray = true
			continue // stray reply from an unrelated window, discard uncounted
		}
		serverIndex := int(qid - base)
		heardFrom++

		result, qerr := e.validate(msg, answerOffset, serverIndex)
		if qerr == nil {
			return result, nil
		}
		lastErr = qerr
		if !qerr.Kind.Retriable() {
			return Result{}, qerr
		}
	}

	if lastErr != nil {
		return Result{}, lastErr
	}
	if sawStray {
		return Result{}, newQueryError(KindIDMismatchOnly, -1, nil)
	}
	// Nothing arrived at all: no stray, no in-window reply, just silence
	// until the attempt's own deadline. Not dispositive on its own — the
	// retry controller decides whether there's budget left to try again.
	return Result{}, newQueryError(KindBudgetExhausted, -1, nil)
}

// validate classifies one in-window reply and, if it passes every check,
// parses its answer.
func (e *Engine) validate(msg []byte, answerOffset, serverIndex int) (Result, *QueryError) {
	var off int
	hdr, err := wire.ParseHeader(msg, &off)
	if err != nil {
		return Result{}, newQueryError(KindRCodeReserved, serverIndex, err)
	}
	if !wire.IsResponse(hdr.Flags) || wire.Opcode(hdr.Flags) != 0 {
		return Result{}, newQueryError(KindRCodeReserved, serverIndex, errors.New("malformed response header"))
	}

	if wire.IsTruncated(hdr.Flags) {
		return Result{}, newQueryError(KindRCodeSoft, serverIndex, errors.New("response truncated"))
	}

	switch wire.RCodeFromFlags(hdr.Flags) {
	case wire.RCodeNoError:
		// fall through to answer parsing below
	case wire.RCodeNXDomain:
		return Result{}, newQueryError(KindNXDomain, serverIndex, nil)
	case wire.RCodeFormErr, wire.RCodeServFail, wire.RCodeNotImp, wire.RCodeRefused:
		return Result{}, newQueryError(KindRCodeSoft, serverIndex, fmt.Errorf("rcode %d", wire.RCodeFromFlags(hdr.Flags)))
	default:
		return Result{}, newQueryError(KindRCodeReserved, serverIndex, fmt.Errorf("rcode %d", wire.RCodeFromFlags(hdr.Flags)))
	}

	if hdr.ANCount < 1 {
		return Result{}, newQueryError(KindEmptyAnswer, serverIndex, nil)
	}

	addr, ttl, err := wire.ParseAnswer(msg, answerOffset)
	if err != nil {
		switch {
		case errors.Is(err, wire.ErrAnswerTypeMismatch):
			return Result{}, newQueryError(KindParseTypeMismatch, serverIndex, err)
		case errors.Is(err, wire.ErrAnswerRDLength):
			return Result{}, newQueryError(KindParseRDLength, serverIndex, err)
		default:
			return Result{}, newQueryError(KindParseClassMismatch, serverIndex, err)
		}
	}

	return Result{Address: addr, TTL: ttl, ServerIndex: serverIndex}, nil
}

// encodeQuery builds the header+question for hostname with ID left at
// zero (the dispatcher stamps a distinct ID into a copy per server) and
// returns the byte offset where the answer section will begin once a
// well-behaved server echoes the question back unchanged.
func (e *Engine) encodeQuery(hostname string) ([]byte, int, error) {
	question, err := wire.Question{Name: hostname, Type: uint16(wire.TypeA), Class: uint16(wire.ClassIN)}.Marshal()
	if err != nil {
		return nil, 0, err
	}

	// Flags left entirely zero, RD included: the engine races independent
	// resolvers directly and deliberately does not rely on any one of them
	// doing recursion on its behalf.
	hdr := wire.Header{ID: 0, Flags: 0, QDCount: 1}
	hdrBytes, err := hdr.Marshal()
	if err != nil {
		return nil, 0, err
	}

	msg := make([]byte, 0, len(hdrBytes)+len(question))
	msg = append(msg, hdrBytes...)
	msg = append(msg, question...)

	if len(msg) > maxDatagramSize {
		return nil, 0, errors.New("question does not fit the 512-octet datagram budget")
	}
	return msg, len(msg), nil
}

func asQueryError(err error) *QueryError {
	var qerr *QueryError
	if errors.As(err, &qerr) {
		return qerr
	}
	return newQueryError(KindRecvFailed, -1, err)
}

// isTimeout reports whether a recvfrom error means "nothing arrived before
// SO_RCVTIMEO elapsed" rather than a genuine I/O failure.
func isTimeout(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
