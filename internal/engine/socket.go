package engine

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// querySocket is a single-attempt UDP socket opened directly via
// golang.org/x/sys/unix rather than net.ListenUDP.
//
// HydraDNS reaches for x/sys/unix only to twiddle a socket option
// (SO_REUSEPORT) underneath a connection net.ListenConfig already
// established — the blocking read itself still goes through Go's runtime
// poller, which retries an interrupted syscall internally and never
// surfaces EINTR to the caller. The retry loop here needs to observe EINTR
// itself (the spec's receive loop treats it as "keep waiting, don't count
// against the budget", not as a send/receive failure), which means the
// read has to be a raw recvfrom, so the socket is opened, timed and torn
// down with unix syscalls end to end.
type querySocket struct {
	fd int
}

// openQuerySocket creates an unconnected IPv4 UDP socket.
func openQuerySocket() (*querySocket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	return &querySocket{fd: fd}, nil
}

func (s *querySocket) close() error {
	return unix.Close(s.fd)
}

// setRecvTimeout bounds the next recvfrom call. A non-positive d means
// "already expired" and is rounded up to the smallest representable
// timeout rather than treated as "block forever".
func (s *querySocket) setRecvTimeout(d time.Duration) error {
	if d < time.Microsecond {
		d = time.Microsecond
	}
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, durationToTimeval(d))
}

// setSendTimeout bounds the sendto calls made on this socket.
func (s *querySocket) setSendTimeout(d time.Duration) error {
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, durationToTimeval(d))
}

// sendTo writes msg to the given IPv4 endpoint. A short write is reported
// as an error: a half-sent datagram is as useless as no datagram at all.
func (s *querySocket) sendTo(msg []byte, ep Endpoint) error {
	addr := unix.SockaddrInet4{Port: int(ep.Port)}
	copy(addr.Addr[:], ep.IP.To4())
	return unix.Sendto(s.fd, msg, 0, &addr)
}

// recvFrom reads one datagram into buf, retrying internally on EINTR so
// the caller only ever sees a genuine timeout, a genuine error, or data.
// It returns the number of bytes read and the IPv4 address the datagram
// was reported as coming from.
func (s *querySocket) recvFrom(buf []byte) (int, net.IP, error) {
	for {
		n, from, err := unix.Recvfrom(s.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return 0, nil, err
		}
		addr4, ok := from.(*unix.SockaddrInet4)
		if !ok {
			return n, nil, fmt.Errorf("unexpected sockaddr type %T from recvfrom", from)
		}
		ip := make(net.IP, 4)
		copy(ip, addr4.Addr[:])
		return n, ip, nil
	}
}

// durationToTimeval converts a Go duration to a timeval for SO_RCVTIMEO /
// SO_SNDTIMEO. Callers are expected to have already checked d > 0 — the
// receive loop never calls this once the attempt deadline has passed.
func durationToTimeval(d time.Duration) *unix.Timeval {
	if d <= 0 {
		return &unix.Timeval{}
	}
	sec := d / time.Second
	usec := (d % time.Second) / time.Microsecond
	return &unix.Timeval{Sec: int64(sec), Usec: int64(usec)}
}
