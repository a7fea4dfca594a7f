package engine

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/sys/unix"
)

func TestQuerySocket_SendRecvRoundTrip(t *testing.T) {
	server, err := openQuerySocket()
	require.NoError(t, err)
	defer server.close()
	require.NoError(t, server.setRecvTimeout(2*time.Second))

	// Discover the ephemeral port the kernel assigned by binding via net,
	// then reopen it as a raw socket isn't possible (can't rebind), so
	// instead bind the raw fd directly via unix.Bind.
	require.NoError(t, unix.Bind(server.fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}))
	sa, err := unix.Getsockname(server.fd)
	require.NoError(t, err)
	serverAddr := sa.(*unix.SockaddrInet4)

	client, err := openQuerySocket()
	require.NoError(t, err)
	defer client.close()

	payload := []byte("dns-query-payload")
	ep := Endpoint{IP: net.IPv4(127, 0, 0, 1), Port: uint16(serverAddr.Port)}
	require.NoError(t, client.sendTo(payload, ep))

	buf := make([]byte, 64)
	n, from, err := server.recvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
	assert.True(t, from.Equal(net.IPv4(127, 0, 0, 1)) || from.IsLoopback())
}

func TestQuerySocket_RecvTimesOut(t *testing.T) {
	sock, err := openQuerySocket()
	require.NoError(t, err)
	defer sock.close()
	require.NoError(t, unix.Bind(sock.fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}))
	require.NoError(t, sock.setRecvTimeout(20*time.Millisecond))

	buf := make([]byte, 64)
	_, _, err = sock.recvFrom(buf)
	require.Error(t, err)
	assert.True(t, isTimeout(err))
}

func TestDurationToTimeval(t *testing.T) {
	tv := durationToTimeval(1500 * time.Millisecond)
	assert.Equal(t, int64(1), tv.Sec)
	assert.Equal(t, int64(500000), tv.Usec)

	zero := durationToTimeval(0)
	assert.Equal(t, int64(0), zero.Sec)
	assert.Equal(t, int64(0), zero.Usec)
}
