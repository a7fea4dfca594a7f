package engine

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/kvanzuijlen/parq/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a loopback UDP listener a test drives by hand, answering
// each incoming query with whatever respond returns.
type fakeServer struct {
	conn *net.UDPConn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &fakeServer{conn: conn}
}

func (f *fakeServer) endpoint(t *testing.T) Endpoint {
	t.Helper()
	addr := f.conn.LocalAddr().(*net.UDPAddr)
	return Endpoint{IP: addr.IP, Port: uint16(addr.Port)}
}

// serveOnce reads one query and writes back respond(query)'s result,
// running in its own goroutine so the test's call to Resolve isn't blocked.
func (f *fakeServer) serveOnce(t *testing.T, respond func(query []byte) []byte) {
	t.Helper()
	go func() {
		buf := make([]byte, 512)
		_ = f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, addr, err := f.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		resp := respond(buf[:n])
		if resp == nil {
			return
		}
		_, _ = f.conn.WriteToUDP(resp, addr)
	}()
}

func aResponse(t *testing.T, query []byte, ip [4]byte, ttl uint32) []byte {
	t.Helper()
	var off int
	hdr, err := wire.ParseHeader(query, &off)
	require.NoError(t, err)
	q, err := wire.ParseQuestion(query, &off)
	require.NoError(t, err)

	respHdr := wire.Header{
		ID:      hdr.ID,
		Flags:   wire.QRFlag | wire.RDFlag | wire.RAFlag,
		QDCount: 1,
		ANCount: 1,
	}
	hdrBytes, err := respHdr.Marshal()
	require.NoError(t, err)
	question, err := wire.Question{Name: q.Name, Type: q.Type, Class: q.Class}.Marshal()
	require.NoError(t, err)

	rr := make([]byte, 0, 12+4)
	rr = append(rr, 0xC0, 0x0C) // pointer back to the question name at offset 12
	typeClass := make([]byte, 4)
	binary.BigEndian.PutUint16(typeClass[0:2], uint16(wire.TypeA))
	binary.BigEndian.PutUint16(typeClass[2:4], uint16(wire.ClassIN))
	rr = append(rr, typeClass...)
	ttlBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(ttlBytes, ttl)
	rr = append(rr, ttlBytes...)
	rr = append(rr, 0, 4)
	rr = append(rr, ip[:]...)

	out := append([]byte{}, hdrBytes...)
	out = append(out, question...)
	out = append(out, rr...)
	return out
}

func nxdomainResponse(t *testing.T, query []byte) []byte {
	t.Helper()
	var off int
	hdr, err := wire.ParseHeader(query, &off)
	require.NoError(t, err)
	q, err := wire.ParseQuestion(query, &off)
	require.NoError(t, err)

	respHdr := wire.Header{ID: hdr.ID, Flags: wire.QRFlag | wire.RDFlag | uint16(wire.RCodeNXDomain), QDCount: 1}
	hdrBytes, err := respHdr.Marshal()
	require.NoError(t, err)
	question, err := wire.Question{Name: q.Name, Type: q.Type, Class: q.Class}.Marshal()
	require.NoError(t, err)
	return append(hdrBytes, question...)
}

func newTestEngine() *Engine {
	return New(Engine{
		MaxServers:   4,
		MaxRetries:   1,
		MaxTimeout:   2 * time.Second,
		RetryTimeout: 400 * time.Millisecond,
	})
}

func TestResolve_HappyPathSingleServer(t *testing.T) {
	srv := newFakeServer(t)
	srv.serveOnce(t, func(q []byte) []byte { return aResponse(t, q, [4]byte{93, 184, 216, 34}, 3600) })

	e := newTestEngine()
	res, err := e.Resolve(context.Background(), []Endpoint{srv.endpoint(t)}, "example.com")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{93, 184, 216, 34}, res.Address)
	assert.Equal(t, uint32(3600), res.TTL)
	assert.Equal(t, 0, res.ServerIndex)
}

func TestResolve_FastestWins(t *testing.T) {
	slow := newFakeServer(t)
	fast := newFakeServer(t)

	slow.serveOnce(t, func(q []byte) []byte {
		time.Sleep(150 * time.Millisecond)
		return aResponse(t, q, [4]byte{10, 0, 0, 1}, 60)
	})
	fast.serveOnce(t, func(q []byte) []byte { return aResponse(t, q, [4]byte{10, 0, 0, 2}, 60) })

	e := newTestEngine()
	res, err := e.Resolve(context.Background(), []Endpoint{slow.endpoint(t), fast.endpoint(t)}, "example.com")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{10, 0, 0, 2}, res.Address)
	assert.Equal(t, 1, res.ServerIndex)
}

func TestResolve_NXDomainIsTerminal(t *testing.T) {
	srv := newFakeServer(t)
	calls := 0
	srv.serveOnce(t, func(q []byte) []byte {
		calls++
		return nxdomainResponse(t, q)
	})

	e := newTestEngine()
	_, err := e.Resolve(context.Background(), []Endpoint{srv.endpoint(t)}, "nonexistent.invalid")
	require.Error(t, err)
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, KindNXDomain, qerr.Kind)

	// Give any stray retry a moment to have landed, then confirm it didn't.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, calls, "NXDOMAIN must not trigger a retry")
}

func TestResolve_RetriesAfterSoftFailure(t *testing.T) {
	srv := newFakeServer(t)

	attempt := 0
	serve := func() {
		srv.serveOnce(t, func(q []byte) []byte {
			attempt++
			var off int
			hdr, err := wire.ParseHeader(q, &off)
			require.NoError(t, err)
			q2, err := wire.ParseQuestion(q, &off)
			require.NoError(t, err)
			if attempt == 1 {
				respHdr := wire.Header{ID: hdr.ID, Flags: wire.QRFlag | wire.RDFlag | uint16(wire.RCodeServFail), QDCount: 1}
				hdrBytes, _ := respHdr.Marshal()
				question, _ := wire.Question{Name: q2.Name, Type: q2.Type, Class: q2.Class}.Marshal()
				return append(hdrBytes, question...)
			}
			return aResponse(t, q, [4]byte{172, 16, 0, 1}, 30)
		})
	}
	serve()

	e := newTestEngine()
	resultCh := make(chan Result, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := e.Resolve(context.Background(), []Endpoint{srv.endpoint(t)}, "example.com")
		resultCh <- res
		errCh <- err
	}()

	// Re-arm the fake server for the retry's second datagram.
	time.Sleep(50 * time.Millisecond)
	serve()

	select {
	case res := <-resultCh:
		require.NoError(t, <-errCh)
		assert.Equal(t, [4]byte{172, 16, 0, 1}, res.Address)
	case <-time.After(3 * time.Second):
		t.Fatal("Resolve did not return in time")
	}
}

func TestDispatch_FailsFastOnFirstSendError(t *testing.T) {
	sock, err := openQuerySocket()
	require.NoError(t, err)
	require.NoError(t, sock.close()) // sends on a closed fd must now fail

	e := newTestEngine()
	query, _, err := e.encodeQuery("example.com")
	require.NoError(t, err)

	servers := []Endpoint{
		{IP: net.IPv4(127, 0, 0, 1), Port: 9},
		{IP: net.IPv4(127, 0, 0, 1), Port: 10},
	}
	addressed, sendErr := e.dispatch(sock, query, servers, 1)
	assert.Error(t, sendErr, "sendto on a closed socket must fail")
	assert.Equal(t, 0, addressed, "dispatch must stop at the first failing send, not try the rest")
}

func TestResolve_NoServers(t *testing.T) {
	e := newTestEngine()
	_, err := e.Resolve(context.Background(), nil, "example.com")
	require.Error(t, err)
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, KindNoServers, qerr.Kind)
}

func TestResolve_BudgetExhaustedOnSilence(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer conn.Close()
	addr := conn.LocalAddr().(*net.UDPAddr)

	e := New(Engine{
		MaxServers:   1,
		MaxRetries:   1,
		MaxTimeout:   300 * time.Millisecond,
		RetryTimeout: 120 * time.Millisecond,
	})
	start := time.Now()
	_, err = e.Resolve(context.Background(), []Endpoint{{IP: addr.IP, Port: uint16(addr.Port)}}, "silent.example")
	elapsed := time.Since(start)

	require.Error(t, err)
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, KindBudgetExhausted, qerr.Kind)
	assert.Less(t, elapsed, time.Second, "must not block past the overall budget plus scheduling slack")
}
