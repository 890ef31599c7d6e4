package slp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"mcwatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startFakeServer accepts connections on a loopback port and hands each one
// to handle. It returns the listening address.
func startFakeServer(t *testing.T, handle func(conn net.Conn)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	t.Cleanup(func() {
		ln.Close()
		wg.Wait()
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer conn.Close()
				_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
				handle(conn)
			}()
		}
	}()

	return ln.Addr().String()
}

type handshake struct {
	version   int32
	host      string
	port      int
	nextState int32
}

func readHandshake(r *bufio.Reader) (handshake, error) {
	id, body, err := readPacket(r, 1024)
	if err != nil {
		return handshake{}, err
	}
	if id != packetHandshake {
		return handshake{}, errors.New("not a handshake")
	}

	var hs handshake
	if hs.version, err = ReadVarInt(body); err != nil {
		return hs, err
	}
	if hs.host, err = ReadString(body, 255); err != nil {
		return hs, err
	}
	hi, _ := body.ReadByte()
	lo, _ := body.ReadByte()
	hs.port = int(hi)<<8 | int(lo)
	hs.nextState, err = ReadVarInt(body)
	return hs, err
}

// statusHandler behaves like a well-formed server: handshake, status request,
// status response, then echoes a ping.
func statusHandler(body string, seen chan<- handshake) func(net.Conn) {
	return func(conn net.Conn) {
		r := bufio.NewReader(conn)
		hs, err := readHandshake(r)
		if err != nil {
			return
		}
		if seen != nil {
			seen <- hs
		}
		if _, _, err := readPacket(r, 16); err != nil {
			return
		}
		if _, err := conn.Write(framePacket(nil, packetStatusReply, AppendString(nil, body))); err != nil {
			return
		}

		id, ping, err := readPacket(r, 16)
		if err != nil || id != packetPing {
			return
		}
		payload, _ := io.ReadAll(ping)
		_, _ = conn.Write(framePacket(nil, packetPong, payload))
	}
}

func TestQueryOnline(t *testing.T) {
	seen := make(chan handshake, 1)
	addr := startFakeServer(t, statusHandler(sampleStatus, seen))

	res := NewClient().Query(context.Background(), addr, 2*time.Second)

	require.Equal(t, domain.StateOnline, res.State, res.Detail)
	assert.Equal(t, "1.20.1", res.Version)
	assert.Equal(t, 5, res.PlayersOnline)
	assert.Equal(t, 20, res.PlayersMax)
	assert.Equal(t, []string{"Alice", "Bob"}, res.SamplePlayers)
	assert.Greater(t, res.Latency, time.Duration(0))

	hs := <-seen
	host, port, _ := net.SplitHostPort(addr)
	assert.Equal(t, DefaultProtocolVersion, hs.version)
	assert.Equal(t, host, hs.host)
	assert.Equal(t, port, strconv.Itoa(hs.port))
	assert.Equal(t, nextStateStatus, hs.nextState)
}

func TestQueryWithoutPong(t *testing.T) {
	addr := startFakeServer(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		if _, err := readHandshake(r); err != nil {
			return
		}
		_, _, _ = readPacket(r, 16)
		_, _ = conn.Write(framePacket(nil, packetStatusReply, AppendString(nil, sampleStatus)))
	})

	res := NewClient().Query(context.Background(), addr, 2*time.Second)
	require.Equal(t, domain.StateOnline, res.State, res.Detail)
	assert.Zero(t, res.Latency)
}

func TestSilentPongDoesNotHoldQuery(t *testing.T) {
	addr := startFakeServer(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		if _, err := readHandshake(r); err != nil {
			return
		}
		_, _, _ = readPacket(r, 16)
		_, _ = conn.Write(framePacket(nil, packetStatusReply, AppendString(nil, sampleStatus)))
		// Swallow the ping and keep the socket open until the client leaves.
		_, _ = io.Copy(io.Discard, r)
	})

	c := NewClient()
	c.PingTimeout = 100 * time.Millisecond

	start := time.Now()
	res := c.Query(context.Background(), addr, 3*time.Second)
	took := time.Since(start)

	require.Equal(t, domain.StateOnline, res.State, res.Detail)
	assert.Zero(t, res.Latency)
	assert.Less(t, took, time.Second, "ping step bounded by its own timeout")
}

func TestQueryUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	res := NewClient().Query(context.Background(), addr, time.Second)
	assert.Equal(t, domain.StateOffline, res.State)
	assert.Equal(t, domain.ErrorUnreachable, res.Reason)
	assert.NotEmpty(t, res.Detail)
}

func TestQueryTimeout(t *testing.T) {
	addr := startFakeServer(t, func(conn net.Conn) {
		_, _ = io.Copy(io.Discard, conn)
	})

	start := time.Now()
	res := NewClient().Query(context.Background(), addr, 200*time.Millisecond)
	elapsed := time.Since(start)

	assert.Equal(t, domain.StateOffline, res.State)
	assert.Equal(t, domain.ErrorTimeout, res.Reason)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestQueryCancelled(t *testing.T) {
	addr := startFakeServer(t, func(conn net.Conn) {
		_, _ = io.Copy(io.Discard, conn)
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res := NewClient().Query(ctx, addr, 10*time.Second)
	assert.Equal(t, domain.StateOffline, res.State)
	assert.Equal(t, domain.ErrorTimeout, res.Reason)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestQueryOversizedResponse(t *testing.T) {
	addr := startFakeServer(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		if _, err := readHandshake(r); err != nil {
			return
		}
		_, _, _ = readPacket(r, 16)

		payload := AppendString(nil, `{"version":{"name":"`+strings.Repeat("a", 2<<20)+`"}}`)
		_, _ = conn.Write(framePacket(nil, packetStatusReply, payload))
	})

	res := NewClient().Query(context.Background(), addr, 2*time.Second)
	assert.Equal(t, domain.StateOffline, res.State)
	assert.Equal(t, domain.ErrorProtocol, res.Reason)
	assert.Contains(t, res.Detail, "size limit")
}

func TestQueryProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply func(conn net.Conn)
	}{
		{
			name: "malformed json",
			reply: func(conn net.Conn) {
				_, _ = conn.Write(framePacket(nil, packetStatusReply, AppendString(nil, "{not json")))
			},
		},
		{
			name: "missing players",
			reply: func(conn net.Conn) {
				_, _ = conn.Write(framePacket(nil, packetStatusReply, AppendString(nil, `{"version":{"name":"1.20"}}`)))
			},
		},
		{
			name: "wrong packet id",
			reply: func(conn net.Conn) {
				_, _ = conn.Write(framePacket(nil, 0x05, AppendString(nil, sampleStatus)))
			},
		},
		{
			name: "truncated packet",
			reply: func(conn net.Conn) {
				_, _ = conn.Write(append(AppendVarInt(nil, 100), 0x00, 0x10, 'a'))
			},
		},
		{
			name: "string longer than packet",
			reply: func(conn net.Conn) {
				_, _ = conn.Write(framePacket(nil, packetStatusReply, AppendVarInt(nil, 500)))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := startFakeServer(t, func(conn net.Conn) {
				r := bufio.NewReader(conn)
				if _, err := readHandshake(r); err != nil {
					return
				}
				_, _, _ = readPacket(r, 16)
				tt.reply(conn)
			})

			res := NewClient().Query(context.Background(), addr, 2*time.Second)
			assert.Equal(t, domain.StateOffline, res.State)
			assert.Equal(t, domain.ErrorProtocol, res.Reason, res.Detail)
		})
	}
}

func TestQueryInvalidAddress(t *testing.T) {
	res := NewClient().Query(context.Background(), "bad address", time.Second)
	assert.Equal(t, domain.StateOffline, res.State)
	assert.Equal(t, domain.ErrorInvalidAddress, res.Reason)
}

type fakeResolver struct {
	records []*net.SRV
	err     error
	lookups []string
	mu      sync.Mutex
}

func (r *fakeResolver) LookupSRV(_ context.Context, service, proto, name string) (string, []*net.SRV, error) {
	r.mu.Lock()
	r.lookups = append(r.lookups, "_"+service+"._"+proto+"."+name)
	r.mu.Unlock()
	return "", r.records, r.err
}

type recordingDialer struct {
	targets []string
	mu      sync.Mutex
}

func (d *recordingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.targets = append(d.targets, address)
	d.mu.Unlock()
	var nd net.Dialer
	return nd.DialContext(ctx, network, address)
}

func TestQueryFollowsSRVRecord(t *testing.T) {
	seen := make(chan handshake, 1)
	addr := startFakeServer(t, statusHandler(sampleStatus, seen))
	_, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	resolver := &fakeResolver{records: []*net.SRV{{Target: "127.0.0.1.", Port: uint16(port)}}}
	client := &Client{Resolver: resolver}

	res := client.Query(context.Background(), "mc.example.test", 2*time.Second)
	require.Equal(t, domain.StateOnline, res.State, res.Detail)
	assert.Equal(t, []string{"_minecraft._tcp.mc.example.test"}, resolver.lookups)

	hs := <-seen
	assert.Equal(t, "127.0.0.1", hs.host)
	assert.Equal(t, port, hs.port)
}

func TestQuerySRVFallbackToDefaultPort(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("no such host")}
	dialer := &recordingDialer{}
	client := &Client{Resolver: resolver, Dialer: dialer, SkipPing: true}

	_ = client.Query(context.Background(), "localhost", 200*time.Millisecond)
	require.Len(t, dialer.targets, 1)
	assert.Equal(t, "localhost:25565", dialer.targets[0])
}

func TestQuerySkipsSRVWithExplicitPort(t *testing.T) {
	resolver := &fakeResolver{}
	dialer := &recordingDialer{}
	client := &Client{Resolver: resolver, Dialer: dialer, SkipPing: true}

	_ = client.Query(context.Background(), "localhost:1", 200*time.Millisecond)
	assert.Empty(t, resolver.lookups)
	assert.Equal(t, []string{"localhost:1"}, dialer.targets)
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Kind: domain.ErrorTimeout, Op: "read status", Err: context.DeadlineExceeded}
	assert.Equal(t, "read status: timeout: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.ErrorTimeout, KindOf(err))
	assert.Equal(t, domain.ErrorUnreachable, KindOf(errors.New("plain")))
}
