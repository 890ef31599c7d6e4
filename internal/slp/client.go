package slp

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"mcwatch/internal/domain"
	"mcwatch/internal/logger"
)

const (
	// DefaultProtocolVersion is sent in the handshake. Servers answer status
	// requests regardless of the version a client announces.
	DefaultProtocolVersion int32 = -1

	DefaultTimeout = 5 * time.Second

	// DefaultPingTimeout bounds the optional ping/pong step on its own.
	DefaultPingTimeout = time.Second
)

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Resolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// Client performs Server List Ping exchanges. The zero value is usable.
type Client struct {
	Dialer          Dialer
	Resolver        Resolver
	ProtocolVersion int32
	// SkipPing disables the ping/pong latency round trip.
	SkipPing bool
	// PingTimeout caps the ping step. Zero means DefaultPingTimeout.
	PingTimeout time.Duration
}

func NewClient() *Client {
	return &Client{ProtocolVersion: DefaultProtocolVersion}
}

// Query polls address and folds every failure into an offline result.
// timeout bounds the whole exchange including DNS and connect.
func (c *Client) Query(ctx context.Context, address string, timeout time.Duration) domain.StatusResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := c.Status(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAddress) {
			return domain.Offline(domain.ErrorInvalidAddress, err.Error())
		}
		return domain.Offline(KindOf(err), err.Error())
	}
	return res
}

// Status runs one exchange against address and returns the online result or
// an *Error describing why the server could not be read.
func (c *Client) Status(ctx context.Context, address string) (domain.StatusResult, error) {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return domain.StatusResult{}, err
	}

	host, port := c.resolve(ctx, addr)
	target := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := c.dialer().DialContext(ctx, "tcp", target)
	if err != nil {
		return domain.StatusResult{}, &Error{Kind: domain.ErrorUnreachable, Op: "dial " + target, Err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	version := c.ProtocolVersion
	if version == 0 {
		version = DefaultProtocolVersion
	}

	out := framePacket(nil, packetHandshake, handshakePayload(version, host, port))
	out = framePacket(out, packetStatusRequest, nil)
	if _, err := conn.Write(out); err != nil {
		return domain.StatusResult{}, classify(ctx, "write handshake", err)
	}

	r := bufio.NewReader(conn)
	res, err := readStatus(r)
	if err != nil {
		return domain.StatusResult{}, classify(ctx, "read status", err)
	}

	if !c.SkipPing {
		pingTimeout := c.PingTimeout
		if pingTimeout <= 0 {
			pingTimeout = DefaultPingTimeout
		}
		pingDeadline := time.Now().Add(pingTimeout)
		if deadline, ok := ctx.Deadline(); ok && deadline.Before(pingDeadline) {
			pingDeadline = deadline
		}
		_ = conn.SetDeadline(pingDeadline)

		latency, err := ping(conn, r)
		if err != nil {
			logger.Debug("Ping round trip failed", "address", address, "error", err)
		} else {
			res.Latency = latency
		}
	}

	logger.Debug("Status received", "address", address, "target", target, "status", describe(res))
	return res, nil
}

func readStatus(r *bufio.Reader) (domain.StatusResult, error) {
	id, body, err := readPacket(r, maxPacketLen)
	if err != nil {
		return domain.StatusResult{}, err
	}
	if id != packetStatusReply {
		return domain.StatusResult{}, protocolError("read status", fmt.Errorf("unexpected packet id 0x%02x", id))
	}

	raw, err := ReadString(body, MaxStatusJSON)
	if err != nil {
		return domain.StatusResult{}, protocolError("read status", err)
	}
	return ParseStatus([]byte(raw))
}

func ping(conn net.Conn, r *bufio.Reader) (time.Duration, error) {
	start := time.Now()
	token := start.UnixMilli()

	if _, err := conn.Write(framePacket(nil, packetPing, AppendInt64(nil, token))); err != nil {
		return 0, err
	}

	id, body, err := readPacket(r, 16)
	if err != nil {
		return 0, err
	}
	if id != packetPong {
		return 0, fmt.Errorf("unexpected packet id 0x%02x", id)
	}

	var echoed int64
	if err := binary.Read(body, binary.BigEndian, &echoed); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	if echoed != token {
		return 0, fmt.Errorf("pong payload %d does not match %d", echoed, token)
	}
	return time.Since(start), nil
}

// resolve follows the _minecraft._tcp SRV record for hostnames given without
// a port. Lookup failures fall back to the default port.
func (c *Client) resolve(ctx context.Context, addr domain.Address) (string, int) {
	if addr.HasPort || net.ParseIP(addr.Host) != nil {
		return addr.Host, addr.Port
	}

	_, records, err := c.resolver().LookupSRV(ctx, "minecraft", "tcp", addr.Host)
	if err != nil || len(records) == 0 {
		return addr.Host, addr.Port
	}

	target := strings.TrimSuffix(records[0].Target, ".")
	if target == "" || records[0].Port == 0 {
		return addr.Host, addr.Port
	}
	logger.Debug("SRV record found", "host", addr.Host, "target", target, "port", records[0].Port)
	return target, int(records[0].Port)
}

func (c *Client) dialer() Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{}
}

func (c *Client) resolver() Resolver {
	if c.Resolver != nil {
		return c.Resolver
	}
	return net.DefaultResolver
}
