package slp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	packetHandshake     int32 = 0x00
	packetStatusRequest int32 = 0x00
	packetStatusReply   int32 = 0x00
	packetPing          int32 = 0x01
	packetPong          int32 = 0x01

	nextStateStatus int32 = 1

	// MaxStatusJSON bounds the status JSON a server may send.
	MaxStatusJSON = 1 << 20

	// packet id plus string length prefix on top of the JSON body
	maxPacketOverhead = 1 + maxVarIntLen
	maxPacketLen      = MaxStatusJSON + maxPacketOverhead
)

var errOversized = errors.New("packet exceeds size limit")

// framePacket prefixes id+payload with its VarInt length.
func framePacket(dst []byte, id int32, payload []byte) []byte {
	dst = AppendVarInt(dst, int32(VarIntLen(id)+len(payload)))
	dst = AppendVarInt(dst, id)
	return append(dst, payload...)
}

func handshakePayload(protocolVersion int32, host string, port int) []byte {
	b := make([]byte, 0, 16+len(host))
	b = AppendVarInt(b, protocolVersion)
	b = AppendString(b, host)
	b = AppendUint16(b, uint16(port))
	return AppendVarInt(b, nextStateStatus)
}

// readPacket reads one length-prefixed packet, rejecting lengths above max
// before allocating or reading the body.
func readPacket(r *bufio.Reader, max int) (int32, *bytes.Reader, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return 0, nil, err
	}
	if n <= 0 {
		return 0, nil, protocolError("read packet", fmt.Errorf("invalid packet length %d", n))
	}
	if int(n) > max {
		return 0, nil, protocolError("read packet", fmt.Errorf("%w: %d > %d bytes", errOversized, n, max))
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}

	br := bytes.NewReader(body)
	id, err := ReadVarInt(br)
	if err != nil {
		return 0, nil, protocolError("read packet id", err)
	}
	return id, br, nil
}
