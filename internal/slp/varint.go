package slp

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const maxVarIntLen = 5

var errVarIntTooLong = errors.New("varint is longer than 5 bytes")

// AppendVarInt appends v using the protocol's VarInt layout: seven value
// bits per byte, least significant group first, high bit set on every byte
// except the last. Negative values always take five bytes.
func AppendVarInt(b []byte, v int32) []byte {
	u := uint32(v)
	for u >= 0x80 {
		b = append(b, byte(u)|0x80)
		u >>= 7
	}
	return append(b, byte(u))
}

func ReadVarInt(r io.ByteReader) (int32, error) {
	var result uint32
	for i := 0; i < maxVarIntLen; i++ {
		c, err := r.ReadByte()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		result |= uint32(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			return int32(result), nil
		}
	}
	return 0, errVarIntTooLong
}

func VarIntLen(v int32) int {
	return len(AppendVarInt(make([]byte, 0, maxVarIntLen), v))
}

func AppendString(b []byte, s string) []byte {
	b = AppendVarInt(b, int32(len(s)))
	return append(b, s...)
}

func AppendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func AppendInt64(b []byte, v int64) []byte {
	u := uint64(v)
	return append(b,
		byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32),
		byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

// ReadString reads a VarInt-prefixed UTF-8 string of at most max bytes.
// The length is checked before any of the body is read.
func ReadString(r interface {
	io.Reader
	io.ByteReader
}, max int) (string, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("negative string length %d", n)
	}
	if int(n) > max {
		return "", fmt.Errorf("string length %d exceeds limit %d", n, max)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", errors.New("string is not valid UTF-8")
	}
	return string(buf), nil
}
