package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
)

const DefaultPort = 25565

var (
	ErrInvalidAddress   = errors.New("invalid server address")
	ErrDuplicateAddress = errors.New("server address already registered")
	ErrServerNotFound   = errors.New("server not found")
)

// Address is a parsed host[:port]. HasPort is false when the port was
// omitted and Port holds DefaultPort.
type Address struct {
	Host    string
	Port    int
	HasPort bool
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// NormalizeAddress trims surrounding whitespace. No other normalization is
// applied: addresses are case-sensitive keys.
func NormalizeAddress(raw string) string {
	return strings.TrimSpace(raw)
}

// ParseAddress accepts host, host:port, [v6] and [v6]:port. A bare IPv6
// literal without brackets is taken as a host without port.
func ParseAddress(raw string) (Address, error) {
	s := NormalizeAddress(raw)
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return Address{}, fmt.Errorf("%w: %q contains whitespace", ErrInvalidAddress, s)
	}

	var host, port string
	switch {
	case strings.HasPrefix(s, "["):
		if strings.HasSuffix(s, "]") {
			host = s[1 : len(s)-1]
			break
		}
		h, p, err := splitHostPort(s)
		if err != nil {
			return Address{}, err
		}
		host, port = h, p
	case strings.Count(s, ":") == 1:
		h, p, err := splitHostPort(s)
		if err != nil {
			return Address{}, err
		}
		host, port = h, p
	default:
		host = s
	}

	if host == "" {
		return Address{}, fmt.Errorf("%w: %q has no host", ErrInvalidAddress, s)
	}

	addr := Address{Host: host, Port: DefaultPort}
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return Address{}, fmt.Errorf("%w: bad port %q", ErrInvalidAddress, port)
		}
		addr.Port = n
		addr.HasPort = true
	}
	return addr, nil
}

func ValidateAddress(raw string) error {
	_, err := ParseAddress(raw)
	return err
}

func splitHostPort(s string) (string, string, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if port == "" {
		return "", "", fmt.Errorf("%w: %q has an empty port", ErrInvalidAddress, s)
	}
	return host, port, nil
}
