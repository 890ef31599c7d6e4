package slp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"mcwatch/internal/domain"
)

// Error is a failed status exchange. Kind is one of the poll-time kinds:
// unreachable, timeout or protocol_error.
type Error struct {
	Kind domain.ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func protocolError(op string, err error) *Error {
	return &Error{Kind: domain.ErrorProtocol, Op: op, Err: err}
}

// KindOf returns the error kind carried by err, or ErrorUnreachable when
// err is not an *Error.
func KindOf(err error) domain.ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return domain.ErrorUnreachable
}

// classify maps an I/O failure on an established connection to an *Error.
// ctx is the exchange context; a closed connection after ctx ended means
// the deadline or a cancellation got there first.
func classify(ctx context.Context, op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Kind: domain.ErrorTimeout, Op: op, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: domain.ErrorTimeout, Op: op, Err: err}
	case errors.Is(err, net.ErrClosed) && ctx.Err() != nil:
		return &Error{Kind: domain.ErrorTimeout, Op: op, Err: ctx.Err()}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &Error{Kind: domain.ErrorProtocol, Op: op, Err: fmt.Errorf("connection closed mid-packet: %w", err)}
	case errors.Is(err, errVarIntTooLong):
		return &Error{Kind: domain.ErrorProtocol, Op: op, Err: err}
	default:
		return &Error{Kind: domain.ErrorUnreachable, Op: op, Err: err}
	}
}
