package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind identifies which of the mutually exclusive ways a ping failed.
type ErrorKind int

const (
	// HostLookupFailed means the destination is neither an IPv4 literal nor resolvable.
	HostLookupFailed ErrorKind = iota + 1
	// HostUnreachable means the network layer refused the request after a valid address was obtained.
	HostUnreachable
	// ReplyTimeout means no matching reply arrived before the deadline.
	ReplyTimeout
	// BadReply means a reply arrived but its type, code, identifier or checksum did not validate.
	BadReply
	// PermissionDenied means the OS refused to open a raw ICMP socket.
	PermissionDenied
)

// Sentinel errors, one per kind, usable with errors.Is.
var (
	ErrHostLookupFailed = errors.New("host lookup failed")
	ErrHostUnreachable  = errors.New("host unreachable")
	ErrReplyTimeout     = errors.New("reply timeout")
	ErrBadReply         = errors.New("bad reply")
	ErrPermissionDenied = errors.New("permission denied")
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case HostLookupFailed:
		return "HostLookupFailed"
	case HostUnreachable:
		return "HostUnreachable"
	case ReplyTimeout:
		return "ReplyTimeout"
	case BadReply:
		return "BadReply"
	case PermissionDenied:
		return "PermissionDenied"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case HostLookupFailed:
		return ErrHostLookupFailed
	case HostUnreachable:
		return ErrHostUnreachable
	case ReplyTimeout:
		return ErrReplyTimeout
	case BadReply:
		return ErrBadReply
	case PermissionDenied:
		return ErrPermissionDenied
	default:
		return nil
	}
}

// PingError is the single error type returned by a ping. Kind tells the caller whether retrying makes sense.
type PingError struct {
	// Kind is the failure category.
	Kind ErrorKind

	// Dest is the destination as given by the caller, empty when the error was produced by the codec alone.
	Dest string

	// Elapsed is the time spent in the call before it failed.
	Elapsed time.Duration

	// Err is the underlying cause, if any.
	Err error
}

func newPingError(kind ErrorKind, err error) *PingError {
	return &PingError{Kind: kind, Err: err}
}

func (e *PingError) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Dest != "" {
		msg = fmt.Sprintf("%s: %s", e.Dest, msg)
	}
	if e.Kind == ReplyTimeout && e.Elapsed > 0 {
		msg = fmt.Sprintf("%s after %s", msg, e.Elapsed)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *PingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind.
func (e *PingError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// KindOf returns the kind of err, or 0 if err is not a *PingError.
func KindOf(err error) ErrorKind {
	var perr *PingError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}
