package netproto

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("netproto: decode error")
	// ErrInvalidMessage is returned by the encoders for values that are not well-formed.
	ErrInvalidMessage = errors.New("netproto: invalid message")
)

// DecodeError describes why a buffer could not be turned into a message.
type DecodeError struct {
	Message string // protobuf message being decoded
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("netproto: decode %s: %s: %v", e.Message, e.Reason, e.Err)
	}
	return fmt.Sprintf("netproto: decode %s: %s", e.Message, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func decodeErr(msg, reason string, err error) error {
	return &DecodeError{Message: msg, Reason: reason, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
