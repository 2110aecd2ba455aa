package session

import (
	"errors"
	"fmt"

	"github.com/park285/Cheese-PeerChess/internal/netchan"
	"github.com/park285/Cheese-PeerChess/internal/netproto"
	"github.com/park285/Cheese-PeerChess/internal/rules"
)

// Recoverable: the caller may try again and nothing was sent.
var (
	ErrIllegalMove    = rules.ErrIllegalMove
	ErrPendingMove    = errors.New("a move is already awaiting acknowledgement")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrNotEstablished = errors.New("connection not established")
)

// Fatal: the session is unusable afterwards.
var (
	ErrProtocolViolation = errors.New("protocol violation")
	ErrDesync            = errors.New("rule engines disagree")
	ErrConnectRefused    = errors.New("host refused connection")
	ErrDecode            = netproto.ErrDecode
	ErrTransport         = netchan.ErrTransport
)

// ProtocolError describes a well-formed message the session did not expect.
type ProtocolError struct {
	Role  Role
	Phase Phase
	What  string
	Err   error // optional cause, e.g. ErrDesync
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol violation (%s, %s): %s", e.Role, e.Phase, e.What)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocolViolation }

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsFatal reports whether err ends the session.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrProtocolViolation) ||
		errors.Is(err, ErrDesync) ||
		errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrConnectRefused)
}
