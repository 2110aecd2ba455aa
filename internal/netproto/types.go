// Package netproto defines the messages exchanged between the two peers of a
// game and their protobuf wire encoding.
package netproto

import "fmt"

// Piece is the promotion target carried by a Move.
type Piece int32

const (
	Queen  Piece = 0
	Rook   Piece = 1
	Bishop Piece = 2
	Knight Piece = 3
)

func (p Piece) Valid() bool { return p >= Queen && p <= Knight }

func (p Piece) String() string {
	switch p {
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	default:
		return fmt.Sprintf("piece(%d)", int32(p))
	}
}

// ConnectRequest is the first message a guest sends.
type ConnectRequest struct {
	GameID   uint32
	Spectate bool
}

// BoardState carries a position in Forsyth-Edwards Notation.
type BoardState struct {
	FEN string
}

// ConnectAck answers a ConnectRequest. The optional fields are only set on success.
type ConnectAck struct {
	Success          bool
	ClientIsWhite    *bool
	GameID           *uint32
	StartingPosition *BoardState
}

// Move travels in both directions. Squares are 0..63, see Square.
type Move struct {
	FromSquare uint32
	ToSquare   uint32
	Promotion  *Piece
}

// MoveAck is the host's verdict on a guest move. BoardResult holds the FEN
// after an accepted move.
type MoveAck struct {
	Legal       bool
	BoardResult *string
}

// ClientMessage is the guest → host envelope. At most one field is set; an
// envelope with no field set is a no-op.
type ClientMessage struct {
	ConnectRequest *ConnectRequest
	Move           *Move
}

func (m ClientMessage) Empty() bool { return m.ConnectRequest == nil && m.Move == nil }

func (m ClientMessage) variants() int {
	n := 0
	if m.ConnectRequest != nil {
		n++
	}
	if m.Move != nil {
		n++
	}
	return n
}

// ServerMessage is the host → guest envelope.
type ServerMessage struct {
	ConnectAck *ConnectAck
	MoveAck    *MoveAck
	Move       *Move
}

func (m ServerMessage) Empty() bool {
	return m.ConnectAck == nil && m.MoveAck == nil && m.Move == nil
}

func (m ServerMessage) variants() int {
	n := 0
	if m.ConnectAck != nil {
		n++
	}
	if m.MoveAck != nil {
		n++
	}
	if m.Move != nil {
		n++
	}
	return n
}

// Kind names the populated variant for logging.
func (m ClientMessage) Kind() string {
	switch {
	case m.ConnectRequest != nil:
		return "connect_request"
	case m.Move != nil:
		return "move"
	default:
		return "empty"
	}
}

func (m ServerMessage) Kind() string {
	switch {
	case m.ConnectAck != nil:
		return "connect_ack"
	case m.MoveAck != nil:
		return "move_ack"
	case m.Move != nil:
		return "move"
	default:
		return "empty"
	}
}

// Bool, Uint32, String and PieceRef return pointers for the optional fields.
func Bool(v bool) *bool { return &v }
func Uint32(v uint32) *uint32 { return &v }
func String(v string) *string { return &v }
func PieceRef(p Piece) *Piece { return &p }
