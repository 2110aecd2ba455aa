// Package session drives one side of a two-peer chess game.
//
// The host owns the authoritative board: it applies its own moves at once
// and rules on every move the guest proposes. The guest applies its own
// move only after the host acknowledges it.
package session

import (
	"go.uber.org/zap"

	"github.com/park285/Cheese-PeerChess/internal/netproto"
	"github.com/park285/Cheese-PeerChess/internal/rules"
)

type Role int

const (
	Host Role = iota
	Guest
)

func (r Role) String() string {
	if r == Host {
		return "host"
	}
	return "guest"
}

type Phase int

const (
	// NotEstablished only exists for a guest waiting on its ConnectAck.
	NotEstablished Phase = iota
	AwaitingOpponent
	LocalTurn
)

func (p Phase) String() string {
	switch p {
	case NotEstablished:
		return "not_established"
	case AwaitingOpponent:
		return "awaiting_opponent"
	case LocalTurn:
		return "local_turn"
	}
	return "unknown"
}

// ProposedMove is a move as the UI sees it.
type ProposedMove struct {
	From      rules.Pos
	To        rules.Pos
	Promotion *netproto.Piece
}

func (m ProposedMove) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != nil {
		s += "=" + m.Promotion.String()
	}
	return s
}

// PendingMove is the guest's move awaiting the host's verdict.
type PendingMove struct {
	Move  ProposedMove
	Board string // FEN before the move
}

// Events are optional UI callbacks, invoked synchronously from Submit, Poll and Step.
type Events struct {
	OnEstablished func(white bool)
	OnMove        func(m ProposedMove, local bool)
	OnRejected    func(m ProposedMove)
	OnGameOver    func(result string)
}

// BoardFactory builds a board from a FEN; "" means the standard start.
type BoardFactory func(fen string) (rules.Board, error)

func defaultBoardFactory(fen string) (rules.Board, error) {
	b, err := rules.NewBoard(fen)
	if err != nil {
		return nil, err
	}
	return b, nil
}

type Options struct {
	// GameID is sent by the guest and checked by the host. Zero matches any.
	GameID uint32
	// HostIsWhite assigns colours; the guest plays the other side.
	HostIsWhite bool
	// Board lets a guest start from a known position before the ack arrives.
	Board rules.Board
	// NewBoard builds the guest board from the ack's starting position.
	NewBoard BoardFactory
	// StrictHost makes an illegal guest move fatal instead of answering legal:false.
	StrictHost bool
	Events     Events
	Logger     *zap.Logger
}

func toWire(m ProposedMove) netproto.Move {
	return netproto.Move{
		FromSquare: netproto.Square(m.From.X, m.From.Y),
		ToSquare:   netproto.Square(m.To.X, m.To.Y),
		Promotion:  m.Promotion,
	}
}

func fromWire(m netproto.Move) ProposedMove {
	fx, fy := netproto.Coords(m.FromSquare)
	tx, ty := netproto.Coords(m.ToSquare)
	return ProposedMove{From: rules.Pos{X: fx, Y: fy}, To: rules.Pos{X: tx, Y: ty}, Promotion: m.Promotion}
}

func promoKind(p *netproto.Piece) rules.Kind {
	if p == nil {
		return ""
	}
	switch *p {
	case netproto.Rook:
		return rules.Rook
	case netproto.Bishop:
		return rules.Bishop
	case netproto.Knight:
		return rules.Knight
	default:
		return rules.Queen
	}
}
