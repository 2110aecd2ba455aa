package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/Cheese-PeerChess/internal/netproto"
)

// guestSubmit sends m without consulting the local board; the host decides.
func (s *Session) guestSubmit(ctx context.Context, m ProposedMove) error {
	if s.phase == NotEstablished {
		return ErrNotEstablished
	}
	if s.pending != nil {
		return ErrPendingMove
	}
	if s.phase != LocalTurn {
		return ErrNotYourTurn
	}
	wire := toWire(m)
	if err := s.sendClient(ctx, netproto.ClientMessage{Move: &wire}); err != nil {
		return err
	}
	s.pending = &PendingMove{Move: m, Board: s.board.FEN()}
	s.phase = AwaitingOpponent
	return nil
}

func (s *Session) guestHandle(ctx context.Context, msg netproto.ServerMessage) error {
	switch {
	case msg.Empty():
		return nil
	case msg.ConnectAck != nil:
		return s.guestConnectAck(*msg.ConnectAck)
	case msg.MoveAck != nil:
		return s.guestMoveAck(*msg.MoveAck)
	case msg.Move != nil:
		return s.guestOpponentMove(*msg.Move)
	}
	return nil
}

func (s *Session) guestConnectAck(ack netproto.ConnectAck) error {
	if s.phase != NotEstablished {
		return s.violation("unexpected connect ack", nil)
	}
	if !ack.Success {
		return s.fail(ErrConnectRefused)
	}
	if ack.ClientIsWhite == nil {
		return s.violation("connect ack without colour", nil)
	}
	if ack.GameID != nil && s.opts.GameID != 0 && *ack.GameID != s.opts.GameID {
		return s.violation(fmt.Sprintf("connect ack for game %d", *ack.GameID), nil)
	}
	if ack.StartingPosition != nil || s.board == nil {
		fen := ""
		if ack.StartingPosition != nil {
			fen = ack.StartingPosition.FEN
		}
		board, err := s.opts.NewBoard(fen)
		if err != nil {
			return s.violation("bad starting position", err)
		}
		s.board = board
	}

	s.white = *ack.ClientIsWhite
	s.phase = AwaitingOpponent
	if s.board.Turn() == s.color() {
		s.phase = LocalTurn
	}
	s.log.Info("session_established", zap.Bool("white", s.white), zap.String("phase", s.phase.String()))
	if cb := s.opts.Events.OnEstablished; cb != nil {
		cb(s.white)
	}
	return nil
}

func (s *Session) guestMoveAck(ack netproto.MoveAck) error {
	if s.pending == nil {
		return s.violation("move ack without pending move", nil)
	}
	m := s.pending.Move
	if !ack.Legal {
		s.pending = nil
		s.phase = LocalTurn
		s.log.Info("session_move_rejected", zap.String("move", m.String()))
		if cb := s.opts.Events.OnRejected; cb != nil {
			cb(m)
		}
		return nil
	}
	if !s.board.IsValidMove(m.From, m.To, promoKind(m.Promotion)) {
		return s.violation("host accepted "+m.String(), ErrDesync)
	}
	if err := s.commit(m, true); err != nil {
		return s.violation("apply "+m.String(), fmt.Errorf("%w: %w", ErrDesync, err))
	}
	s.pending = nil
	if ack.BoardResult != nil && !samePosition(*ack.BoardResult, s.board.FEN()) {
		return s.violation(fmt.Sprintf("host board %q, local %q", *ack.BoardResult, s.board.FEN()), ErrDesync)
	}
	s.announce(m, true)
	return nil
}

func (s *Session) guestOpponentMove(wire netproto.Move) error {
	if s.phase != AwaitingOpponent || s.pending != nil {
		return s.violation("move out of turn", nil)
	}
	m := fromWire(wire)
	if !s.board.IsValidMove(m.From, m.To, promoKind(m.Promotion)) {
		return s.violation("host sent "+m.String(), ErrDesync)
	}
	if err := s.commit(m, false); err != nil {
		return s.violation("apply "+m.String(), fmt.Errorf("%w: %w", ErrDesync, err))
	}
	s.phase = LocalTurn
	s.announce(m, false)
	return nil
}
