package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/Cheese-PeerChess/internal/netproto"
)

func (s *Session) hostSubmit(ctx context.Context, m ProposedMove) error {
	if !s.joined {
		return ErrNotEstablished
	}
	if s.phase != LocalTurn {
		return ErrNotYourTurn
	}
	if !s.board.IsValidMove(m.From, m.To, promoKind(m.Promotion)) {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	wire := toWire(m)
	// encode before applying so a malformed move leaves the board alone
	raw, err := netproto.EncodeServer(netproto.ServerMessage{Move: &wire})
	if err != nil {
		return err
	}
	if err := s.commit(m, true); err != nil {
		return err
	}
	s.phase = AwaitingOpponent
	if err := s.send(ctx, "move", raw); err != nil {
		return err
	}
	s.announce(m, true)
	return nil
}

func (s *Session) hostHandle(ctx context.Context, msg netproto.ClientMessage) error {
	switch {
	case msg.Empty():
		return nil
	case msg.ConnectRequest != nil:
		return s.hostConnect(ctx, *msg.ConnectRequest)
	case msg.Move != nil:
		return s.hostGuestMove(ctx, *msg.Move)
	}
	return nil
}

func (s *Session) refuse(ctx context.Context, what string) error {
	ack := &netproto.ConnectAck{Success: false}
	if err := s.sendServer(ctx, netproto.ServerMessage{ConnectAck: ack}); err != nil {
		return err
	}
	return s.violation(what, nil)
}

func (s *Session) hostConnect(ctx context.Context, req netproto.ConnectRequest) error {
	switch {
	case s.joined:
		return s.refuse(ctx, "duplicate connect request")
	case req.Spectate:
		return s.refuse(ctx, "spectators are not supported")
	case s.opts.GameID != 0 && req.GameID != 0 && req.GameID != s.opts.GameID:
		return s.refuse(ctx, fmt.Sprintf("game id %d does not match %d", req.GameID, s.opts.GameID))
	}

	ack := &netproto.ConnectAck{
		Success:          true,
		ClientIsWhite:    netproto.Bool(!s.white),
		GameID:           netproto.Uint32(s.opts.GameID),
		StartingPosition: &netproto.BoardState{FEN: s.board.FEN()},
	}
	if err := s.sendServer(ctx, netproto.ServerMessage{ConnectAck: ack}); err != nil {
		return err
	}
	s.joined = true
	s.log.Info("session_established",
		zap.Uint32("game_id", s.opts.GameID),
		zap.Bool("host_white", s.white),
		zap.String("phase", s.phase.String()))
	if cb := s.opts.Events.OnEstablished; cb != nil {
		cb(s.white)
	}
	return nil
}

func (s *Session) hostGuestMove(ctx context.Context, wire netproto.Move) error {
	if !s.joined {
		return s.violation("move before connect request", nil)
	}
	if s.phase != AwaitingOpponent {
		return s.violation("move out of turn", nil)
	}
	m := fromWire(wire)
	if !s.board.IsValidMove(m.From, m.To, promoKind(m.Promotion)) {
		if s.opts.StrictHost {
			return s.violation("illegal move "+m.String(), ErrIllegalMove)
		}
		s.log.Info("session_move_rejected", zap.String("move", m.String()))
		if err := s.sendServer(ctx, netproto.ServerMessage{MoveAck: &netproto.MoveAck{Legal: false}}); err != nil {
			return err
		}
		if cb := s.opts.Events.OnRejected; cb != nil {
			cb(m)
		}
		return nil
	}
	if err := s.commit(m, false); err != nil {
		return s.violation("apply "+m.String(), err)
	}
	s.phase = LocalTurn
	ack := &netproto.MoveAck{Legal: true, BoardResult: netproto.String(s.board.FEN())}
	if err := s.sendServer(ctx, netproto.ServerMessage{MoveAck: ack}); err != nil {
		return err
	}
	s.announce(m, false)
	return nil
}
