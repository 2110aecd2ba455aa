package session

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/Cheese-PeerChess/internal/netproto"
	"github.com/park285/Cheese-PeerChess/internal/rules"
)

func TestHostAppliesAndBroadcastsOwnMove(t *testing.T) {
	var moves []ProposedMove
	s, ch := joinedHost(t, true, Options{Events: Events{OnMove: func(m ProposedMove, local bool) {
		if !local {
			t.Errorf("host move reported as remote")
		}
		moves = append(moves, m)
	}}})
	if s.Phase() != LocalTurn {
		t.Fatalf("white host should start in LocalTurn, got %s", s.Phase())
	}

	if err := s.Submit(context.Background(), mv(t, "e2e4")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got := s.Board().GetContent(rules.Pos{X: 4, Y: 3})
	if !got.Occupied || got.Piece.Kind != rules.Pawn || got.Piece.Color != rules.White {
		t.Fatalf("e4 not occupied by white pawn: %+v", got)
	}
	sent := ch.lastServer(t)
	if sent.Move == nil || sent.Move.FromSquare != 12 || sent.Move.ToSquare != 28 || sent.Move.Promotion != nil {
		t.Fatalf("broadcast = %+v, want Move{12,28}", sent.Move)
	}
	if s.Phase() != AwaitingOpponent {
		t.Fatalf("phase = %s, want awaiting_opponent", s.Phase())
	}
	if len(moves) != 1 {
		t.Fatalf("OnMove calls = %d", len(moves))
	}
}

func TestHostBlackStartsAwaiting(t *testing.T) {
	s := NewHost(&fakeChannel{}, newBoard(t, ""), Options{HostIsWhite: false})
	if s.Phase() != AwaitingOpponent {
		t.Fatalf("phase = %s", s.Phase())
	}
	if s.Role() != Host || s.ID() == "" {
		t.Fatalf("role/id not set: %s %q", s.Role(), s.ID())
	}
}

func TestHostSubmitBeforeGuestJoins(t *testing.T) {
	ch := &fakeChannel{}
	s := NewHost(ch, newBoard(t, ""), Options{HostIsWhite: true})
	err := s.Submit(context.Background(), mv(t, "e2e4"))
	if !errors.Is(err, ErrNotEstablished) || IsFatal(err) {
		t.Fatalf("want recoverable ErrNotEstablished, got %v", err)
	}
	if len(ch.sent) != 0 || s.Err() != nil {
		t.Fatalf("nothing should be sent or latched")
	}
}

func TestHostRejectsLocalMistakes(t *testing.T) {
	s, ch := joinedHost(t, true, Options{})
	before := s.Board().FEN()
	if err := s.Submit(context.Background(), mv(t, "e2e5")); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("want ErrIllegalMove, got %v", err)
	}
	if err := s.Submit(context.Background(), mv(t, "e2e4")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(context.Background(), mv(t, "d2d4")); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("want ErrNotYourTurn, got %v", err)
	}
	if len(ch.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(ch.sent))
	}
	if s.Err() != nil || s.Board().FEN() == before {
		t.Fatalf("unexpected state: err=%v fen=%s", s.Err(), s.Board().FEN())
	}
}

func TestHostHandshake(t *testing.T) {
	ch := &fakeChannel{}
	var established []bool
	s := NewHost(ch, newBoard(t, ""), Options{GameID: 42, HostIsWhite: true, Events: Events{
		OnEstablished: func(white bool) { established = append(established, white) },
	}})
	ch.pushClient(t, netproto.ClientMessage{ConnectRequest: &netproto.ConnectRequest{GameID: 42}})
	mustPoll(t, s)

	ack := ch.lastServer(t).ConnectAck
	if ack == nil || !ack.Success {
		t.Fatalf("want successful ConnectAck, got %+v", ack)
	}
	if ack.ClientIsWhite == nil || *ack.ClientIsWhite {
		t.Fatalf("guest should be black")
	}
	if ack.GameID == nil || *ack.GameID != 42 {
		t.Fatalf("game id = %v", ack.GameID)
	}
	if ack.StartingPosition == nil || ack.StartingPosition.FEN != s.Board().FEN() {
		t.Fatalf("starting position = %+v", ack.StartingPosition)
	}
	if !s.Established() || len(established) != 1 || !established[0] {
		t.Fatalf("established=%v events=%v", s.Established(), established)
	}
	if s.Phase() != LocalTurn {
		t.Fatalf("handshake must not change phase, got %s", s.Phase())
	}
}

func TestHostRefusesConnect(t *testing.T) {
	cases := []struct {
		name string
		req  netproto.ConnectRequest
	}{
		{"game id mismatch", netproto.ConnectRequest{GameID: 7}},
		{"spectator", netproto.ConnectRequest{GameID: 42, Spectate: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := &fakeChannel{}
			s := NewHost(ch, newBoard(t, ""), Options{GameID: 42, HostIsWhite: true})
			ch.pushClient(t, netproto.ClientMessage{ConnectRequest: &tc.req})
			_, err := s.Poll(context.Background())
			if !errors.Is(err, ErrProtocolViolation) {
				t.Fatalf("want protocol violation, got %v", err)
			}
			ack := ch.lastServer(t).ConnectAck
			if ack == nil || ack.Success {
				t.Fatalf("want refusal, got %+v", ack)
			}
			if s.Established() {
				t.Fatalf("refused guest must not be established")
			}
		})
	}
}

func TestHostAcceptsAnyGameIDFromZero(t *testing.T) {
	ch := &fakeChannel{}
	s := NewHost(ch, newBoard(t, ""), Options{GameID: 42, HostIsWhite: true})
	ch.pushClient(t, netproto.ClientMessage{ConnectRequest: &netproto.ConnectRequest{}})
	mustPoll(t, s)
	if !s.Established() {
		t.Fatalf("game id 0 should match any game")
	}
}

func TestHostDuplicateConnectRequest(t *testing.T) {
	s, ch := joinedHost(t, true, Options{})
	ch.pushClient(t, netproto.ClientMessage{ConnectRequest: &netproto.ConnectRequest{}})
	handled, err := s.Poll(context.Background())
	if !handled || !errors.Is(err, ErrProtocolViolation) || !IsFatal(err) {
		t.Fatalf("want fatal protocol violation, got handled=%v err=%v", handled, err)
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Role != Host {
		t.Fatalf("want *ProtocolError for host, got %T", err)
	}
	if ack := ch.lastServer(t).ConnectAck; ack == nil || ack.Success {
		t.Fatalf("second request must be answered with success:false, got %+v", ack)
	}
	if err := s.Submit(context.Background(), mv(t, "e2e4")); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("failed session should keep returning its error, got %v", err)
	}
}

func TestHostJudgesGuestMove(t *testing.T) {
	var rejected []ProposedMove
	s, ch := joinedHost(t, false, Options{Events: Events{OnRejected: func(m ProposedMove) { rejected = append(rejected, m) }}})
	before := s.Board().FEN()

	ch.pushClient(t, netproto.ClientMessage{Move: wireMove(t, "e2e5")})
	mustPoll(t, s)
	if ack := ch.lastServer(t).MoveAck; ack == nil || ack.Legal {
		t.Fatalf("want MoveAck{legal:false}, got %+v", ack)
	}
	if s.Phase() != AwaitingOpponent || s.Board().FEN() != before || len(rejected) != 1 {
		t.Fatalf("rejection must not change state: phase=%s rejected=%d", s.Phase(), len(rejected))
	}

	ch.pushClient(t, netproto.ClientMessage{Move: wireMove(t, "e2e4")})
	mustPoll(t, s)
	ack := ch.lastServer(t).MoveAck
	if ack == nil || !ack.Legal || ack.BoardResult == nil || *ack.BoardResult != s.Board().FEN() {
		t.Fatalf("want MoveAck{legal:true, board_result:fen}, got %+v", ack)
	}
	if s.Phase() != LocalTurn {
		t.Fatalf("phase = %s, want local_turn", s.Phase())
	}
}

func TestStrictHostAbortsOnIllegalMove(t *testing.T) {
	s, ch := joinedHost(t, false, Options{StrictHost: true})
	ch.pushClient(t, netproto.ClientMessage{Move: wireMove(t, "e2e5")})
	_, err := s.Poll(context.Background())
	if !errors.Is(err, ErrProtocolViolation) || !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("want violation wrapping ErrIllegalMove, got %v", err)
	}
	if len(ch.sent) != 0 {
		t.Fatalf("strict host must not ack")
	}
}

func TestHostMoveOutOfTurn(t *testing.T) {
	s, ch := joinedHost(t, true, Options{})
	ch.pushClient(t, netproto.ClientMessage{Move: wireMove(t, "e7e5")})
	if _, err := s.Poll(context.Background()); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("want protocol violation, got %v", err)
	}
}

func TestHostMoveBeforeConnect(t *testing.T) {
	ch := &fakeChannel{}
	s := NewHost(ch, newBoard(t, ""), Options{HostIsWhite: false})
	ch.pushClient(t, netproto.ClientMessage{Move: wireMove(t, "e2e4")})
	if _, err := s.Poll(context.Background()); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("want protocol violation, got %v", err)
	}
}
