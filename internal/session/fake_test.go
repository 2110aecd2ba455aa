package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/park285/Cheese-PeerChess/internal/netchan"
	"github.com/park285/Cheese-PeerChess/internal/netproto"
	"github.com/park285/Cheese-PeerChess/internal/rules"
)

// fakeChannel is an in-memory netchan.Channel.
type fakeChannel struct {
	inbound [][]byte
	sent    [][]byte
	sendErr error
	recvErr error
	closed  bool
}

func (f *fakeChannel) Send(_ context.Context, msg []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), msg...))
	return nil
}

func (f *fakeChannel) Receive(ctx context.Context) ([]byte, error) {
	if msg, ok, err := f.TryReceive(); ok || err != nil {
		return msg, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: no more messages", netchan.ErrTransport)
}

func (f *fakeChannel) TryReceive() ([]byte, bool, error) {
	if len(f.inbound) > 0 {
		msg := f.inbound[0]
		f.inbound = f.inbound[1:]
		return msg, true, nil
	}
	return nil, false, f.recvErr
}

func (f *fakeChannel) RemoteAddr() string { return "fake" }

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func (f *fakeChannel) pushServer(t *testing.T, m netproto.ServerMessage) {
	t.Helper()
	raw, err := netproto.EncodeServer(m)
	if err != nil {
		t.Fatalf("EncodeServer: %v", err)
	}
	f.inbound = append(f.inbound, raw)
}

func (f *fakeChannel) pushClient(t *testing.T, m netproto.ClientMessage) {
	t.Helper()
	raw, err := netproto.EncodeClient(m)
	if err != nil {
		t.Fatalf("EncodeClient: %v", err)
	}
	f.inbound = append(f.inbound, raw)
}

func (f *fakeChannel) lastServer(t *testing.T) netproto.ServerMessage {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatalf("nothing sent")
	}
	m, err := netproto.DecodeServer(f.sent[len(f.sent)-1])
	if err != nil {
		t.Fatalf("DecodeServer: %v", err)
	}
	return m
}

func (f *fakeChannel) lastClient(t *testing.T) netproto.ClientMessage {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatalf("nothing sent")
	}
	m, err := netproto.DecodeClient(f.sent[len(f.sent)-1])
	if err != nil {
		t.Fatalf("DecodeClient: %v", err)
	}
	return m
}

func mv(t *testing.T, uci string) ProposedMove {
	t.Helper()
	from, err := rules.ParsePos(uci[:2])
	if err != nil {
		t.Fatalf("ParsePos %q: %v", uci, err)
	}
	to, err := rules.ParsePos(uci[2:4])
	if err != nil {
		t.Fatalf("ParsePos %q: %v", uci, err)
	}
	return ProposedMove{From: from, To: to}
}

func wireMove(t *testing.T, uci string) *netproto.Move {
	t.Helper()
	w := toWire(mv(t, uci))
	return &w
}

func newBoard(t *testing.T, fen string) *rules.ChessBoard {
	t.Helper()
	b, err := rules.NewBoard(fen)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	return b
}

func mustPoll(t *testing.T, s *Session) {
	t.Helper()
	handled, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !handled {
		t.Fatalf("Poll handled nothing")
	}
}

// joinedHost returns a host that has already accepted a guest.
func joinedHost(t *testing.T, white bool, opts Options) (*Session, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	opts.HostIsWhite = white
	s := NewHost(ch, newBoard(t, ""), opts)
	ch.pushClient(t, netproto.ClientMessage{ConnectRequest: &netproto.ConnectRequest{GameID: opts.GameID}})
	mustPoll(t, s)
	ch.sent = nil
	return s, ch
}

// establishedGuest returns a guest that completed the handshake from the start position.
func establishedGuest(t *testing.T, white bool, opts Options) (*Session, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	s := NewGuest(ch, opts)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch.pushServer(t, netproto.ServerMessage{ConnectAck: &netproto.ConnectAck{
		Success:          true,
		ClientIsWhite:    netproto.Bool(white),
		StartingPosition: &netproto.BoardState{FEN: newBoard(t, "").FEN()},
	}})
	mustPoll(t, s)
	ch.sent = nil
	return s, ch
}
