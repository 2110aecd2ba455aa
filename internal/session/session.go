package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Cheese-PeerChess/internal/netchan"
	"github.com/park285/Cheese-PeerChess/internal/netproto"
	"github.com/park285/Cheese-PeerChess/internal/obslog"
	"github.com/park285/Cheese-PeerChess/internal/rules"
)

// Session is one peer's view of the game. It is not safe for concurrent
// use; drive it from a single loop.
type Session struct {
	id    string
	role  Role
	phase Phase
	ch    netchan.Channel
	board rules.Board
	opts  Options
	log   *zap.Logger

	white   bool
	pending *PendingMove
	err     error

	started bool // guest: ConnectRequest sent
	joined  bool // host: guest accepted
}

// NewGuest creates a session that must complete the handshake before play.
func NewGuest(ch netchan.Channel, opts Options) *Session {
	s := newSession(ch, Guest, opts)
	s.board = opts.Board
	s.phase = NotEstablished
	return s
}

// NewHost creates the authoritative side. The host moves first only when
// its colour is on move in board.
func NewHost(ch netchan.Channel, board rules.Board, opts Options) *Session {
	s := newSession(ch, Host, opts)
	s.board = board
	s.white = opts.HostIsWhite
	s.phase = AwaitingOpponent
	if board.Turn() == s.color() {
		s.phase = LocalTurn
	}
	return s
}

func newSession(ch netchan.Channel, role Role, opts Options) *Session {
	if opts.NewBoard == nil {
		opts.NewBoard = defaultBoardFactory
	}
	logger := opts.Logger
	if logger == nil {
		logger = obslog.Named("session")
	}
	id := uuid.NewString()
	return &Session{
		id:   id,
		role: role,
		ch:   ch,
		opts: opts,
		log:  logger.With(zap.String("session_id", id), zap.String("role", role.String())),
	}
}

func (s *Session) ID() string         { return s.id }
func (s *Session) Role() Role         { return s.role }
func (s *Session) Phase() Phase       { return s.phase }
func (s *Session) Board() rules.Board { return s.board }

// Err returns the fatal error that ended the session, if any.
func (s *Session) Err() error { return s.err }

// White reports the local colour. Meaningless for a guest before the handshake.
func (s *Session) White() bool { return s.white }

// Established reports whether both peers completed the handshake.
func (s *Session) Established() bool {
	if s.role == Host {
		return s.joined
	}
	return s.phase != NotEstablished
}

func (s *Session) Pending() (PendingMove, bool) {
	if s.pending == nil {
		return PendingMove{}, false
	}
	return *s.pending, true
}

func (s *Session) color() rules.Color {
	if s.white {
		return rules.White
	}
	return rules.Black
}

// Start sends the guest's ConnectRequest. It is a no-op for the host and on
// repeated calls.
func (s *Session) Start(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	if s.role == Host || s.started {
		return nil
	}
	req := &netproto.ConnectRequest{GameID: s.opts.GameID}
	if err := s.sendClient(ctx, netproto.ClientMessage{ConnectRequest: req}); err != nil {
		return err
	}
	s.started = true
	s.log.Info("session_connect_request", zap.Uint32("game_id", s.opts.GameID))
	return nil
}

// Submit handles a move entered locally. Recoverable errors leave the
// session unchanged and nothing is sent.
func (s *Session) Submit(ctx context.Context, m ProposedMove) error {
	if s.err != nil {
		return s.err
	}
	if !m.From.Valid() || !m.To.Valid() {
		return fmt.Errorf("%w: off the board", ErrIllegalMove)
	}
	if s.role == Host {
		return s.hostSubmit(ctx, m)
	}
	return s.guestSubmit(ctx, m)
}

// Poll dispatches at most one buffered message without blocking. handled
// reports whether a message was consumed.
func (s *Session) Poll(ctx context.Context) (handled bool, err error) {
	if s.err != nil {
		return false, s.err
	}
	msg, ok, err := s.ch.TryReceive()
	if err != nil {
		return false, s.fail(transportErr(err))
	}
	if !ok {
		return false, nil
	}
	return true, s.dispatch(ctx, msg)
}

// Step blocks until one message arrives and dispatches it. A done ctx is
// returned as is and does not end the session.
func (s *Session) Step(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	msg, err := s.ch.Receive(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		return s.fail(transportErr(err))
	}
	return s.dispatch(ctx, msg)
}

// Close releases the channel.
func (s *Session) Close() error { return s.ch.Close() }

func (s *Session) dispatch(ctx context.Context, raw []byte) error {
	if s.role == Host {
		msg, err := netproto.DecodeClient(raw)
		if err != nil {
			return s.fail(err)
		}
		s.log.Debug("session_recv", zap.String("kind", msg.Kind()), zap.String("phase", s.phase.String()))
		return s.hostHandle(ctx, msg)
	}
	msg, err := netproto.DecodeServer(raw)
	if err != nil {
		return s.fail(err)
	}
	s.log.Debug("session_recv", zap.String("kind", msg.Kind()), zap.String("phase", s.phase.String()))
	return s.guestHandle(ctx, msg)
}

func (s *Session) sendClient(ctx context.Context, msg netproto.ClientMessage) error {
	raw, err := netproto.EncodeClient(msg)
	if err != nil {
		return err
	}
	return s.send(ctx, msg.Kind(), raw)
}

func (s *Session) sendServer(ctx context.Context, msg netproto.ServerMessage) error {
	raw, err := netproto.EncodeServer(msg)
	if err != nil {
		return err
	}
	return s.send(ctx, msg.Kind(), raw)
}

func (s *Session) send(ctx context.Context, kind string, raw []byte) error {
	if err := s.ch.Send(ctx, raw); err != nil {
		return s.fail(transportErr(err))
	}
	s.log.Debug("session_send", zap.String("kind", kind), zap.Int("bytes", len(raw)))
	return nil
}

// fail latches the first fatal error.
func (s *Session) fail(err error) error {
	if s.err == nil {
		s.err = err
		s.log.Error("session_fatal", zap.String("phase", s.phase.String()), zap.Error(err))
	}
	return s.err
}

func (s *Session) violation(what string, cause error) error {
	return s.fail(&ProtocolError{Role: s.role, Phase: s.phase, What: what, Err: cause})
}

// commit applies m to the board.
func (s *Session) commit(m ProposedMove, local bool) error {
	if err := s.board.MoveFromTo(m.From, m.To, promoKind(m.Promotion)); err != nil {
		return err
	}
	s.log.Info("session_move", zap.String("move", m.String()), zap.Bool("local", local), zap.String("fen", s.board.FEN()))
	return nil
}

// announce reports a committed move once the session state is final.
func (s *Session) announce(m ProposedMove, local bool) {
	if cb := s.opts.Events.OnMove; cb != nil {
		cb(m, local)
	}
	if result := s.board.Outcome(); result != "" {
		s.log.Info("session_game_over", zap.String("result", result))
		if cb := s.opts.Events.OnGameOver; cb != nil {
			cb(result)
		}
	}
}

func transportErr(err error) error {
	if errors.Is(err, netchan.ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", netchan.ErrTransport, err)
}

// samePosition compares piece placement, side to move and castling rights.
// Move counters and en passant notation differ between engines.
func samePosition(a, b string) bool {
	fa, fb := strings.Fields(a), strings.Fields(b)
	if len(fa) < 3 || len(fb) < 3 {
		return a == b
	}
	for i := 0; i < 3; i++ {
		if fa[i] != fb[i] {
			return false
		}
	}
	return true
}
