package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/Cheese-PeerChess/internal/config"
	"github.com/park285/Cheese-PeerChess/internal/lobby"
	"github.com/park285/Cheese-PeerChess/internal/msgcat"
	"github.com/park285/Cheese-PeerChess/internal/netchan"
	"github.com/park285/Cheese-PeerChess/internal/obslog"
	"github.com/park285/Cheese-PeerChess/internal/rules"
	"github.com/park285/Cheese-PeerChess/internal/session"
)

var errQuit = errors.New("quit")

type app struct {
	cfg  *appcfg.AppConfig
	cat  *msgcat.Catalog
	out  io.Writer
	sess *session.Session
}

func newApp(cfg *appcfg.AppConfig, cat *msgcat.Catalog, out io.Writer) *app {
	return &app{cfg: cfg, cat: cat, out: out}
}

func (a *app) say(key string, data map[string]any) {
	fmt.Fprintln(a.out, a.cat.Text(key, data))
}

func (a *app) events() session.Events {
	return session.Events{
		OnEstablished: func(white bool) {
			a.say("session.established", map[string]any{"Color": colorName(white)})
			a.prompt()
		},
		OnMove: func(m session.ProposedMove, local bool) {
			if local {
				a.say("session.you_moved", map[string]any{"Move": m.String()})
			} else {
				a.say("session.opponent_moved", map[string]any{"Move": m.String()})
			}
			printBoard(a.out, a.sess.Board(), a.sess.White())
			a.prompt()
		},
		OnRejected: func(m session.ProposedMove) {
			if a.sess.Role() == session.Guest {
				a.say("move.rejected", map[string]any{"Move": m.String()})
				a.prompt()
			}
		},
		OnGameOver: func(result string) {
			a.say("session.game_over", map[string]any{"Result": result})
		},
	}
}

func (a *app) prompt() {
	if a.sess == nil {
		return
	}
	switch a.sess.Phase() {
	case session.LocalTurn:
		a.say("session.your_turn", map[string]any{"Color": colorName(a.sess.White())})
	case session.AwaitingOpponent:
		if p, ok := a.sess.Pending(); ok {
			a.say("session.pending", map[string]any{"Move": p.Move.String()})
			return
		}
		a.say("session.waiting", nil)
	}
}

func (a *app) netConfig(transport, addr string) netchan.Config {
	return netchan.Config{
		Transport:   transport,
		Addr:        addr,
		DialTimeout: a.cfg.DialTimeout,
		Logger:      obslog.Named("netchan"),
	}
}

// connect establishes the channel and the session for the configured role.
func (a *app) connect(ctx context.Context) error {
	opts := session.Options{
		GameID:      a.cfg.GameID,
		HostIsWhite: true,
		Events:      a.events(),
		Logger:      obslog.Named("session"),
	}
	if a.cfg.Role == appcfg.RoleHost {
		return a.connectHost(ctx, opts)
	}
	return a.connectGuest(ctx, opts)
}

func (a *app) connectHost(ctx context.Context, opts session.Options) error {
	board, err := rules.NewBoard(a.cfg.StartFEN)
	if err != nil {
		return err
	}
	opts.HostIsWhite = a.cfg.HostIsWhite()

	l, err := netchan.NewListener(ctx, a.netConfig(a.cfg.Transport, a.cfg.Addr))
	if err != nil {
		return err
	}
	defer l.Close()

	if a.cfg.RedisURL != "" {
		dir, err := lobby.Open(ctx, a.cfg.RedisURL)
		if err != nil {
			return err
		}
		defer dir.Close()
		entry, err := dir.Register(ctx, l.Addr(), a.cfg.Transport, opts.HostIsWhite)
		if err != nil {
			return err
		}
		opts.GameID = entry.GameID
		a.say("lobby.registered", map[string]any{"GameID": entry.GameID})
		defer func() {
			if rerr := dir.Remove(context.Background(), entry.GameID); rerr != nil {
				obslog.L().Warn("lobby_remove_error", zap.Uint32("game_id", entry.GameID), zap.Error(rerr))
			}
		}()
	}

	a.say("session.listening", map[string]any{"GameID": opts.GameID, "Transport": a.cfg.Transport, "Addr": l.Addr()})
	ch, err := l.Accept(ctx)
	if err != nil {
		return err
	}
	a.sess = session.NewHost(ch, board, opts)
	printBoard(a.out, board, opts.HostIsWhite)
	return nil
}

func (a *app) connectGuest(ctx context.Context, opts session.Options) error {
	addr, transport := a.cfg.Addr, a.cfg.Transport
	if a.cfg.RedisURL != "" && a.cfg.GameID != 0 {
		dir, err := lobby.Open(ctx, a.cfg.RedisURL)
		if err != nil {
			return err
		}
		entry, err := dir.Claim(ctx, a.cfg.GameID)
		_ = dir.Close()
		if err != nil {
			return err
		}
		addr, transport = entry.Addr, entry.Transport
		a.say("lobby.resolved", map[string]any{"GameID": entry.GameID, "Addr": addr})
	}

	a.say("session.dialing", map[string]any{"Transport": transport, "Addr": addr})
	ch, err := netchan.Dial(ctx, a.netConfig(transport, addr))
	if err != nil {
		return err
	}
	a.sess = session.NewGuest(ch, opts)
	return a.sess.Start(ctx)
}

// run connects, then drives the session from a frame loop: one inbound
// message per tick, stdin lines as they arrive.
func (a *app) run(ctx context.Context, in io.Reader) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.sess.Close()
	a.prompt()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	tick := time.NewTicker(a.cfg.FrameInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := a.handleLine(ctx, line); err != nil {
				return err
			}
		case <-tick.C:
			if _, err := a.sess.Poll(ctx); err != nil {
				return err
			}
		}
	}
}

// handleLine runs one user command. Only fatal session errors and quit are returned.
func (a *app) handleLine(ctx context.Context, line string) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "quit", "exit":
		return errQuit
	case "board":
		if b := a.sess.Board(); b != nil {
			printBoard(a.out, b, a.sess.White())
		}
		return nil
	case "moves":
		if len(fields) < 2 {
			a.say("move.parse_error", map[string]any{"Input": line})
			return nil
		}
		return a.showDestinations(fields[1])
	}

	m, err := parseMove(fields[0])
	if err != nil {
		a.say("move.parse_error", map[string]any{"Input": fields[0]})
		return nil
	}
	err = a.sess.Submit(ctx, m)
	switch {
	case err == nil:
		if a.sess.Role() == session.Guest {
			a.prompt()
		}
		return nil
	case session.IsFatal(err):
		return err
	case errors.Is(err, session.ErrIllegalMove):
		a.say("move.illegal", map[string]any{"Move": m.String()})
	case errors.Is(err, session.ErrNotYourTurn):
		a.say("move.not_your_turn", nil)
	case errors.Is(err, session.ErrPendingMove):
		a.say("move.pending", nil)
	case errors.Is(err, session.ErrNotEstablished):
		a.say("move.not_established", nil)
	default:
		a.say("fatal.other", map[string]any{"Err": err})
	}
	return nil
}

func (a *app) showDestinations(square string) error {
	b := a.sess.Board()
	if b == nil {
		a.say("move.not_established", nil)
		return nil
	}
	from, err := rules.ParsePos(square)
	if err != nil {
		a.say("move.parse_error", map[string]any{"Input": square})
		return nil
	}
	dests := b.Destinations(from)
	if len(dests) == 0 {
		a.say("move.no_destinations", map[string]any{"From": from.String()})
		return nil
	}
	names := make([]string, len(dests))
	for i, d := range dests {
		names[i] = d.String()
	}
	a.say("move.destinations", map[string]any{"From": from.String(), "List": strings.Join(names, " ")})
	return nil
}

func colorName(white bool) string {
	if white {
		return "white"
	}
	return "black"
}
