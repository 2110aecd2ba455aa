package netchan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/Cheese-PeerChess/internal/obslog"
)

const (
	TransportTCP = "tcp"
	TransportWS  = "ws"

	DefaultPath = "/play"
)

var ErrUnknownTransport = errors.New("netchan: unknown transport")

// Config selects how the two peers find each other.
type Config struct {
	Transport   string // tcp | ws
	Addr        string
	Path        string // ws only
	DialTimeout time.Duration
	Logger      *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return obslog.Named("netchan")
}

func (c Config) path() string {
	if strings.TrimSpace(c.Path) == "" {
		return DefaultPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		return "/" + c.Path
	}
	return c.Path
}

// Listener waits for exactly one peer.
type Listener struct {
	cfg    Config
	ln     net.Listener
	accept func(ctx context.Context) (Channel, error)
}

// NewListener binds cfg.Addr. The bound address is available before Accept,
// so callers may listen on port 0 and publish the result.
func NewListener(ctx context.Context, cfg Config) (*Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %v", ErrTransport, cfg.Addr, err)
	}
	l := &Listener{cfg: cfg, ln: ln}
	switch strings.ToLower(cfg.Transport) {
	case "", TransportTCP:
		l.accept = l.acceptTCP
	case TransportWS:
		l.accept = l.acceptWS
	default:
		_ = ln.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	return l, nil
}

func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Accept blocks until one peer connects, then stops listening.
func (l *Listener) Accept(ctx context.Context) (Channel, error) { return l.accept(ctx) }

func (l *Listener) Close() error { return l.ln.Close() }

func (l *Listener) acceptTCP(ctx context.Context) (Channel, error) {
	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()
	conn, err := l.ln.Accept()
	_ = l.ln.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: accept: %v", ErrTransport, err)
	}
	l.cfg.logger().Info("netchan_accept",
		zap.String("transport", TransportTCP),
		zap.String("remote", conn.RemoteAddr().String()))
	return NewFrameChannel(conn, l.cfg.Logger), nil
}

func (l *Listener) acceptWS(ctx context.Context) (Channel, error) {
	type result struct {
		conn   *websocket.Conn
		remote string
	}
	got := make(chan result, 1)
	var claimed atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc(l.cfg.path(), func(w http.ResponseWriter, r *http.Request) {
		if !claimed.CompareAndSwap(false, true) {
			http.Error(w, "game already has a guest", http.StatusConflict)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			l.cfg.logger().Warn("netchan_upgrade_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			claimed.Store(false)
			return
		}
		got <- result{conn: conn, remote: r.RemoteAddr}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(l.ln) }()

	select {
	case res := <-got:
		// hijacked connections outlive the server
		_ = srv.Close()
		l.cfg.logger().Info("netchan_accept",
			zap.String("transport", TransportWS),
			zap.String("remote", res.remote))
		return NewWSChannel(res.conn, res.remote, l.cfg.Logger), nil
	case <-ctx.Done():
		_ = srv.Close()
		return nil, ctx.Err()
	}
}

// Listen binds cfg.Addr and accepts exactly one peer.
func Listen(ctx context.Context, cfg Config) (Channel, error) {
	l, err := NewListener(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return l.Accept(ctx)
}

// Dial connects to a listening peer.
func Dial(ctx context.Context, cfg Config) (Channel, error) {
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	switch strings.ToLower(cfg.Transport) {
	case "", TransportTCP:
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, cfg.Addr, err)
		}
		cfg.logger().Info("netchan_dial", zap.String("transport", TransportTCP), zap.String("remote", cfg.Addr))
		return NewFrameChannel(conn, cfg.Logger), nil
	case TransportWS:
		url := wsURL(cfg.Addr, cfg.path())
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, url, err)
		}
		cfg.logger().Info("netchan_dial", zap.String("transport", TransportWS), zap.String("remote", url))
		return NewWSChannel(conn, url, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}

func wsURL(addr, path string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + path
}
