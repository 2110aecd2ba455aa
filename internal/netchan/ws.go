package netchan

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/Cheese-PeerChess/internal/obslog"
)

type wsChannel struct {
	conn   *websocket.Conn
	remote string
	in     *inbox
	logger *zap.Logger

	readCtx    context.Context
	cancelRead context.CancelFunc
	closeOnce  sync.Once
}

// NewWSChannel adopts an established WebSocket connection. Each Send is one
// binary message.
func NewWSChannel(conn *websocket.Conn, remote string, logger *zap.Logger) Channel {
	if logger == nil {
		logger = obslog.Named("netchan")
	}
	conn.SetReadLimit(MaxFrameSize)
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsChannel{conn: conn, remote: remote, in: newInbox(), logger: logger, readCtx: ctx, cancelRead: cancel}
	go c.in.run(c.read)
	return c
}

func (c *wsChannel) read() ([]byte, error) {
	typ, data, err := c.conn.Read(c.readCtx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, fmt.Errorf("%w: peer closed connection", ErrTransport)
		}
		return nil, fmt.Errorf("%w: ws read: %v", ErrTransport, err)
	}
	if typ != websocket.MessageBinary {
		return nil, fmt.Errorf("%w: unexpected %v message", ErrTransport, typ)
	}
	return data, nil
}

func (c *wsChannel) Send(ctx context.Context, msg []byte) error {
	if len(msg) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(msg))
	}
	if err := c.conn.Write(ctx, websocket.MessageBinary, msg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("netchan_send_failed", zap.String("remote", c.remote), zap.Error(err))
		return fmt.Errorf("%w: ws write: %v", ErrTransport, err)
	}
	return nil
}

func (c *wsChannel) Receive(ctx context.Context) ([]byte, error) { return c.in.receive(ctx) }

func (c *wsChannel) TryReceive() ([]byte, bool, error) { return c.in.tryReceive() }

func (c *wsChannel) RemoteAddr() string { return c.remote }

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.in.close()
		err = c.conn.Close(websocket.StatusNormalClosure, "bye")
		c.cancelRead()
	})
	return err
}
