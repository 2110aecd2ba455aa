package netchan

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-PeerChess/internal/obslog"
)

const headerSize = 4

type frameChannel struct {
	conn   net.Conn
	in     *inbox
	logger *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewFrameChannel wraps a stream connection with length-prefixed framing and
// starts its reader goroutine.
func NewFrameChannel(conn net.Conn, logger *zap.Logger) Channel {
	if logger == nil {
		logger = obslog.Named("netchan")
	}
	c := &frameChannel{conn: conn, in: newInbox(), logger: logger}
	r := bufio.NewReader(conn)
	go c.in.run(func() ([]byte, error) { return readFrame(r) })
	return c
}

func (c *frameChannel) Send(ctx context.Context, msg []byte) error {
	if len(msg) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(msg))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, headerSize+len(msg))
	binary.BigEndian.PutUint32(buf, uint32(len(msg)))
	copy(buf[headerSize:], msg)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := c.conn.Write(buf); err != nil {
		c.logger.Warn("netchan_send_failed", zap.String("remote", c.RemoteAddr()), zap.Error(err))
		return fmt.Errorf("%w: write: %v", ErrTransport, err)
	}
	return nil
}

func (c *frameChannel) Receive(ctx context.Context) ([]byte, error) { return c.in.receive(ctx) }

func (c *frameChannel) TryReceive() ([]byte, bool, error) { return c.in.tryReceive() }

func (c *frameChannel) RemoteAddr() string {
	if a := c.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

func (c *frameChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.in.close()
		err = c.conn.Close()
	})
	return err
}

// readFrame reads one length-prefixed message. Oversized frames are refused
// before the payload is allocated.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: peer closed connection", ErrTransport)
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrTransport, err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %w: %d bytes", ErrTransport, ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: truncated frame: %v", ErrTransport, err)
	}
	return payload, nil
}
